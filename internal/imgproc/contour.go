package imgproc

import (
	"image"
	"math"
	"sort"
)

// Point is an integer pixel coordinate.
type Point struct {
	X, Y int
}

// Contour is a closed boundary polygon in pixel coordinates, ordered along
// the boundary.
type Contour []Point

// RectContour returns the full-rectangle contour used as the fallback when
// segmentation finds no boundary, guaranteeing a non-degenerate subject.
func RectContour(w, h int) Contour {
	return Contour{{0, 0}, {w, 0}, {w, h}, {0, h}}
}

// Area computes the polygon area via the shoelace formula.
func (c Contour) Area() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	for i := range c {
		j := (i + 1) % len(c)
		sum += float64(c[i].X*c[j].Y - c[j].X*c[i].Y)
	}
	return math.Abs(sum) / 2
}

// Perimeter computes the closed arc length of the contour.
func (c Contour) Perimeter() float64 {
	if len(c) < 2 {
		return 0
	}
	var sum float64
	for i := range c {
		j := (i + 1) % len(c)
		dx := float64(c[j].X - c[i].X)
		dy := float64(c[j].Y - c[i].Y)
		sum += math.Sqrt(dx*dx + dy*dy)
	}
	return sum
}

// ConvexHull computes the convex hull of the contour points using the
// monotone chain algorithm. The returned hull is in counter-clockwise
// order without the duplicated endpoint.
func (c Contour) ConvexHull() Contour {
	pts := make([]Point, len(c))
	copy(pts, c)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	// Deduplicate.
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return append(Contour(nil), pts...)
	}

	cross := func(o, a, b Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// mooreOffsets enumerates the 8-neighbourhood clockwise starting from west.
var mooreOffsets = [8]Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// FindExternalContours extracts the outer boundary of every 8-connected
// foreground component in a binary image. Boundaries are traced with Moore
// neighbour following; holes are ignored.
func FindExternalContours(bin *image.Gray) []Contour {
	b := bin.Bounds()
	w, h := b.Dx(), b.Dy()
	fg := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return false
		}
		return bin.GrayAt(b.Min.X+x, b.Min.Y+y).Y > 0
	}

	labeled := make([]bool, w*h)
	var contours []Contour

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !fg(x, y) || labeled[y*w+x] {
				continue
			}
			contour := traceBoundary(fg, Point{x, y})
			contours = append(contours, contour)
			floodLabel(fg, labeled, w, h, Point{x, y})
		}
	}
	return contours
}

// traceBoundary follows the outer boundary clockwise from the component's
// top-left-most pixel using Moore neighbour tracing with Jacob's stopping
// criterion.
func traceBoundary(fg func(x, y int) bool, start Point) Contour {
	contour := Contour{start}

	// Single-pixel component.
	isolated := true
	for _, off := range mooreOffsets {
		if fg(start.X+off.X, start.Y+off.Y) {
			isolated = false
			break
		}
	}
	if isolated {
		return contour
	}

	// Entry direction: we reached start scanning from the west.
	cur := start
	dir := 0
	for {
		found := false
		for i := 0; i < 8; i++ {
			d := (dir + i) % 8
			next := Point{cur.X + mooreOffsets[d].X, cur.Y + mooreOffsets[d].Y}
			if fg(next.X, next.Y) {
				if next == start && len(contour) > 2 {
					return contour
				}
				contour = append(contour, next)
				cur = next
				// Backtrack: restart the scan from the position before
				// the one we came in on.
				dir = (d + 5) % 8
				found = true
				break
			}
		}
		if !found || len(contour) > 1<<20 {
			return contour
		}
	}
}

// floodLabel marks every pixel of the 8-connected component containing
// start.
func floodLabel(fg func(x, y int) bool, labeled []bool, w, h int, start Point) {
	stack := []Point{start}
	labeled[start.Y*w+start.X] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, off := range mooreOffsets {
			nx, ny := p.X+off.X, p.Y+off.Y
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if fg(nx, ny) && !labeled[ny*w+nx] {
				labeled[ny*w+nx] = true
				stack = append(stack, Point{nx, ny})
			}
		}
	}
}

// LargestContour selects the contour with the greatest area, or ok=false
// for an empty set.
func LargestContour(contours []Contour) (Contour, bool) {
	if len(contours) == 0 {
		return nil, false
	}
	best := contours[0]
	bestArea := best.Area()
	for _, c := range contours[1:] {
		if a := c.Area(); a > bestArea {
			best, bestArea = c, a
		}
	}
	return best, true
}

// FillContour rasterises the contour interior (plus its boundary) into a
// binary mask of the given size using even-odd scanline filling.
func FillContour(w, h int, c Contour) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	if len(c) == 0 {
		return mask
	}

	for y := 0; y < h; y++ {
		// Collect crossings of the scanline through the polygon edges.
		var xs []float64
		fy := float64(y)
		for i := range c {
			j := (i + 1) % len(c)
			y1, y2 := float64(c[i].Y), float64(c[j].Y)
			if (y1 <= fy && y2 > fy) || (y2 <= fy && y1 > fy) {
				t := (fy - y1) / (y2 - y1)
				xs = append(xs, float64(c[i].X)+t*float64(c[j].X-c[i].X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x1 := clampInt(int(math.Ceil(xs[i])), 0, w-1)
			x2 := clampInt(int(math.Floor(xs[i+1])), 0, w-1)
			for x := x1; x <= x2; x++ {
				mask.Pix[mask.PixOffset(x, y)] = 255
			}
		}
	}

	// Boundary pixels belong to the subject as well.
	stampContour(mask, c, 0)
	return mask
}

// BorderMask marks a band of the given half-thickness around the contour
// boundary.
func BorderMask(w, h int, c Contour, halfThickness int) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, w, h))
	stampContour(mask, c, halfThickness)
	return mask
}

func stampContour(mask *image.Gray, c Contour, radius int) {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	for _, p := range c {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				x, y := p.X+dx, p.Y+dy
				if x >= 0 && y >= 0 && x < w && y < h {
					mask.Pix[mask.PixOffset(x, y)] = 255
				}
			}
		}
	}
}

// SubtractMask returns a∧¬b, used to isolate a region interior from its
// border band.
func SubtractMask(a, b *image.Gray) *image.Gray {
	bounds := a.Bounds()
	out := image.NewGray(bounds)
	for i := range a.Pix {
		if a.Pix[i] > 0 && b.Pix[i] == 0 {
			out.Pix[i] = 255
		}
	}
	return out
}

// MaskArea counts foreground pixels in a binary mask.
func MaskArea(mask *image.Gray) int {
	var n int
	for _, p := range mask.Pix {
		if p > 0 {
			n++
		}
	}
	return n
}
