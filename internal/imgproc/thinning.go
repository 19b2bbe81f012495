package imgproc

import "image"

// Thinner reduces a binary mask to a one-pixel-wide skeleton. The crack
// detector treats it as a pluggable strategy: deployments that cannot
// afford the iterative pass can substitute NopThinner and fall back to the
// raw mask.
type Thinner interface {
	Thin(mask *image.Gray) *image.Gray
}

// NopThinner returns the mask unchanged.
type NopThinner struct{}

// Thin implements Thinner.
func (NopThinner) Thin(mask *image.Gray) *image.Gray { return mask }

// ZhangSuenThinner implements the classic two-subiteration Zhang–Suen
// thinning algorithm.
type ZhangSuenThinner struct{}

// Thin implements Thinner.
func (ZhangSuenThinner) Thin(mask *image.Gray) *image.Gray {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()

	cur := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cur[y*w+x] = mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y > 0
		}
	}

	at := func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return false
		}
		return cur[y*w+x]
	}

	changed := true
	for changed {
		changed = false
		for pass := 0; pass < 2; pass++ {
			var deletions []int
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					if !cur[y*w+x] {
						continue
					}
					// Neighbours P2..P9 clockwise from north.
					p := [8]bool{
						at(x, y-1), at(x+1, y-1), at(x+1, y), at(x+1, y+1),
						at(x, y+1), at(x-1, y+1), at(x-1, y), at(x-1, y-1),
					}
					bn := 0
					for _, v := range p {
						if v {
							bn++
						}
					}
					if bn < 2 || bn > 6 {
						continue
					}
					// Transitions 0→1 around the ring.
					an := 0
					for i := 0; i < 8; i++ {
						if !p[i] && p[(i+1)%8] {
							an++
						}
					}
					if an != 1 {
						continue
					}
					var c1, c2 bool
					if pass == 0 {
						c1 = !p[0] || !p[2] || !p[4] // P2*P4*P6 == 0
						c2 = !p[2] || !p[4] || !p[6] // P4*P6*P8 == 0
					} else {
						c1 = !p[0] || !p[2] || !p[6] // P2*P4*P8 == 0
						c2 = !p[0] || !p[4] || !p[6] // P2*P6*P8 == 0
					}
					if c1 && c2 {
						deletions = append(deletions, y*w+x)
					}
				}
			}
			for _, idx := range deletions {
				cur[idx] = false
			}
			if len(deletions) > 0 {
				changed = true
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if cur[y*w+x] {
				out.Pix[out.PixOffset(x, y)] = 255
			}
		}
	}
	return out
}
