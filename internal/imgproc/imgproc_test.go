package imgproc

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestToGrayLuminance(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 2, 1))
	rgba.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	rgba.Set(1, 0, color.RGBA{A: 255})
	gray := ToGray(rgba)
	if gray.GrayAt(0, 0).Y != 255 {
		t.Errorf("white = %d, want 255", gray.GrayAt(0, 0).Y)
	}
	if gray.GrayAt(1, 0).Y != 0 {
		t.Errorf("black = %d, want 0", gray.GrayAt(1, 0).Y)
	}
}

func TestGaussianBlurPreservesUniform(t *testing.T) {
	img := uniform(16, 16, 77)
	out := GaussianBlur(img, 5)
	for i, v := range out.Pix {
		if v != 77 {
			t.Fatalf("pixel %d = %d, blur of a uniform image must stay uniform", i, v)
		}
	}
}

func TestGaussianBlurSmooths(t *testing.T) {
	img := uniform(15, 15, 0)
	img.SetGray(7, 7, color.Gray{Y: 255})
	out := GaussianBlur(img, 5)
	centre := out.GrayAt(7, 7).Y
	if centre == 0 || centre == 255 {
		t.Errorf("impulse centre = %d, want spread between 0 and 255", centre)
	}
	if out.GrayAt(8, 7).Y == 0 {
		t.Error("impulse energy must leak into the neighbourhood")
	}
}

func TestOtsuSeparatesBimodal(t *testing.T) {
	pixels := make([]uint8, 0, 200)
	for i := 0; i < 100; i++ {
		pixels = append(pixels, 30)
	}
	for i := 0; i < 100; i++ {
		pixels = append(pixels, 220)
	}
	th := OtsuThreshold(pixels)
	if th < 30 || th >= 220 {
		t.Errorf("threshold = %d, want between the modes", th)
	}
}

func TestAdaptiveThresholdInvMarksDarkRegions(t *testing.T) {
	img := uniform(40, 40, 200)
	for y := 15; y < 25; y++ {
		for x := 15; x < 25; x++ {
			img.SetGray(x, y, color.Gray{Y: 20})
		}
	}
	bin := AdaptiveThresholdInv(img, 11, 2)

	if bin.GrayAt(20, 20).Y == 0 && bin.GrayAt(15, 15).Y == 0 {
		t.Error("dark region must be marked foreground somewhere")
	}
	if bin.GrayAt(2, 2).Y != 0 {
		t.Error("uniform background must stay background")
	}
}

func TestContourAreaPerimeter(t *testing.T) {
	square := Contour{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	if a := square.Area(); a != 100 {
		t.Errorf("area = %v, want 100", a)
	}
	if p := square.Perimeter(); p != 40 {
		t.Errorf("perimeter = %v, want 40", p)
	}
}

func TestConvexHullDropsInteriorPoints(t *testing.T) {
	c := Contour{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		{X: 5, Y: 5}, // interior
	}
	hull := c.ConvexHull()
	for _, p := range hull {
		if p.X == 5 && p.Y == 5 {
			t.Fatal("interior point survived hull construction")
		}
	}
	if a := hull.Area(); a != 100 {
		t.Errorf("hull area = %v, want 100", a)
	}
}

func TestFindExternalContoursSingleBlob(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 30, 30))
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			bin.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	contours := FindExternalContours(bin)
	if len(contours) != 1 {
		t.Fatalf("got %d contours, want 1", len(contours))
	}
	c, ok := LargestContour(contours)
	if !ok {
		t.Fatal("largest contour missing")
	}
	// 10x10 blob: traced outer boundary encloses ~81 units of shoelace
	// area (vertex-path area of a 9x9 pixel-centre square).
	if a := c.Area(); a < 60 || a > 110 {
		t.Errorf("blob contour area = %v, want near 81", a)
	}
	for _, p := range c {
		if p.X < 10 || p.X > 19 || p.Y < 10 || p.Y > 19 {
			t.Fatalf("contour point %+v escaped the blob", p)
		}
	}
}

func TestFindExternalContoursIgnoresHoles(t *testing.T) {
	bin := image.NewGray(image.Rect(0, 0, 30, 30))
	for y := 5; y < 25; y++ {
		for x := 5; x < 25; x++ {
			bin.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	// Punch a hole; external tracing must still return one outer contour.
	for y := 12; y < 18; y++ {
		for x := 12; x < 18; x++ {
			bin.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	contours := FindExternalContours(bin)
	if len(contours) != 1 {
		t.Errorf("got %d contours, want only the outer boundary", len(contours))
	}
}

func TestFillContourRoundTripsArea(t *testing.T) {
	c := Contour{{X: 2, Y: 2}, {X: 20, Y: 2}, {X: 20, Y: 15}, {X: 2, Y: 15}}
	mask := FillContour(24, 18, c)
	area := MaskArea(mask)
	// 19x14 grid of covered pixel centres including the boundary stamp.
	if area < 18*13 || area > 20*15 {
		t.Errorf("filled area = %d, want about %d", area, 19*14)
	}
}

func TestSubtractMask(t *testing.T) {
	a := uniform(10, 10, 255)
	b := image.NewGray(image.Rect(0, 0, 10, 10))
	for x := 0; x < 10; x++ {
		b.SetGray(x, 0, color.Gray{Y: 255})
	}
	out := SubtractMask(a, b)
	if MaskArea(out) != 90 {
		t.Errorf("subtracted area = %d, want 90", MaskArea(out))
	}
}

func TestMeanGradientFlatVsEdge(t *testing.T) {
	flat := uniform(32, 32, 128)
	if g := MeanGradient(flat, nil); g != 0 {
		t.Errorf("flat gradient = %v, want 0", g)
	}

	step := uniform(32, 32, 0)
	for y := 0; y < 32; y++ {
		for x := 16; x < 32; x++ {
			step.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	if g := MeanGradient(step, nil); g <= 0 {
		t.Errorf("step-edge gradient = %v, want positive", g)
	}
}

func TestEdgeDensityPercentage(t *testing.T) {
	step := uniform(32, 32, 0)
	for y := 0; y < 32; y++ {
		for x := 16; x < 32; x++ {
			step.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	d := EdgeDensity(step, nil)
	if d <= 0 || d > 100 {
		t.Errorf("edge density = %v, want a percentage in (0,100]", d)
	}
	if flat := EdgeDensity(uniform(32, 32, 128), nil); flat != 0 {
		t.Errorf("flat edge density = %v, want 0", flat)
	}
}

func TestZhangSuenThinsThickLine(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 60, 20))
	for y := 7; y < 13; y++ {
		for x := 5; x < 55; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	before := MaskArea(mask)
	skeleton := ZhangSuenThinner{}.Thin(mask)
	after := MaskArea(skeleton)

	if after == 0 {
		t.Fatal("thinning erased the line entirely")
	}
	if after >= before/2 {
		t.Errorf("skeleton area %d not much smaller than original %d", after, before)
	}
	// A 6px-thick line should reduce to roughly its length.
	if after > 120 {
		t.Errorf("skeleton area %d, want near the line length (~50)", after)
	}
}

func TestNopThinnerIsIdentity(t *testing.T) {
	mask := uniform(8, 8, 255)
	if out := (NopThinner{}).Thin(mask); out != mask {
		t.Error("NopThinner must return the mask unchanged")
	}
}

func TestSpectrumMagnitudeDCAtCentre(t *testing.T) {
	img := uniform(16, 16, 100)
	mag, w, h := SpectrumMagnitude(img)
	if w != 16 || h != 16 {
		t.Fatalf("dims = %dx%d, want 16x16", w, h)
	}
	dc := mag[(h/2)*w+w/2]
	want := 100.0 * 16 * 16
	if math.Abs(dc-want) > 1e-6*want {
		t.Errorf("DC magnitude = %v, want %v", dc, want)
	}
	// Everything off-centre is zero for a constant image.
	for i, m := range mag {
		if i == (h/2)*w+w/2 {
			continue
		}
		if m > 1e-6 {
			t.Fatalf("bin %d = %v, want 0 for a constant image", i, m)
		}
	}
}

func TestSpectralFeaturesConstantImage(t *testing.T) {
	dom, rough := SpectralFeatures(uniform(32, 32, 100))
	if dom != 0 {
		t.Errorf("constant image dominant frequency = %v, want 0", dom)
	}
	if rough != 0 {
		t.Errorf("constant image roughness = %v, want 0", rough)
	}
}

func TestSpectralFeaturesStripes(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x/2)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	dom, _ := SpectralFeatures(img)
	if dom <= 0 {
		t.Errorf("striped image dominant frequency = %v, want positive", dom)
	}
}

func TestFitEllipseMaskDisk(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			dx, dy := x-32, y-32
			if dx*dx+dy*dy <= 20*20 {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	fit, ok := FitEllipseMask(mask)
	if !ok {
		t.Fatal("disk must be fittable")
	}
	// A disk's equivalent ellipse has equal axes near its diameter.
	if math.Abs(fit.MajorAxis-fit.MinorAxis) > 1.0 {
		t.Errorf("disk axes differ: %v vs %v", fit.MajorAxis, fit.MinorAxis)
	}
	if fit.MajorAxis < 35 || fit.MajorAxis > 45 {
		t.Errorf("axis = %v, want near the 40px diameter", fit.MajorAxis)
	}
}

func TestFitEllipseMaskTooSmall(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 8, 8))
	mask.SetGray(3, 3, color.Gray{Y: 255})
	mask.SetGray(4, 4, color.Gray{Y: 255})
	if _, ok := FitEllipseMask(mask); ok {
		t.Error("fewer than 5 foreground pixels must not fit")
	}
}

func TestFitEllipseMaskNil(t *testing.T) {
	if _, ok := FitEllipseMask(nil); ok {
		t.Error("nil mask must not fit")
	}
}

func TestFitEllipseMaskOrientation(t *testing.T) {
	// Horizontal bar: orientation near 0 (mod 180), major axis along x.
	mask := image.NewGray(image.Rect(0, 0, 60, 20))
	for y := 8; y < 12; y++ {
		for x := 5; x < 55; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	fit, ok := FitEllipseMask(mask)
	if !ok {
		t.Fatal("bar must be fittable")
	}
	if fit.MajorAxis <= fit.MinorAxis {
		t.Errorf("major %v must exceed minor %v", fit.MajorAxis, fit.MinorAxis)
	}
	angle := math.Min(fit.AngleDeg, 180-fit.AngleDeg)
	if angle > 5 {
		t.Errorf("horizontal bar orientation = %v, want near 0", fit.AngleDeg)
	}
}
