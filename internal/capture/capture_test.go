package capture

import (
	"image"
	"image/color"
	"testing"

	"github.com/roadscan-data/surface.report/internal/defect"
)

func testFrame(w, h int, fill color.RGBA) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			frame.Set(x, y, fill)
		}
	}
	return frame
}

func TestBufferLatestReturnsCopy(t *testing.T) {
	var buf Buffer
	frame := testFrame(8, 8, color.RGBA{R: 10, A: 255})
	buf.Store(frame)

	got, seq := buf.Latest()
	if got == nil || seq != 1 {
		t.Fatalf("latest = %v seq %d, want frame with seq 1", got, seq)
	}
	got.Pix[0] = 99
	again, _ := buf.Latest()
	if again.Pix[0] == 99 {
		t.Error("mutating a returned frame leaked into the buffer")
	}
}

func TestBufferSequenceAdvances(t *testing.T) {
	var buf Buffer
	if f, seq := buf.Latest(); f != nil || seq != 0 {
		t.Fatal("empty buffer must report nil/0")
	}
	buf.Store(testFrame(4, 4, color.RGBA{A: 255}))
	buf.Store(testFrame(4, 4, color.RGBA{A: 255}))
	if _, seq := buf.Latest(); seq != 2 {
		t.Errorf("seq = %d, want 2", seq)
	}
	buf.Store(nil) // ignored
	if _, seq := buf.Latest(); seq != 2 {
		t.Errorf("nil store must not advance the sequence, got %d", seq)
	}
}

func TestRescaleBoxToNative(t *testing.T) {
	// 1280x720 native is exactly 2x the reference space.
	box := defect.BBox{X1: 100, Y1: 50, X2: 200, Y2: 150}
	got := RescaleBox(box, 1280, 720)
	want := defect.BBox{X1: 200, Y1: 100, X2: 400, Y2: 300}
	if got != want {
		t.Errorf("rescaled = %+v, want %+v", got, want)
	}
}

func TestRescaleBoxClampsToFrame(t *testing.T) {
	box := defect.BBox{X1: -20, Y1: -10, X2: 700, Y2: 400}
	got := RescaleBox(box, 1280, 720)
	if got.X1 < 0 || got.Y1 < 0 || got.X2 > 1280 || got.Y2 > 720 {
		t.Errorf("rescaled box %+v escapes the frame", got)
	}
}

func TestCropRegion(t *testing.T) {
	frame := testFrame(100, 100, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	frame.Set(50, 50, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	region := CropRegion(frame, defect.BBox{X1: 40, Y1: 40, X2: 60, Y2: 60})
	if region == nil {
		t.Fatal("expected a cropped region")
	}
	if b := region.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Errorf("region size = %dx%d, want 20x20", b.Dx(), b.Dy())
	}
	if got := region.RGBAAt(10, 10); got.R != 1 || got.G != 2 || got.B != 3 {
		t.Errorf("marker pixel = %+v, want 1/2/3", got)
	}
}

func TestCropRegionDegenerate(t *testing.T) {
	frame := testFrame(10, 10, color.RGBA{A: 255})
	if r := CropRegion(frame, defect.BBox{X1: 5, Y1: 5, X2: 5, Y2: 8}); r != nil {
		t.Error("zero-width box must yield nil")
	}
	if r := CropRegion(nil, defect.BBox{X1: 0, Y1: 0, X2: 5, Y2: 5}); r != nil {
		t.Error("nil frame must yield nil")
	}
	if r := CropRegion(frame, defect.BBox{X1: 20, Y1: 20, X2: 30, Y2: 30}); r != nil {
		t.Error("box outside the frame must yield nil")
	}
}

func TestToReferenceSize(t *testing.T) {
	ref := ToReference(testFrame(1280, 720, color.RGBA{R: 50, G: 50, B: 50, A: 255}))
	if b := ref.Bounds(); b.Dx() != RefWidth || b.Dy() != RefHeight {
		t.Errorf("reference frame = %dx%d, want %dx%d", b.Dx(), b.Dy(), RefWidth, RefHeight)
	}
}
