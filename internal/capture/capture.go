// Package capture holds the most recent camera frame and maps detector
// output from the detector's reference resolution back onto it.
package capture

import (
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/roadscan-data/surface.report/internal/defect"
)

// Reference resolution the external detector runs at. Boxes it reports are
// in this coordinate space regardless of the camera's native resolution.
const (
	RefWidth  = 640
	RefHeight = 360
)

// FrameSource produces camera frames. Implementations return nil when no
// frame is available yet.
type FrameSource interface {
	Grab() (*image.RGBA, error)
}

// Buffer keeps the latest frame from a source. Readers get a copy so the
// analysis loop never races the capture loop.
type Buffer struct {
	mu    sync.Mutex
	frame *image.RGBA
	seq   uint64
}

// Store replaces the buffered frame.
func (b *Buffer) Store(frame *image.RGBA) {
	if frame == nil {
		return
	}
	b.mu.Lock()
	b.frame = frame
	b.seq++
	b.mu.Unlock()
}

// Latest returns a copy of the buffered frame and its sequence number, or
// nil when nothing has been captured yet.
func (b *Buffer) Latest() (*image.RGBA, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return nil, 0
	}
	out := image.NewRGBA(b.frame.Bounds())
	copy(out.Pix, b.frame.Pix)
	return out, b.seq
}

// ToReference scales a frame down to the detector's reference resolution.
func ToReference(frame image.Image) *image.NRGBA {
	return imaging.Resize(frame, RefWidth, RefHeight, imaging.Linear)
}

// RescaleBox maps a detection box from reference coordinates onto a frame
// of the given native size, clamping to the frame bounds.
func RescaleBox(box defect.BBox, nativeW, nativeH int) defect.BBox {
	sx := float64(nativeW) / float64(RefWidth)
	sy := float64(nativeH) / float64(RefHeight)
	out := defect.BBox{
		X1: int(float64(box.X1) * sx),
		Y1: int(float64(box.Y1) * sy),
		X2: int(float64(box.X2) * sx),
		Y2: int(float64(box.Y2) * sy),
	}
	if out.X1 < 0 {
		out.X1 = 0
	}
	if out.Y1 < 0 {
		out.Y1 = 0
	}
	if out.X2 > nativeW {
		out.X2 = nativeW
	}
	if out.Y2 > nativeH {
		out.Y2 = nativeH
	}
	return out
}

// CropRegion extracts the defect region from a frame. Returns nil when the
// box is degenerate.
func CropRegion(frame *image.RGBA, box defect.BBox) *image.RGBA {
	if frame == nil || box.Width() <= 0 || box.Height() <= 0 {
		return nil
	}
	r := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(frame.Bounds())
	if r.Empty() {
		return nil
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(out, image.Point{}, frame, r, draw.Src, nil)
	return out
}
