package imgproc

import (
	"image"
	"math"
)

// EllipseFit describes the equivalent ellipse of a region: the ellipse with
// the same second-order central moments as the filled contour.
type EllipseFit struct {
	CenterX, CenterY float64
	MajorAxis        float64 // Full length of the major axis (pixels)
	MinorAxis        float64 // Full length of the minor axis (pixels)
	AngleDeg         float64 // Orientation of the major axis, [0,180)
}

// FitEllipseMask derives the equivalent ellipse from a binary mask.
// Requires at least 5 foreground pixels; returns ok=false otherwise,
// mirroring the minimum point count of a direct ellipse fit.
func FitEllipseMask(mask *image.Gray) (EllipseFit, bool) {
	if mask == nil {
		return EllipseFit{}, false
	}
	b := mask.Bounds()
	var m00, m10, m01 float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y == 0 {
				continue
			}
			m00++
			m10 += float64(x)
			m01 += float64(y)
		}
	}
	if m00 < 5 {
		return EllipseFit{}, false
	}
	cx := m10 / m00
	cy := m01 / m00

	var mu20, mu02, mu11 float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.GrayAt(x, y).Y == 0 {
				continue
			}
			dx := float64(x) - cx
			dy := float64(y) - cy
			mu20 += dx * dx
			mu02 += dy * dy
			mu11 += dx * dy
		}
	}
	mu20 /= m00
	mu02 /= m00
	mu11 /= m00

	// Eigenvalues of the covariance matrix give the axis half-lengths.
	common := math.Sqrt(4*mu11*mu11 + (mu20-mu02)*(mu20-mu02))
	l1 := (mu20 + mu02 + common) / 2
	l2 := (mu20 + mu02 - common) / 2
	if l2 < 0 {
		l2 = 0
	}

	angle := 0.5 * math.Atan2(2*mu11, mu20-mu02) * 180 / math.Pi
	if angle < 0 {
		angle += 180
	}

	return EllipseFit{
		CenterX:   cx,
		CenterY:   cy,
		MajorAxis: 4 * math.Sqrt(l1),
		MinorAxis: 4 * math.Sqrt(l2),
		AngleDeg:  angle,
	}, true
}
