package defect

import (
	"image"
	"math"

	"github.com/roadscan-data/surface.report/internal/imgproc"
)

// Segmentation parameters for contour extraction.
const (
	segmentBlurKernel    = 5
	segmentBlockSize     = 11
	segmentThresholdBias = 2.0
	minEllipseContourPts = 5
)

// GeometryFeatures are the contour-based shape descriptors of a defect
// region.
type GeometryFeatures struct {
	AreaPx         float64 `json:"area_px"`
	PerimeterPx    float64 `json:"perimeter_px"`
	Circularity    float64 `json:"circularity"`
	AspectRatio    float64 `json:"aspect_ratio"`
	Convexity      float64 `json:"convexity"`
	OrientationDeg float64 `json:"orientation_deg"`
	EllipseMajor   float64 `json:"ellipse_major"`
	EllipseMinor   float64 `json:"ellipse_minor"`
}

// ExtractContour segments the defect region with adaptive local
// thresholding and returns the largest external contour. When
// segmentation finds nothing it synthesises the full-rectangle contour, so
// the result is never degenerate.
func ExtractContour(gray *image.Gray) imgproc.Contour {
	blurred := imgproc.GaussianBlur(gray, segmentBlurKernel)
	bin := imgproc.AdaptiveThresholdInv(blurred, segmentBlockSize, segmentThresholdBias)
	contours := imgproc.FindExternalContours(bin)
	if c, ok := imgproc.LargestContour(contours); ok && c.Area() > 0 {
		return c
	}
	b := gray.Bounds()
	return imgproc.RectContour(b.Dx(), b.Dy())
}

// AnalyzeGeometry computes shape descriptors for a contour inside a bbox of
// widthPx × heightPx. Area and perimeter are floored at 1 so downstream
// ratios never divide by zero.
func AnalyzeGeometry(contour imgproc.Contour, mask *image.Gray, widthPx, heightPx int) GeometryFeatures {
	area := contour.Area()
	perimeter := contour.Perimeter()
	if area < 1 {
		area = 1
	}
	if perimeter < 1 {
		perimeter = 1
	}

	g := GeometryFeatures{
		AreaPx:      area,
		PerimeterPx: perimeter,
		Circularity: math.Min(1.0, 4*math.Pi*area/(perimeter*perimeter)),
		AspectRatio: float64(widthPx) / math.Max(1, float64(heightPx)),
	}

	hull := contour.ConvexHull()
	if hullArea := hull.Area(); hullArea > 0 {
		g.Convexity = area / math.Max(1, hullArea)
	}

	// Ellipse defaults to the bbox when the contour is too small to fit.
	g.EllipseMajor = float64(widthPx)
	g.EllipseMinor = float64(heightPx)
	if len(contour) >= minEllipseContourPts {
		if fit, ok := imgproc.FitEllipseMask(mask); ok {
			g.OrientationDeg = fit.AngleDeg
			g.EllipseMajor = math.Max(fit.MajorAxis, fit.MinorAxis)
			g.EllipseMinor = math.Min(fit.MajorAxis, fit.MinorAxis)
		}
	}
	return g
}
