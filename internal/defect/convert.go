package defect

import "math"

// PhysicalDimensions are region measurements converted to metres using the
// sensed distance. The block is nil as a whole when no distance is known.
type PhysicalDimensions struct {
	WidthM     float64 `json:"width_m"`
	HeightM    float64 `json:"height_m"`
	AreaM2     float64 `json:"area_m2"`
	PerimeterM float64 `json:"perimeter_m"`
}

// PixelDimensions are the raw region measurements in pixel units.
type PixelDimensions struct {
	WidthPx     int     `json:"width_px"`
	HeightPx    int     `json:"height_px"`
	AreaPx      float64 `json:"area_px"`
	PerimeterPx float64 `json:"perimeter_px"`
}

// ToPhysical converts pixel measurements to metres. The scale assumes the
// bbox spans the defect at the sensed distance under the camera's
// horizontal field of view: groundWidth = 2·d·tan(HFOV/2), metres-per-pixel
// = groundWidth / bboxWidthPx. Returns nil when distance is unknown or
// non-positive.
func ToPhysical(px PixelDimensions, distanceM *float64, hfovDeg float64) *PhysicalDimensions {
	if distanceM == nil || *distanceM <= 0 {
		return nil
	}
	if hfovDeg <= 0 {
		hfovDeg = DefaultCameraHFOVDeg
	}

	groundWidthM := 2 * *distanceM * math.Tan(hfovDeg*math.Pi/360)
	mpp := groundWidthM / math.Max(1, float64(px.WidthPx))

	return &PhysicalDimensions{
		WidthM:     float64(px.WidthPx) * mpp,
		HeightM:    float64(px.HeightPx) * mpp,
		AreaM2:     px.AreaPx * mpp * mpp,
		PerimeterM: px.PerimeterPx * mpp,
	}
}
