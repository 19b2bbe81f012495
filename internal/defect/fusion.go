package defect

import "math"

// DefaultCameraHFOVDeg is the horizontal field of view assumed for the
// camera when no calibrated value is supplied.
const DefaultCameraHFOVDeg = 70.0

// AngularFusion maps image bounding boxes onto the ranging sensor's angular
// frame and enriches detections with sensed distance and an approximate
// physical width.
//
// The width estimate is a small-angle arc-length approximation
// (distance × 2π × boxAngle/360), not a projective unprojection; its error
// grows with angle but stays bounded by the sector resolution.
type AngularFusion struct {
	sectors    *SectorAggregator
	frameWidth int
	hfovDeg    float64
}

// NewAngularFusion creates a fusion stage for frames of the given pixel
// width observed through the given horizontal field of view.
func NewAngularFusion(sectors *SectorAggregator, frameWidth int, hfovDeg float64) *AngularFusion {
	if hfovDeg <= 0 {
		hfovDeg = DefaultCameraHFOVDeg
	}
	if frameWidth < 1 {
		frameWidth = 1
	}
	return &AngularFusion{
		sectors:    sectors,
		frameWidth: frameWidth,
		hfovDeg:    hfovDeg,
	}
}

// Angle returns the angular offset of the box centre from the camera axis
// in degrees, negative to the left of centre.
func (f *AngularFusion) Angle(b BBox) float64 {
	rel := b.CenterX()/float64(f.frameWidth) - 0.5
	return rel * f.hfovDeg
}

// Fuse enriches a raw detector box with ranging data. When the sector for
// the box's angle holds no measurement this cycle, distance and width stay
// nil.
func (f *AngularFusion) Fuse(bbox BBox, confidence float64) Detection {
	det := Detection{BBox: bbox, Confidence: confidence}

	dist, ok := f.sectors.GetSector(f.Angle(bbox))
	if !ok {
		return det
	}
	det.DistanceM = &dist

	boxAng := float64(bbox.Width()) / float64(f.frameWidth) * f.hfovDeg
	width := math.Max(0, dist*2*math.Pi*(boxAng/360.0))
	det.WidthM = &width
	return det
}

// FuseAll fuses a full frame of detector boxes against the current sector
// snapshot.
func (f *AngularFusion) FuseAll(boxes []BBox, confidences []float64) []Detection {
	out := make([]Detection, 0, len(boxes))
	for i, b := range boxes {
		var conf float64
		if i < len(confidences) {
			conf = confidences[i]
		}
		out = append(out, f.Fuse(b, conf))
	}
	return out
}
