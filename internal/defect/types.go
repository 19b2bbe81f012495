package defect

// BBox is an axis-aligned bounding box in pixel coordinates.
// Valid boxes satisfy X1 < X2 and Y1 < Y2.
type BBox struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the box width in pixels.
func (b BBox) Width() int { return b.X2 - b.X1 }

// Height returns the box height in pixels.
func (b BBox) Height() int { return b.Y2 - b.Y1 }

// Area returns the box area in pixels².
func (b BBox) Area() int { return b.Width() * b.Height() }

// CenterX returns the horizontal centre of the box.
func (b BBox) CenterX() float64 { return float64(b.X1+b.X2) / 2.0 }

// IoU computes the intersection-over-union of two axis-aligned boxes.
// Returns 0 for disjoint boxes and 1 for identical ones.
func IoU(a, b BBox) float64 {
	x1 := maxInt(a.X1, b.X1)
	y1 := maxInt(a.Y1, b.Y1)
	x2 := minInt(a.X2, b.X2)
	y2 := minInt(a.Y2, b.Y2)

	var intersection float64
	if x2 >= x1 && y2 >= y1 {
		intersection = float64((x2 - x1) * (y2 - y1))
	}

	union := float64(a.Area()) + float64(b.Area()) - intersection
	if union == 0 {
		return 0
	}
	return intersection / union
}

// Detection is a single fused observation of a candidate defect in one frame.
// DistanceM and WidthM are nil when no ranging data covered the detection
// angle during the current scan cycle.
type Detection struct {
	BBox       BBox     `json:"bbox"`
	Confidence float64  `json:"confidence"`
	DistanceM  *float64 `json:"distance_m,omitempty"`
	WidthM     *float64 `json:"width_m,omitempty"`
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
