package defect

import (
	"image"

	"github.com/roadscan-data/surface.report/internal/imgproc"
)

// AnalysisResult is the feature-rich record produced once per track the
// first time it is seen. PhysicalDims is nil as a block when no ranging
// data covered the defect.
type AnalysisResult struct {
	PixelDims    PixelDimensions        `json:"pixel_dims"`
	PhysicalDims *PhysicalDimensions    `json:"physical_dims,omitempty"`
	Geometry     GeometryFeatures       `json:"geometry"`
	BasicTexture BasicTexture           `json:"basic_texture"`
	Texture      TextureFeatures        `json:"texture"`
	Depth        DepthFeatures          `json:"depth"`
	Damage       DamageClassification   `json:"damage"`
	Severity     SeverityClassification `json:"severity"`
}

// Pipeline orchestrates geometry, texture, depth, damage and severity
// analysis for newly tracked defects. Analyze never fails: degenerate
// regions yield the canonical zero/unknown result so the detection loop
// runs indefinitely.
type Pipeline struct {
	hfovDeg    float64
	classifier *DamageClassifier
}

// NewPipeline creates an analysis pipeline for a camera with the given
// horizontal field of view.
func NewPipeline(hfovDeg float64) *Pipeline {
	if hfovDeg <= 0 {
		hfovDeg = DefaultCameraHFOVDeg
	}
	return &Pipeline{
		hfovDeg:    hfovDeg,
		classifier: NewDamageClassifier(),
	}
}

// Analyze runs the full analysis chain on the cropped region of a defect.
// distanceM is the sensed distance for the defect's angle, or nil.
func (p *Pipeline) Analyze(region image.Image, distanceM *float64) AnalysisResult {
	if region == nil {
		return emptyResult()
	}
	b := region.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return emptyResult()
	}

	gray := imgproc.ToGray(region)
	contour := ExtractContour(gray)
	mask := imgproc.FillContour(w, h, contour)

	geom := AnalyzeGeometry(contour, mask, w, h)

	px := PixelDimensions{
		WidthPx:     w,
		HeightPx:    h,
		AreaPx:      geom.AreaPx,
		PerimeterPx: geom.PerimeterPx,
	}
	phys := ToPhysical(px, distanceM, p.hfovDeg)

	res := AnalysisResult{
		PixelDims:    px,
		PhysicalDims: phys,
		Geometry:     geom,
		BasicTexture: AnalyzeBasicTexture(gray),
		Texture:      AnalyzeTexture(region, gray, mask),
		Depth:        EstimateDepth(gray, distanceM, contour),
	}
	res.Damage = p.classifier.Classify(mask, contour, geom, res.Texture, phys)
	res.Severity = ClassifySeverity(phys, geom.Circularity)
	return res
}

// emptyResult is the canonical degraded result for empty or degenerate
// regions.
func emptyResult() AnalysisResult {
	return AnalysisResult{
		Texture: TextureFeatures{Class: TextureUnknown},
		Depth:   DepthFeatures{Class: DepthShallow},
		Damage: DamageClassification{
			Primary: DamageUnknown,
			Scores:  map[DamageType]float64{},
		},
		Severity: SeverityClassification{
			Severity:     SeverityUnknown,
			Priority:     PriorityMedium,
			RepairNeeded: true,
		},
	}
}
