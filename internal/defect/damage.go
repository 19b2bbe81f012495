package defect

import (
	"image"

	"github.com/roadscan-data/surface.report/internal/imgproc"
)

// DamageType is a road-damage archetype.
type DamageType string

const (
	DamageCircularPothole  DamageType = "circular_pothole"
	DamageIrregularPothole DamageType = "irregular_pothole"
	DamageCrack            DamageType = "crack"
	DamageErosion          DamageType = "erosion"
	DamageCombined         DamageType = "combined"
	DamageUnknown          DamageType = "unknown"
)

// Secondary-type resolution: the runner-up becomes a secondary type (and
// the primary is relabelled combined) when it scores above
// secondaryScoreMin and trails the winner by less than combinedScoreGap.
const (
	secondaryScoreMin = 50.0
	combinedScoreGap  = 20.0
)

// DamageClassification is the resolved damage type of a defect.
type DamageClassification struct {
	Primary    DamageType             `json:"primary"`
	Confidence float64                `json:"confidence"` // 0-100, score of the winning archetype
	Secondary  *DamageType            `json:"secondary,omitempty"`
	Scores     map[DamageType]float64 `json:"scores"`
}

// DamageClassifier scores damage archetypes from geometry and texture
// features. The skeleton strategy is pluggable: crack scoring thins the
// defect mask to measure elongation, and a NopThinner falls back to the raw
// mask.
type DamageClassifier struct {
	Thinner imgproc.Thinner
}

// NewDamageClassifier creates a classifier with Zhang–Suen thinning.
func NewDamageClassifier() *DamageClassifier {
	return &DamageClassifier{Thinner: imgproc.ZhangSuenThinner{}}
}

// Classify resolves the primary (and optional secondary) damage type from
// the extracted features. Physical area criteria are skipped when phys is
// nil.
func (dc *DamageClassifier) Classify(mask *image.Gray, contour imgproc.Contour, geom GeometryFeatures, tex TextureFeatures, phys *PhysicalDimensions) DamageClassification {
	var areaM2 float64
	if phys != nil {
		areaM2 = phys.AreaM2
	}

	skeletonRatio := dc.skeletonRatio(mask)
	solidity := solidity(contour)

	scores := map[DamageType]float64{
		DamageCircularPothole:  scoreCircular(geom.Circularity, geom.Convexity, areaM2, tex.Homogeneity),
		DamageIrregularPothole: scoreIrregular(geom.Circularity, geom.Convexity, tex.Entropy, tex.EdgeDensity),
		DamageCrack:            scoreCrack(geom.AspectRatio, skeletonRatio, solidity),
		DamageErosion:          scoreErosion(areaM2, tex.Homogeneity, tex.EdgeDensity),
	}

	primary, secondary := DamageUnknown, DamageUnknown
	best, second := -1.0, -1.0
	for _, t := range []DamageType{DamageCircularPothole, DamageIrregularPothole, DamageCrack, DamageErosion} {
		s := scores[t]
		if s > best {
			second, secondary = best, primary
			best, primary = s, t
		} else if s > second {
			second, secondary = s, t
		}
	}

	result := DamageClassification{
		Primary:    primary,
		Confidence: best,
		Scores:     scores,
	}
	if second > secondaryScoreMin && best-second < combinedScoreGap {
		sec := secondary
		result.Secondary = &sec
		result.Primary = DamageCombined
	}
	return result
}

// skeletonRatio measures elongation as skeleton length over mask area.
// Cracks thin down to a long skeleton relative to their area.
func (dc *DamageClassifier) skeletonRatio(mask *image.Gray) float64 {
	if mask == nil {
		return 0
	}
	area := imgproc.MaskArea(mask)
	if area == 0 {
		return 0
	}
	thinner := dc.Thinner
	if thinner == nil {
		thinner = imgproc.NopThinner{}
	}
	skeleton := thinner.Thin(mask)
	return float64(imgproc.MaskArea(skeleton)) / float64(area)
}

// solidity is contour area over convex hull area.
func solidity(contour imgproc.Contour) float64 {
	hullArea := contour.ConvexHull().Area()
	if hullArea <= 0 {
		return 0
	}
	return contour.Area() / hullArea
}

// scoreCircular: high circularity, high convexity, moderate area,
// moderate-to-high homogeneity.
func scoreCircular(circularity, convexity, areaM2, homogeneity float64) float64 {
	var score float64
	switch {
	case circularity > 0.80:
		score += 40
	case circularity > 0.65:
		score += 30
	case circularity > 0.50:
		score += 15
	}
	switch {
	case convexity > 0.85:
		score += 30
	case convexity > 0.70:
		score += 20
	}
	if areaM2 >= 0.01 && areaM2 <= 0.3 {
		score += 15
	}
	switch {
	case homogeneity > 0.5:
		score += 15
	case homogeneity > 0.3:
		score += 10
	}
	return clamp(score, 0, 100)
}

// scoreIrregular: low circularity, low convexity, high entropy, dense
// edges.
func scoreIrregular(circularity, convexity, entropy, edgeDensity float64) float64 {
	var score float64
	switch {
	case circularity < 0.40:
		score += 30
	case circularity < 0.60:
		score += 20
	}
	switch {
	case convexity < 0.50:
		score += 30
	case convexity < 0.70:
		score += 20
	}
	switch {
	case entropy > 6.0:
		score += 25
	case entropy > 5.0:
		score += 15
	}
	switch {
	case edgeDensity > 30:
		score += 15
	case edgeDensity > 20:
		score += 10
	}
	return clamp(score, 0, 100)
}

// scoreCrack: high aspect ratio, elongated skeleton, high solidity.
func scoreCrack(aspectRatio, skeletonRatio, solidity float64) float64 {
	var score float64
	switch {
	case aspectRatio > 5.0:
		score += 40
	case aspectRatio > 3.0:
		score += 30
	case aspectRatio > 2.0:
		score += 15
	}
	switch {
	case skeletonRatio > 0.8:
		score += 35
	case skeletonRatio > 0.6:
		score += 25
	}
	switch {
	case solidity > 0.9:
		score += 25
	case solidity > 0.8:
		score += 15
	}
	return clamp(score, 0, 100)
}

// scoreErosion: small dispersed area, low homogeneity, diffuse edges.
func scoreErosion(areaM2, homogeneity, edgeDensity float64) float64 {
	var score float64
	switch {
	case areaM2 > 0 && areaM2 < 0.05:
		score += 40
	case areaM2 > 0 && areaM2 < 0.08:
		score += 25
	}
	switch {
	case homogeneity < 0.3:
		score += 30
	case homogeneity < 0.5:
		score += 20
	}
	switch {
	case edgeDensity < 15:
		score += 30
	case edgeDensity < 25:
		score += 20
	}
	return clamp(score, 0, 100)
}
