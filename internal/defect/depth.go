package defect

import (
	"image"
	"math"

	"github.com/roadscan-data/surface.report/internal/imgproc"
)

// DepthClass is the qualitative depth label of a defect.
type DepthClass string

const (
	DepthShallow DepthClass = "shallow"
	DepthMedium  DepthClass = "medium"
	DepthDeep    DepthClass = "deep"
)

// Depth estimation parameters. The gradient thresholds classify depth
// independently of the combined score.
const (
	depthShallowGradientMax = 15.0
	depthMediumGradientMax  = 35.0

	depthWeightGradient  = 0.4
	depthWeightShadow    = 0.3
	depthWeightIntensity = 0.3

	// Distance-confidence decay: full scale up to nearRange, linear decay
	// to farFactor at farRange, flat beyond.
	depthNearRangeM = 2.0
	depthFarRangeM  = 5.0
	depthFarFactor  = 0.7

	depthMinCm = 0.5
	depthMaxCm = 15.0

	// DefaultAssumedDistanceM is used when no ranging data is available.
	DefaultAssumedDistanceM = 2.0

	borderBandHalfWidth = 2
)

// DepthFeatures are the monocular depth cues of a defect region combined
// into a score and a centimetre estimate.
type DepthFeatures struct {
	MeanGradient   float64    `json:"mean_gradient"`
	ShadowFraction float64    `json:"shadow_fraction"` // % of masked pixels below the Otsu threshold
	IntensityDiff  float64    `json:"intensity_diff"`  // |border mean - interior mean|
	Score          float64    `json:"score"`           // 0-100
	DepthCm        float64    `json:"depth_cm"`
	Class          DepthClass `json:"class"`
}

// EstimateDepth derives a depth estimate for the region inside the contour,
// corrected by the sensed distance. A nil distance falls back to
// DefaultAssumedDistanceM.
func EstimateDepth(gray *image.Gray, distanceM *float64, contour imgproc.Contour) DepthFeatures {
	if gray == nil || gray.Bounds().Dx() == 0 || gray.Bounds().Dy() == 0 {
		return DepthFeatures{Class: DepthShallow, DepthCm: 0}
	}
	dist := DefaultAssumedDistanceM
	if distanceM != nil && *distanceM > 0 {
		dist = *distanceM
	}

	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := imgproc.FillContour(w, h, contour)

	df := DepthFeatures{
		MeanGradient:   imgproc.MeanGradient(gray, mask),
		ShadowFraction: shadowFraction(gray, mask),
		IntensityDiff:  borderCenterDiff(gray, contour, mask),
	}
	df.Score = depthScore(df.MeanGradient, df.ShadowFraction, df.IntensityDiff)
	df.DepthCm = depthCentimetres(df.Score, dist)
	df.Class = classifyDepth(df.MeanGradient)
	return df
}

// shadowFraction returns the percentage of masked pixels darker than the
// automatically chosen (Otsu) intensity threshold.
func shadowFraction(gray, mask *image.Gray) float64 {
	pixels := imgproc.MaskedPixels(gray, mask)
	if len(pixels) == 0 {
		return 0
	}
	threshold := imgproc.OtsuThreshold(pixels)
	var dark int
	for _, p := range pixels {
		if p < threshold {
			dark++
		}
	}
	return float64(dark) / float64(len(pixels)) * 100
}

// borderCenterDiff measures the absolute intensity difference between a
// thin band along the contour and the interior it encloses. Deep defects
// show a darker interior.
func borderCenterDiff(gray *image.Gray, contour imgproc.Contour, full *image.Gray) float64 {
	b := gray.Bounds()
	border := imgproc.BorderMask(b.Dx(), b.Dy(), contour, borderBandHalfWidth)
	interior := imgproc.SubtractMask(full, border)

	borderPixels := imgproc.MaskedPixels(gray, border)
	interiorPixels := imgproc.MaskedPixels(gray, interior)
	if len(borderPixels) == 0 || len(interiorPixels) == 0 {
		return 0
	}
	return math.Abs(meanU8(borderPixels) - meanU8(interiorPixels))
}

func meanU8(pixels []uint8) float64 {
	var sum float64
	for _, p := range pixels {
		sum += float64(p)
	}
	return sum / float64(len(pixels))
}

// depthScore combines the three cues into a 0–100 score. Gradient and
// intensity-difference are normalised from the 0–255 range first.
func depthScore(gradient, shadow, intensityDiff float64) float64 {
	score := depthWeightGradient*(gradient/255.0*100) +
		depthWeightShadow*shadow +
		depthWeightIntensity*(intensityDiff/255.0*100)
	return clamp(score, 0, 100)
}

// depthCentimetres converts the score into centimetres and applies the
// distance-confidence decay.
func depthCentimetres(score, distanceM float64) float64 {
	base := 0.5 + (score/100.0)*9.5

	factor := 1.0
	switch {
	case distanceM <= depthNearRangeM:
		factor = 1.0
	case distanceM <= depthFarRangeM:
		factor = 1.0 - (distanceM-depthNearRangeM)/(depthFarRangeM-depthNearRangeM)*(1.0-depthFarFactor)
	default:
		factor = depthFarFactor
	}
	return clamp(base*factor, depthMinCm, depthMaxCm)
}

func classifyDepth(gradient float64) DepthClass {
	switch {
	case gradient < depthShallowGradientMax:
		return DepthShallow
	case gradient < depthMediumGradientMax:
		return DepthMedium
	default:
		return DepthDeep
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
