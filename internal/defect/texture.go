package defect

import (
	"image"
	"math"

	"github.com/roadscan-data/surface.report/internal/imgproc"
)

// TextureClass is the qualitative texture label of a defect surface.
type TextureClass string

const (
	TextureSmooth    TextureClass = "smooth"
	TextureRough     TextureClass = "rough"
	TextureIrregular TextureClass = "irregular"
	TextureComplex   TextureClass = "complex"
	TextureUnknown   TextureClass = "unknown"
)

// Texture classification thresholds.
const (
	smoothEntropyMax     = 4.0
	smoothHomogeneityMin = 0.7
	smoothEdgesMax       = 10.0
	roughEntropyMax      = 6.0
	roughHomogeneityMax  = 0.5
	roughEdgesMax        = 30.0
	irregularHomogMax    = 0.3
)

// glcmLevels is the intensity quantisation used for co-occurrence
// statistics.
const glcmLevels = 32

// ChannelStats holds per-channel colour statistics restricted to the defect
// mask.
type ChannelStats struct {
	RMean float64 `json:"r_mean"`
	GMean float64 `json:"g_mean"`
	BMean float64 `json:"b_mean"`
	RStd  float64 `json:"r_std"`
	GStd  float64 `json:"g_std"`
	BStd  float64 `json:"b_std"`
}

// HSVStats holds mean hue (degrees), saturation and value (0–255) over the
// mask.
type HSVStats struct {
	HMean float64 `json:"h_mean"`
	SMean float64 `json:"s_mean"`
	VMean float64 `json:"v_mean"`
}

// BasicTexture are the first-order intensity statistics of the region.
type BasicTexture struct {
	MeanIntensity float64 `json:"mean_intensity"`
	StdDev        float64 `json:"std_dev"`
	Contrast      float64 `json:"contrast"` // (max-min)/255
}

// TextureFeatures are the advanced texture descriptors of a defect region.
type TextureFeatures struct {
	Entropy      float64      `json:"entropy"`
	Energy       float64      `json:"energy"`
	Homogeneity  float64      `json:"homogeneity"`
	GLCMContrast float64      `json:"glcm_contrast"`
	Correlation  float64      `json:"correlation"`
	EdgeDensity  float64      `json:"edge_density"`
	DominantFreq float64      `json:"dominant_freq"`
	Roughness    float64      `json:"roughness"`
	RGB          ChannelStats `json:"rgb"`
	HSV          HSVStats     `json:"hsv"`
	Class        TextureClass `json:"class"`
}

// AnalyzeBasicTexture computes first-order intensity statistics over the
// whole region.
func AnalyzeBasicTexture(gray *image.Gray) BasicTexture {
	pixels := imgproc.MaskedPixels(gray, nil)
	if len(pixels) == 0 {
		return BasicTexture{}
	}
	var sum float64
	minV, maxV := pixels[0], pixels[0]
	for _, p := range pixels {
		sum += float64(p)
		if p < minV {
			minV = p
		}
		if p > maxV {
			maxV = p
		}
	}
	mean := sum / float64(len(pixels))
	var varSum float64
	for _, p := range pixels {
		d := float64(p) - mean
		varSum += d * d
	}
	return BasicTexture{
		MeanIntensity: mean,
		StdDev:        math.Sqrt(varSum / float64(len(pixels))),
		Contrast:      float64(maxV-minV) / 255.0,
	}
}

// AnalyzeTexture computes the advanced texture descriptors of a region,
// restricted to the mask when one is provided.
func AnalyzeTexture(region image.Image, gray, mask *image.Gray) TextureFeatures {
	if gray == nil || gray.Bounds().Dx() == 0 || gray.Bounds().Dy() == 0 {
		return TextureFeatures{Class: TextureUnknown}
	}

	tf := TextureFeatures{}
	tf.Entropy = shannonEntropy(imgproc.MaskedPixels(gray, mask))

	glcm := glcmFeatures(gray, mask)
	tf.Energy = glcm.energy
	tf.Homogeneity = glcm.homogeneity
	tf.GLCMContrast = glcm.contrast
	tf.Correlation = glcm.correlation

	tf.EdgeDensity = imgproc.EdgeDensity(gray, mask)
	tf.DominantFreq, tf.Roughness = imgproc.SpectralFeatures(gray)
	tf.RGB, tf.HSV = colourStats(region, mask)
	tf.Class = classifyTexture(tf.Entropy, tf.Homogeneity, tf.EdgeDensity)
	return tf
}

// shannonEntropy computes the Shannon entropy of the 256-bin intensity
// histogram, in bits (0–8).
func shannonEntropy(pixels []uint8) float64 {
	if len(pixels) == 0 {
		return 0
	}
	hist := imgproc.Histogram256(pixels)
	total := float64(len(pixels))
	var entropy float64
	for _, n := range hist {
		if n == 0 {
			continue
		}
		p := float64(n) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

type glcmResult struct {
	energy, homogeneity, contrast, correlation float64
}

// glcmOffsets are the four fixed co-occurrence directions (0°, 45°, 90°,
// 135°) at offset distance 1.
var glcmOffsets = [4][2]int{{1, 0}, {1, -1}, {0, -1}, {-1, -1}}

// glcmFeatures averages co-occurrence statistics over the four directions,
// with intensity quantised to glcmLevels.
func glcmFeatures(gray, mask *image.Gray) glcmResult {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()

	inMask := func(x, y int) bool {
		return mask == nil || mask.GrayAt(x, y).Y > 0
	}
	level := func(x, y int) int {
		return int(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y) * glcmLevels / 256
	}

	var acc glcmResult
	var directions int
	glcm := make([]float64, glcmLevels*glcmLevels)

	for _, off := range glcmOffsets {
		dx, dy := off[0], off[1]
		for i := range glcm {
			glcm[i] = 0
		}
		var total float64
		for y := 0; y < h; y++ {
			ny := y + dy
			if ny < 0 || ny >= h {
				continue
			}
			for x := 0; x < w; x++ {
				nx := x + dx
				if nx < 0 || nx >= w {
					continue
				}
				if !inMask(x, y) || !inMask(nx, ny) {
					continue
				}
				glcm[level(x, y)*glcmLevels+level(nx, ny)]++
				total++
			}
		}
		if total == 0 {
			directions++
			continue
		}
		for i := range glcm {
			glcm[i] /= total
		}

		var energy, homogeneity, contrast float64
		var muI, muJ float64
		for i := 0; i < glcmLevels; i++ {
			for j := 0; j < glcmLevels; j++ {
				p := glcm[i*glcmLevels+j]
				d := float64(i - j)
				energy += p * p
				homogeneity += p / (1 + d*d)
				contrast += p * d * d
				muI += float64(i) * p
				muJ += float64(j) * p
			}
		}
		var sigI, sigJ, cov float64
		for i := 0; i < glcmLevels; i++ {
			for j := 0; j < glcmLevels; j++ {
				p := glcm[i*glcmLevels+j]
				sigI += p * (float64(i) - muI) * (float64(i) - muI)
				sigJ += p * (float64(j) - muJ) * (float64(j) - muJ)
				cov += p * (float64(i) - muI) * (float64(j) - muJ)
			}
		}
		sigI = math.Sqrt(sigI)
		sigJ = math.Sqrt(sigJ)

		acc.energy += energy
		acc.homogeneity += homogeneity
		acc.contrast += contrast
		if sigI > 0 && sigJ > 0 {
			acc.correlation += cov / (sigI * sigJ)
		}
		directions++
	}

	if directions > 0 {
		n := float64(directions)
		acc.energy /= n
		acc.homogeneity /= n
		acc.contrast /= n
		acc.correlation /= n
	}
	return acc
}

// colourStats computes per-channel RGB mean/stddev and HSV means over the
// mask.
func colourStats(region image.Image, mask *image.Gray) (ChannelStats, HSVStats) {
	if region == nil {
		return ChannelStats{}, HSVStats{}
	}
	b := region.Bounds()

	var n float64
	var rSum, gSum, bSum float64
	var hSum, sSum, vSum float64
	type rgb struct{ r, g, b float64 }
	var samples []rgb

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask != nil && mask.GrayAt(x-b.Min.X, y-b.Min.Y).Y == 0 {
				continue
			}
			r16, g16, b16, _ := region.At(x, y).RGBA()
			r := float64(r16 >> 8)
			g := float64(g16 >> 8)
			bb := float64(b16 >> 8)
			rSum += r
			gSum += g
			bSum += bb
			hh, ss, vv := rgbToHSV(r, g, bb)
			hSum += hh
			sSum += ss
			vSum += vv
			samples = append(samples, rgb{r, g, bb})
			n++
		}
	}
	if n == 0 {
		return ChannelStats{}, HSVStats{}
	}

	cs := ChannelStats{RMean: rSum / n, GMean: gSum / n, BMean: bSum / n}
	var rVar, gVar, bVar float64
	for _, s := range samples {
		rVar += (s.r - cs.RMean) * (s.r - cs.RMean)
		gVar += (s.g - cs.GMean) * (s.g - cs.GMean)
		bVar += (s.b - cs.BMean) * (s.b - cs.BMean)
	}
	cs.RStd = math.Sqrt(rVar / n)
	cs.GStd = math.Sqrt(gVar / n)
	cs.BStd = math.Sqrt(bVar / n)

	return cs, HSVStats{HMean: hSum / n, SMean: sSum / n, VMean: vSum / n}
}

// rgbToHSV converts 0–255 RGB to hue in degrees and saturation/value on the
// 0–255 scale.
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	v = maxC
	delta := maxC - minC
	if maxC > 0 {
		s = delta / maxC * 255
	}
	if delta == 0 {
		return 0, s, v
	}
	switch maxC {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// classifyTexture applies the fixed threshold rules for the qualitative
// texture label.
func classifyTexture(entropy, homogeneity, edgeDensity float64) TextureClass {
	switch {
	case entropy < smoothEntropyMax && homogeneity > smoothHomogeneityMin && edgeDensity < smoothEdgesMax:
		return TextureSmooth
	case entropy >= roughEntropyMax && homogeneity < irregularHomogMax && edgeDensity >= roughEdgesMax:
		return TextureIrregular
	case entropy >= smoothEntropyMax && entropy < roughEntropyMax &&
		homogeneity < roughHomogeneityMax && edgeDensity < roughEdgesMax:
		return TextureRough
	default:
		return TextureComplex
	}
}
