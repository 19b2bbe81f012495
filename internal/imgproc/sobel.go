package imgproc

import (
	"image"
	"math"
)

// EdgeThreshold is the fixed gradient-magnitude cutoff used by EdgeMap. It
// sits midway inside the 50–150 hysteresis band a Canny detector would use
// for this imagery.
const EdgeThreshold = 100.0

// GradientMagnitude computes per-pixel Sobel gradient magnitude (3x3
// kernels, clamped borders).
func GradientMagnitude(gray *image.Gray) []float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	at := func(x, y int) float64 {
		return float64(gray.GrayAt(b.Min.X+clampInt(x, 0, w-1), b.Min.Y+clampInt(y, 0, h-1)).Y)
	}

	mag := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			mag[y*w+x] = math.Sqrt(gx*gx + gy*gy)
		}
	}
	return mag
}

// MeanGradient returns the mean gradient magnitude over the mask (or the
// full image for a nil mask).
func MeanGradient(gray, mask *image.Gray) float64 {
	b := gray.Bounds()
	w := b.Dx()
	mag := GradientMagnitude(gray)

	var sum float64
	var n int
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			if mask != nil && mask.GrayAt(x, y).Y == 0 {
				continue
			}
			sum += mag[y*w+x]
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// EdgeMap flags pixels whose gradient magnitude exceeds the fixed
// threshold. Returns a binary image (0/255).
func EdgeMap(gray *image.Gray) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	mag := GradientMagnitude(gray)
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mag[y*w+x] > EdgeThreshold {
				dst.Pix[dst.PixOffset(x, y)] = 255
			}
		}
	}
	return dst
}

// EdgeDensity returns the percentage (0–100) of mask pixels flagged as
// edges.
func EdgeDensity(gray, mask *image.Gray) float64 {
	edges := EdgeMap(gray)
	b := edges.Bounds()

	var edgePixels, totalPixels int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask != nil && mask.GrayAt(x, y).Y == 0 {
				continue
			}
			totalPixels++
			if edges.GrayAt(x, y).Y > 0 {
				edgePixels++
			}
		}
	}
	if totalPixels == 0 {
		return 0
	}
	return float64(edgePixels) / float64(totalPixels) * 100
}
