package imgproc

import (
	"image"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrumMagnitude computes the centred 2-D Fourier magnitude of a
// grayscale image by row–column decomposition. The result is laid out
// row-major with the DC component shifted to the centre.
func SpectrumMagnitude(gray *image.Gray) ([]float64, int, int) {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, 0, 0
	}

	data := make([][]complex128, h)
	for y := 0; y < h; y++ {
		data[y] = make([]complex128, w)
		for x := 0; x < w; x++ {
			data[y][x] = complex(float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y), 0)
		}
	}

	rowFFT := fourier.NewCmplxFFT(w)
	for y := 0; y < h; y++ {
		rowFFT.Coefficients(data[y], data[y])
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = data[y][x]
		}
		colFFT.Coefficients(col, col)
		for y := 0; y < h; y++ {
			data[y][x] = col[y]
		}
	}

	// Shift DC to the centre and take magnitudes.
	mag := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sy := (y + h/2) % h
			sx := (x + w/2) % w
			mag[sy*w+sx] = cmplxAbs(data[y][x])
		}
	}
	return mag, w, h
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// SpectralFeatures derives frequency-domain texture descriptors:
// dominantFreq is the radial distance of the peak magnitude from the
// spectrum centre after suppressing the DC region; roughness is the
// percentage (0–100) of spectral energy outside a central radius of
// min(h,w)/4.
func SpectralFeatures(gray *image.Gray) (dominantFreq, roughness float64) {
	mag, w, h := SpectrumMagnitude(gray)
	if len(mag) == 0 {
		return 0, 0
	}
	cy, cx := h/2, w/2

	// Suppress the DC neighbourhood.
	for y := cy - 2; y < cy+2; y++ {
		for x := cx - 2; x < cx+2; x++ {
			if y >= 0 && x >= 0 && y < h && x < w {
				mag[y*w+x] = 0
			}
		}
	}

	var maxVal float64
	maxY, maxX := cy, cx
	var total, outer float64
	radius := float64(minDim(w, h) / 4)
	r2 := radius * radius
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := mag[y*w+x]
			total += v
			dy := float64(y - cy)
			dx := float64(x - cx)
			if dy*dy+dx*dx > r2 {
				outer += v
			}
			if v > maxVal {
				maxVal = v
				maxY, maxX = y, x
			}
		}
	}

	dominantFreq = math.Hypot(float64(maxY-cy), float64(maxX-cx))
	if total > 0 {
		roughness = outer / total * 100
	}
	return dominantFreq, roughness
}

func minDim(a, b int) int {
	if a < b {
		return a
	}
	return b
}
