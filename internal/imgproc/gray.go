// Package imgproc provides the pixel-level primitives used by the defect
// analysis pipeline: grayscale conversion, blurring, gradients,
// thresholding, contour extraction and frequency analysis. All routines
// operate on stdlib image types so the package stays free of cgo.
package imgproc

import (
	"image"
	"image/color"
	"math"
)

// ToGray converts any image to 8-bit grayscale using the standard luma
// conversion.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// gaussianKernel builds a normalised 1-D Gaussian kernel of the given odd
// size. Sigma follows the OpenCV convention for sigma=0:
// 0.3*((ksize-1)*0.5 - 1) + 0.8.
func gaussianKernel(size int) []float64 {
	if size%2 == 0 {
		size++
	}
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	k := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianBlur applies a separable Gaussian blur with the given odd kernel
// size. Edges are handled by clamping.
func GaussianBlur(src *image.Gray, size int) *image.Gray {
	k := gaussianKernel(size)
	half := len(k) / 2
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	tmp := make([]float64, w*h)
	// Horizontal pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				sx := clampInt(x+i-half, 0, w-1)
				acc += kv * float64(src.GrayAt(b.Min.X+sx, b.Min.Y+y).Y)
			}
			tmp[y*w+x] = acc
		}
	}
	// Vertical pass.
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				sy := clampInt(y+i-half, 0, h-1)
				acc += kv * tmp[sy*w+x]
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(math.Round(clampFloat(acc, 0, 255)))})
		}
	}
	return dst
}

// MaskedPixels returns the grayscale values selected by a binary mask, or
// every pixel when mask is nil.
func MaskedPixels(gray, mask *image.Gray) []uint8 {
	b := gray.Bounds()
	out := make([]uint8, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask != nil && mask.GrayAt(x-b.Min.X, y-b.Min.Y).Y == 0 {
				continue
			}
			out = append(out, gray.GrayAt(x, y).Y)
		}
	}
	return out
}

// Histogram256 builds an intensity histogram with 256 bins.
func Histogram256(pixels []uint8) [256]int {
	var hist [256]int
	for _, p := range pixels {
		hist[p]++
	}
	return hist
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
