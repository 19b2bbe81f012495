package imgproc

import (
	"image"
	"image/color"
)

// AdaptiveThresholdInv segments dark foreground against locally varying
// illumination: a pixel becomes foreground (255) when its value falls below
// the Gaussian-weighted local mean of its block minus the constant c.
// blockSize must be odd.
func AdaptiveThresholdInv(gray *image.Gray, blockSize int, c float64) *image.Gray {
	local := GaussianBlur(gray, blockSize)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			t := float64(local.GrayAt(x, y).Y) - c
			if v <= t {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// OtsuThreshold computes the optimal global threshold for a set of
// intensity values by maximising between-class variance. Returns 0 for an
// empty input.
func OtsuThreshold(pixels []uint8) uint8 {
	if len(pixels) == 0 {
		return 0
	}
	hist := Histogram256(pixels)
	total := len(pixels)

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var maxVar float64
	var threshold uint8
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = uint8(i)
		}
	}
	return threshold
}
