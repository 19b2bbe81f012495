package capture

import (
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// HTTPSource grabs frames from a snapshot-style camera endpoint that
// returns one encoded image per GET.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource creates a snapshot camera client with a bounded timeout.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Grab fetches and decodes one frame.
func (s *HTTPSource) Grab() (*image.RGBA, error) {
	resp, err := s.Client.Get(s.URL)
	if err != nil {
		return nil, fmt.Errorf("camera get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}
	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(out, image.Point{}, img, b, draw.Src, nil)
	return out
}
