package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/roadscan-data/surface.report/internal/defect"
)

// HTTPDetector sends frames to an external inference service and decodes
// its box list. The service accepts a JPEG POST and answers with
// [{"x1":..,"y1":..,"x2":..,"y2":..,"confidence":..}, ...] in the frame's
// own coordinates.
type HTTPDetector struct {
	URL    string
	Client *http.Client
}

// NewHTTPDetector creates a detector client with a bounded timeout.
func NewHTTPDetector(url string) *HTTPDetector {
	return &HTTPDetector{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type wireBox struct {
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float64 `json:"confidence"`
}

// Detect implements Detector.
func (d *HTTPDetector) Detect(frame image.Image) ([]BoxScore, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	resp, err := d.Client.Post(d.URL, "image/jpeg", &buf)
	if err != nil {
		return nil, fmt.Errorf("detector post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var raw []wireBox
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}
	out := make([]BoxScore, 0, len(raw))
	for _, b := range raw {
		if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
			continue
		}
		out = append(out, BoxScore{
			Box:        defect.BBox{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2},
			Confidence: b.Confidence,
		})
	}
	return out, nil
}
