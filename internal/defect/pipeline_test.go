package defect

import (
	"image"
	"image/color"
	"testing"
)

// potholeRegion renders a dark rough disk on light asphalt, the canonical
// analysable crop.
func potholeRegion(w, h, cx, cy, r int) *image.RGBA {
	region := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(190)
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				// Slight interior variation so segmentation has texture to
				// work with.
				v = uint8(25 + (x+y)%12)
			}
			region.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return region
}

func TestPipelineAnalyzeNilRegion(t *testing.T) {
	p := NewPipeline(70)
	res := p.Analyze(nil, nil)
	if res.Severity.Severity != SeverityUnknown {
		t.Errorf("nil region severity = %q, want unknown", res.Severity.Severity)
	}
	if res.Texture.Class != TextureUnknown {
		t.Errorf("nil region texture = %q, want unknown", res.Texture.Class)
	}
	if res.Damage.Primary != DamageUnknown {
		t.Errorf("nil region damage = %q, want unknown", res.Damage.Primary)
	}
	if !res.Severity.RepairNeeded {
		t.Error("degraded result must keep the conservative repair default")
	}
}

func TestPipelineAnalyzeEmptyRegion(t *testing.T) {
	p := NewPipeline(70)
	res := p.Analyze(image.NewRGBA(image.Rect(0, 0, 0, 0)), nil)
	if res.Severity.Severity != SeverityUnknown {
		t.Errorf("empty region severity = %q, want unknown", res.Severity.Severity)
	}
}

func TestPipelineAnalyzeWithDistance(t *testing.T) {
	p := NewPipeline(70)
	dist := 2.0
	res := p.Analyze(potholeRegion(96, 96, 48, 48, 30), &dist)

	if res.PhysicalDims == nil {
		t.Fatal("expected physical dimensions with a known distance")
	}
	if res.PhysicalDims.AreaM2 <= 0 {
		t.Errorf("physical area = %v, want positive", res.PhysicalDims.AreaM2)
	}
	if res.Severity.Severity == SeverityUnknown {
		t.Error("severity must be determined when physical area is available")
	}
	if res.PixelDims.WidthPx != 96 || res.PixelDims.HeightPx != 96 {
		t.Errorf("pixel dims = %+v, want 96x96", res.PixelDims)
	}
	if res.Geometry.Circularity <= 0.5 {
		t.Errorf("disk region circularity = %v, want well above 0.5", res.Geometry.Circularity)
	}
	if res.Depth.DepthCm < 0.5 || res.Depth.DepthCm > 15 {
		t.Errorf("depth %vcm outside the valid range", res.Depth.DepthCm)
	}
	if len(res.Damage.Scores) != 4 {
		t.Errorf("expected all four archetype scores, got %v", res.Damage.Scores)
	}
}

func TestPipelineAnalyzeWithoutDistance(t *testing.T) {
	p := NewPipeline(70)
	res := p.Analyze(potholeRegion(96, 96, 48, 48, 30), nil)

	if res.PhysicalDims != nil {
		t.Errorf("physical dims = %+v, want nil without ranging data", res.PhysicalDims)
	}
	if res.Severity.Severity != SeverityUnknown {
		t.Errorf("severity = %q, want unknown without physical area", res.Severity.Severity)
	}
	// The pixel-space analysis still runs in full.
	if res.Geometry.AreaPx <= 0 {
		t.Errorf("pixel area = %v, want positive", res.Geometry.AreaPx)
	}
	if res.Texture.Class == TextureUnknown {
		t.Error("texture analysis must still run without ranging data")
	}
}
