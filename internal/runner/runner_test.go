package runner

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roadscan-data/surface.report/internal/capture"
	"github.com/roadscan-data/surface.report/internal/defect"
	"github.com/roadscan-data/surface.report/internal/store"
)

// fakeCamera serves pothole-bearing frames and counts grabs.
type fakeCamera struct {
	grabs atomic.Int64
}

func (c *fakeCamera) Grab() (*image.RGBA, error) {
	c.grabs.Add(1)
	frame := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for y := 0; y < 720; y++ {
		for x := 0; x < 1280; x++ {
			v := uint8(190)
			dx, dy := x-640, y-360
			if dx*dx+dy*dy < 100*100 {
				v = 30
			}
			frame.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return frame, nil
}

// fixedDetector reports the same reference-space box every cycle.
type fixedDetector struct {
	calls atomic.Int64
}

func (d *fixedDetector) Detect(image.Image) ([]BoxScore, error) {
	d.calls.Add(1)
	return []BoxScore{{
		Box:        defect.BBox{X1: 270, Y1: 130, X2: 370, Y2: 230},
		Confidence: 0.9,
	}}, nil
}

func TestRunnerPersistsEachDefectOnce(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "runner_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	sectors := defect.NewSectorAggregator(5)
	sectors.Ingest([]defect.Measurement{{AngleDeg: 0, DistanceM: 2.0}})

	camera := &fakeCamera{}
	detector := &fixedDetector{}
	r := New(Config{
		HFOVDeg:         70,
		ScanInterval:    10 * time.Millisecond,
		AnalyzeInterval: 20 * time.Millisecond,
	}, sectors, nil, camera, detector, db)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	if detector.calls.Load() < 2 {
		t.Fatalf("detector ran %d times, want several cycles", detector.calls.Load())
	}

	// The same physical defect appears in every cycle; the tracker's
	// dedup contract means exactly one persisted detection.
	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalDetections != 1 || stats.TotalDefects != 1 {
		t.Errorf("stats = %+v, want exactly one detection with one defect", stats)
	}

	records, err := db.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	d := records[0].Defects[0]
	if d.DistanceM == nil || *d.DistanceM != 2.0 {
		t.Errorf("persisted distance = %v, want 2.0 from the on-axis sector", d.DistanceM)
	}
	if d.Analysis.Severity.Severity == defect.SeverityUnknown {
		t.Errorf("severity = %q, want a determined class with ranging data", d.Analysis.Severity.Severity)
	}
}

func TestRunnerDisplayReflectsTracks(t *testing.T) {
	sectors := defect.NewSectorAggregator(5)
	r := New(Config{HFOVDeg: 70, ScanInterval: 10 * time.Millisecond, AnalyzeInterval: 15 * time.Millisecond},
		sectors, nil, &fakeCamera{}, &fixedDetector{}, nil)

	if got := r.Display(); got.Status != "MONITORING" || got.Color != "green" {
		t.Fatalf("initial display = %+v, want monitoring/green", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	got := r.Display()
	if len(got.Boxes) != 1 {
		t.Fatalf("display boxes = %+v, want the tracked defect", got.Boxes)
	}
	if got.Color != "red" {
		t.Errorf("display colour = %q, want red while a defect is live", got.Color)
	}
	if r.TrackerStats().TotalTracks != 1 {
		t.Errorf("tracker stats = %+v, want one track", r.TrackerStats())
	}
}

func TestRunnerResetTracking(t *testing.T) {
	sectors := defect.NewSectorAggregator(5)
	r := New(Config{HFOVDeg: 70, ScanInterval: 10 * time.Millisecond, AnalyzeInterval: 15 * time.Millisecond},
		sectors, nil, &fakeCamera{}, &fixedDetector{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	if r.TrackerStats().TotalTracks != 1 {
		t.Fatalf("tracker stats = %+v, want one track before reset", r.TrackerStats())
	}

	r.ResetTracking()

	if got := r.TrackerStats().TotalTracks; got != 0 {
		t.Errorf("tracks after reset = %d, want 0", got)
	}
	got := r.Display()
	if len(got.Boxes) != 0 || got.Status != "MONITORING" || got.Color != "green" {
		t.Errorf("display after reset = %+v, want empty monitoring/green", got)
	}
}

func TestRunnerSkipsStaleFrames(t *testing.T) {
	sectors := defect.NewSectorAggregator(5)
	detector := &fixedDetector{}
	r := New(Config{HFOVDeg: 70, ScanInterval: time.Hour, AnalyzeInterval: 10 * time.Millisecond},
		sectors, nil, &fakeCamera{}, detector, nil)

	// Feed one frame directly; the capture loop never fires.
	frame, _ := (&fakeCamera{}).Grab()
	r.Buffer().Store(frame)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	// One buffered frame means one analysis regardless of tick count.
	if got := detector.calls.Load(); got != 1 {
		t.Errorf("detector ran %d times on a single frame, want 1", got)
	}
}

func TestRescaledBoxLandsOnDefect(t *testing.T) {
	// The detector box in 640x360 space must map onto the dark disk in
	// the native 1280x720 frame.
	box := defect.BBox{X1: 270, Y1: 130, X2: 370, Y2: 230}
	native := capture.RescaleBox(box, 1280, 720)
	want := defect.BBox{X1: 540, Y1: 260, X2: 740, Y2: 460}
	if native != want {
		t.Errorf("native box = %+v, want %+v", native, want)
	}
}
