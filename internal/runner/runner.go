// Package runner wires the sensor, camera and analysis stages together and
// runs the three concurrent loops of the detection cycle.
package runner

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/roadscan-data/surface.report/internal/capture"
	"github.com/roadscan-data/surface.report/internal/defect"
	"github.com/roadscan-data/surface.report/internal/monitoring"
	"github.com/roadscan-data/surface.report/internal/store"
)

// BoxScore is one raw detector hit in reference coordinates.
type BoxScore struct {
	Box        defect.BBox
	Confidence float64
}

// Detector finds candidate defects on a reference-resolution frame.
type Detector interface {
	Detect(frame image.Image) ([]BoxScore, error)
}

// ScanRunner is anything that streams sensor data until cancelled. The
// rplidar driver satisfies it.
type ScanRunner interface {
	Run(ctx context.Context)
}

// DisplayState is the overlay snapshot the UI and status endpoint read.
type DisplayState struct {
	Boxes     []defect.BBox `json:"boxes"`
	Status    string        `json:"status"`
	Color     string        `json:"color"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Config collects the runner's construction parameters.
type Config struct {
	HFOVDeg         float64
	ScanInterval    time.Duration
	AnalyzeInterval time.Duration
	PhotoDir        string // empty disables frame snapshots
}

// Runner owns the detection cycle state.
type Runner struct {
	cfg      Config
	sectors  *defect.SectorAggregator
	fusion   *defect.AngularFusion
	tracker  *defect.Tracker
	pipeline *defect.Pipeline
	scanner  ScanRunner
	frames   capture.FrameSource
	detector Detector
	db       *store.DB

	buffer capture.Buffer

	mu      sync.Mutex
	display DisplayState
}

// New assembles a runner. db may be nil to run without persistence;
// scanner may be nil to run camera-only with no ranging data.
func New(cfg Config, sectors *defect.SectorAggregator, scanner ScanRunner, frames capture.FrameSource, detector Detector, db *store.DB) *Runner {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 100 * time.Millisecond
	}
	if cfg.AnalyzeInterval <= 0 {
		cfg.AnalyzeInterval = 200 * time.Millisecond
	}
	if cfg.HFOVDeg <= 0 {
		cfg.HFOVDeg = defect.DefaultCameraHFOVDeg
	}
	return &Runner{
		cfg:      cfg,
		sectors:  sectors,
		fusion:   defect.NewAngularFusion(sectors, capture.RefWidth, cfg.HFOVDeg),
		tracker:  defect.NewTracker(defect.DefaultTrackerConfig()),
		pipeline: defect.NewPipeline(cfg.HFOVDeg),
		scanner:  scanner,
		frames:   frames,
		detector: detector,
		db:       db,
		display: DisplayState{
			Status: "MONITORING",
			Color:  "green",
		},
	}
}

// SetTracker replaces the default tracker, for tuned configurations.
func (r *Runner) SetTracker(t *defect.Tracker) { r.tracker = t }

// Run starts the three loops and blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup

	if r.scanner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.scanner.Run(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.captureLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.analyzeLoop(ctx)
	}()

	wg.Wait()
}

// captureLoop polls the frame source and keeps the latest frame buffered.
func (r *Runner) captureLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		frame, err := r.frames.Grab()
		if err != nil {
			monitoring.Logf("[Capture] grab failed: %v", err)
			continue
		}
		r.buffer.Store(frame)
	}
}

// analyzeLoop runs detect, fuse, track, analyse and persist on the latest
// frame at a fixed cadence.
func (r *Runner) analyzeLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.AnalyzeInterval)
	defer ticker.Stop()
	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		frame, seq := r.buffer.Latest()
		if frame == nil || seq == lastSeq {
			continue
		}
		lastSeq = seq
		r.processFrame(frame)
	}
}

// processFrame is one detection cycle over a single frame.
func (r *Runner) processFrame(frame *image.RGBA) {
	ref := capture.ToReference(frame)
	hits, err := r.detector.Detect(ref)
	if err != nil {
		monitoring.Logf("[Runner] detector: %v", err)
		return
	}

	boxes := make([]defect.BBox, len(hits))
	confidences := make([]float64, len(hits))
	for i, h := range hits {
		boxes[i] = h.Box
		confidences[i] = h.Confidence
	}
	detections := r.fusion.FuseAll(boxes, confidences)

	now := time.Now()
	newTracks, updated := r.tracker.Update(detections, now)

	r.updateDisplay(now)

	if len(newTracks) == 0 {
		return
	}
	monitoring.Logf("[Runner] %d new defect(s), %d updated track(s)", len(newTracks), len(updated))

	records := make([]store.DefectRecord, 0, len(newTracks))
	nativeW := frame.Bounds().Dx()
	nativeH := frame.Bounds().Dy()
	for _, ev := range newTracks {
		nativeBox := capture.RescaleBox(ev.Detection.BBox, nativeW, nativeH)
		region := capture.CropRegion(frame, nativeBox)
		var analysis defect.AnalysisResult
		if region != nil {
			analysis = r.pipeline.Analyze(region, ev.Detection.DistanceM)
		}
		records = append(records, store.DefectRecord{
			TrackID:    ev.Track.ID,
			BBox:       ev.Detection.BBox,
			Confidence: ev.Detection.Confidence,
			DistanceM:  ev.Detection.DistanceM,
			WidthM:     ev.Detection.WidthM,
			Analysis:   analysis,
		})
	}

	if r.db == nil {
		return
	}
	photoPath := r.saveSnapshot(frame, now)
	id, err := r.db.RecordDetection(now, photoPath, records)
	if err != nil {
		monitoring.Logf("[Runner] persist: %v", err)
		return
	}
	monitoring.Logf("[Runner] detection %d saved with %d defect(s)", id, len(records))
}

// saveSnapshot writes the frame as a JPEG under PhotoDir and returns its
// path, or "" when snapshots are disabled or the write fails.
func (r *Runner) saveSnapshot(frame *image.RGBA, now time.Time) string {
	if r.cfg.PhotoDir == "" {
		return ""
	}
	if err := os.MkdirAll(r.cfg.PhotoDir, 0o755); err != nil {
		monitoring.Logf("[Runner] photo dir: %v", err)
		return ""
	}
	name := fmt.Sprintf("detection_%s.jpg", now.UTC().Format("20060102_150405.000"))
	path := filepath.Join(r.cfg.PhotoDir, name)
	if err := imaging.Save(frame, path, imaging.JPEGQuality(85)); err != nil {
		monitoring.Logf("[Runner] save snapshot: %v", err)
		return ""
	}
	return path
}

// updateDisplay refreshes the overlay snapshot from the active track set.
func (r *Runner) updateDisplay(now time.Time) {
	tracks := r.tracker.ActiveTracks()
	boxes := make([]defect.BBox, len(tracks))
	for i, tr := range tracks {
		boxes[i] = tr.BBox
	}
	status, color := "MONITORING", "green"
	if len(tracks) > 0 {
		status = fmt.Sprintf("ROAD DAMAGE DETECTED (%d)", len(tracks))
		color = "red"
	}
	r.mu.Lock()
	r.display = DisplayState{
		Boxes:     boxes,
		Status:    status,
		Color:     color,
		UpdatedAt: now,
	}
	r.mu.Unlock()
}

// Display returns the current overlay snapshot.
func (r *Runner) Display() DisplayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.display
	out.Boxes = append([]defect.BBox(nil), r.display.Boxes...)
	return out
}

// Buffer exposes the frame buffer for the capture loop's collaborators.
func (r *Runner) Buffer() *capture.Buffer { return &r.buffer }

// TrackerStats reports the live tracker counters.
func (r *Runner) TrackerStats() defect.TrackerStats {
	return r.tracker.Stats(time.Now())
}

// ResetTracking drops all tracked defects and clears the overlay. The next
// analyze cycle starts from a clean slate with fresh track IDs.
func (r *Runner) ResetTracking() {
	r.tracker.Reset()
	r.mu.Lock()
	r.display = DisplayState{
		Status:    "MONITORING",
		Color:     "green",
		UpdatedAt: time.Now(),
	}
	r.mu.Unlock()
}
