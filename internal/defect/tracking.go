package defect

import (
	"math"
	"sync"
	"time"
)

// TrackerConfig holds configuration parameters for the defect tracker.
type TrackerConfig struct {
	IoUThreshold   float64       // Minimum IoU for a detection to match a track
	MaxAge         time.Duration // Idle time before a track is expired
	SmoothingAlpha float64       // Weight of the fresh observation when smoothing the bbox
}

// DefaultTrackerConfig returns the default tracker configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		IoUThreshold:   0.3,
		MaxAge:         5 * time.Second,
		SmoothingAlpha: 0.7,
	}
}

// Track is a physical defect persistently identified across frames. Tracks
// are owned exclusively by the Tracker; callers receive them inside
// TrackEvents and must treat them as read-only outside the update cycle.
type Track struct {
	ID int64

	// Current bbox, exponentially smoothed over observations.
	BBox BBox

	FirstSeen time.Time
	LastSeen  time.Time

	// ObservationCount is the number of detections absorbed by this track.
	ObservationCount int

	// ConfidenceAvg is the running average confidence over all observations.
	ConfidenceAvg float64

	// LastDetection is the raw detection that most recently updated the
	// track.
	LastDetection Detection
}

// TrackEvent pairs a track with the detection that triggered it this cycle.
type TrackEvent struct {
	Track     *Track
	Detection Detection
}

// TrackerStats summarises tracker state for status reporting.
type TrackerStats struct {
	TotalTracks     int     `json:"total_tracks"`
	ActiveTracks    int     `json:"active_tracks"`
	AvgObservations float64 `json:"avg_observations"`
	NextID          int64   `json:"next_id"`
}

// Tracker associates per-cycle detections with prior tracks via IoU and
// maintains track lifecycle. Its deduplication contract: a physical defect
// that keeps producing overlapping boxes within MaxAge of gaps appears in
// the New partition exactly once over its lifetime and in Updated on every
// later observation.
//
// Update is a non-reentrant critical section; the mutex serialises callers
// but the tracker expects a single logical consumer per cycle.
type Tracker struct {
	config TrackerConfig

	mu     sync.Mutex
	tracks []*Track
	nextID int64
}

// NewTracker creates a tracker with the specified configuration.
func NewTracker(config TrackerConfig) *Tracker {
	if config.IoUThreshold <= 0 {
		config.IoUThreshold = 0.3
	}
	if config.MaxAge <= 0 {
		config.MaxAge = 5 * time.Second
	}
	if config.SmoothingAlpha <= 0 || config.SmoothingAlpha > 1 {
		config.SmoothingAlpha = 0.7
	}
	return &Tracker{config: config, nextID: 1}
}

// Update processes one cycle of fused detections and returns the disjoint
// new/updated partitions. Each detection is consumed by exactly one
// partition; each track matches at most one detection per cycle.
func (t *Tracker) Update(detections []Detection, now time.Time) (newTracks, updated []TrackEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Step 1: expire tracks that left the field of view.
	t.expire(now)

	if len(detections) == 0 {
		return nil, nil
	}

	// Step 2–4: greedy association. Once a track is matched it leaves the
	// candidate pool, so one track can never absorb two detections in a
	// cycle.
	matched := make(map[int64]bool)

	for _, det := range detections {
		best := t.findMatch(det.BBox, matched)
		if best == nil {
			track := t.createTrack(det, now)
			newTracks = append(newTracks, TrackEvent{Track: track, Detection: det})
			continue
		}
		matched[best.ID] = true
		t.updateTrack(best, det, now)
		updated = append(updated, TrackEvent{Track: best, Detection: det})
	}

	return newTracks, updated
}

// findMatch returns the unconsumed track with the highest IoU above the
// threshold, or nil. Ties break first-found.
func (t *Tracker) findMatch(bbox BBox, consumed map[int64]bool) *Track {
	var best *Track
	bestIoU := t.config.IoUThreshold

	for _, track := range t.tracks {
		if consumed[track.ID] {
			continue
		}
		if iou := IoU(bbox, track.BBox); iou > bestIoU {
			bestIoU = iou
			best = track
		}
	}
	return best
}

// createTrack registers a new track for a first-time detection. Track IDs
// are sequential and never reused.
func (t *Tracker) createTrack(det Detection, now time.Time) *Track {
	track := &Track{
		ID:               t.nextID,
		BBox:             det.BBox,
		FirstSeen:        now,
		LastSeen:         now,
		ObservationCount: 1,
		ConfidenceAvg:    det.Confidence,
		LastDetection:    det,
	}
	t.nextID++
	t.tracks = append(t.tracks, track)
	return track
}

// updateTrack absorbs a re-observation into an existing track.
func (t *Tracker) updateTrack(track *Track, det Detection, now time.Time) {
	track.BBox = t.smoothBBox(track.BBox, det.BBox)
	track.LastSeen = now
	track.ObservationCount++
	n := float64(track.ObservationCount)
	track.ConfidenceAvg = (track.ConfidenceAvg*(n-1) + det.Confidence) / n
	track.LastDetection = det
}

// smoothBBox blends the fresh observation into the previous bbox per
// coordinate. Rounding keeps coordinates integral; x1<x2 and y1<y2 are
// preserved because both inputs satisfy them and the blend is monotone.
func (t *Tracker) smoothBBox(prev, fresh BBox) BBox {
	alpha := t.config.SmoothingAlpha
	blend := func(old, new int) int {
		return int(math.Round(alpha*float64(new) + (1-alpha)*float64(old)))
	}
	return BBox{
		X1: blend(prev.X1, fresh.X1),
		Y1: blend(prev.Y1, fresh.Y1),
		X2: blend(prev.X2, fresh.X2),
		Y2: blend(prev.Y2, fresh.Y2),
	}
}

// expire removes every track idle for longer than MaxAge. Removal is a
// normal lifecycle transition, not an error.
func (t *Tracker) expire(now time.Time) {
	kept := t.tracks[:0]
	for _, track := range t.tracks {
		if now.Sub(track.LastSeen) <= t.config.MaxAge {
			kept = append(kept, track)
		}
	}
	// Zero the tail so expired tracks can be collected.
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = kept
}

// ActiveTracks returns a copy of the currently active tracks for overlay
// rendering.
func (t *Tracker) ActiveTracks() []Track {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Track, 0, len(t.tracks))
	for _, track := range t.tracks {
		out = append(out, *track)
	}
	return out
}

// Stats reports aggregate tracker state.
func (t *Tracker) Stats(now time.Time) TrackerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := TrackerStats{TotalTracks: len(t.tracks), NextID: t.nextID}
	if len(t.tracks) == 0 {
		return stats
	}
	var countSum int
	for _, track := range t.tracks {
		countSum += track.ObservationCount
		if now.Sub(track.LastSeen) <= time.Second {
			stats.ActiveTracks++
		}
	}
	stats.AvgObservations = float64(countSum) / float64(len(t.tracks))
	return stats
}

// Reset removes all tracks and restarts ID assignment. The clear-history
// endpoint calls this alongside the store wipe.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = nil
	t.nextID = 1
}
