package defect

import (
	"math"
	"sync"
)

// DefaultSectorWidthDeg is the default angular bucket width for scan
// aggregation.
const DefaultSectorWidthDeg = 5

// Measurement is a single ranging sample from one sweep of the sensor.
type Measurement struct {
	AngleDeg  float64
	DistanceM float64
}

// SectorSnapshot maps an angular bucket (integer degrees, multiple of the
// sector width, in [0,360)) to the minimum distance observed in that bucket
// during one scan cycle. Snapshots are value copies; readers never observe
// partial updates.
type SectorSnapshot map[int]float64

// SectorAggregator buckets ranging measurements angularly and publishes a
// queryable distance-by-angle snapshot. Each Ingest call replaces the
// previous cycle wholesale so stale buckets read as absent rather than
// mixing with fresh data.
type SectorAggregator struct {
	sectorDeg int

	mu      sync.RWMutex
	current SectorSnapshot
}

// NewSectorAggregator creates an aggregator with the given bucket width in
// degrees. Widths < 1 fall back to DefaultSectorWidthDeg.
func NewSectorAggregator(sectorDeg int) *SectorAggregator {
	if sectorDeg < 1 {
		sectorDeg = DefaultSectorWidthDeg
	}
	return &SectorAggregator{
		sectorDeg: sectorDeg,
		current:   SectorSnapshot{},
	}
}

// SectorWidthDeg returns the configured bucket width.
func (a *SectorAggregator) SectorWidthDeg() int { return a.sectorDeg }

// bucket maps an angle to its sector key using round-to-nearest, wrapped to
// [0,360).
func (a *SectorAggregator) bucket(angleDeg float64) int {
	norm := math.Mod(angleDeg, 360)
	if norm < 0 {
		norm += 360
	}
	sector := int(math.Round(norm/float64(a.sectorDeg))) * a.sectorDeg
	return ((sector % 360) + 360) % 360
}

// Ingest aggregates one full scan cycle and publishes it as the new current
// snapshot. Within a bucket the minimum distance wins (closest obstacle
// dominates). Measurements with non-positive distance or non-finite angle
// are discarded.
func (a *SectorAggregator) Ingest(scan []Measurement) {
	agg := make(SectorSnapshot, len(scan))
	for _, m := range scan {
		if m.DistanceM <= 0 || math.IsNaN(m.AngleDeg) || math.IsInf(m.AngleDeg, 0) {
			continue
		}
		sector := a.bucket(m.AngleDeg)
		if prev, ok := agg[sector]; !ok || m.DistanceM < prev {
			agg[sector] = m.DistanceM
		}
	}

	a.mu.Lock()
	a.current = agg
	a.mu.Unlock()
}

// GetSector returns the distance registered for the bucket nearest to the
// given angle, or ok=false if that bucket received no measurement this
// cycle.
func (a *SectorAggregator) GetSector(angleDeg float64) (float64, bool) {
	sector := a.bucket(angleDeg)

	a.mu.RLock()
	defer a.mu.RUnlock()
	d, ok := a.current[sector]
	return d, ok
}

// Snapshot returns an immutable copy of the current cycle for safe
// concurrent reads.
func (a *SectorAggregator) Snapshot() SectorSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(SectorSnapshot, len(a.current))
	for k, v := range a.current {
		out[k] = v
	}
	return out
}
