package defect

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBucketRounding(t *testing.T) {
	agg := NewSectorAggregator(5)

	cases := []struct {
		angle float64
		want  int
	}{
		{0, 0},
		{2.4, 0},
		{2.5, 5},
		{7.4, 5},
		{91, 90},
		{92, 90},
		{93, 95},
		{123, 125},
		{359, 0},   // rounds to 360, wraps
		{-10, 350}, // negative angles normalise first
		{365, 5},
	}
	for _, c := range cases {
		agg.Ingest([]Measurement{{AngleDeg: c.angle, DistanceM: 1.0}})
		snap := agg.Snapshot()
		if _, ok := snap[c.want]; !ok {
			t.Errorf("angle %.1f: want bucket %d, got %v", c.angle, c.want, snap)
		}
		if len(snap) != 1 {
			t.Errorf("angle %.1f: expected a single bucket, got %v", c.angle, snap)
		}
	}
}

func TestIngestMinimumDistanceWins(t *testing.T) {
	agg := NewSectorAggregator(5)
	agg.Ingest([]Measurement{
		{AngleDeg: 90, DistanceM: 3.0},
		{AngleDeg: 91, DistanceM: 4.0},
		{AngleDeg: 92, DistanceM: 3.5},
	})

	d, ok := agg.GetSector(90)
	if !ok {
		t.Fatal("expected a distance for sector 90")
	}
	if d != 3.0 {
		t.Errorf("sector 90 = %v, want 3.0 (minimum of the bucket)", d)
	}
	if _, ok := agg.GetSector(98); ok {
		t.Error("sector for angle 98 should be empty this cycle")
	}

	want := SectorSnapshot{90: 3.0}
	if diff := cmp.Diff(want, agg.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestIngestReplacesPreviousCycle(t *testing.T) {
	agg := NewSectorAggregator(5)
	agg.Ingest([]Measurement{{AngleDeg: 10, DistanceM: 2.0}})
	agg.Ingest([]Measurement{{AngleDeg: 200, DistanceM: 4.0}})

	if _, ok := agg.GetSector(10); ok {
		t.Error("sector 10 should be absent after the next cycle replaced it")
	}
	if d, ok := agg.GetSector(200); !ok || d != 4.0 {
		t.Errorf("sector 200 = %v,%v, want 4.0,true", d, ok)
	}
}

func TestIngestDiscardsInvalidMeasurements(t *testing.T) {
	agg := NewSectorAggregator(5)
	agg.Ingest([]Measurement{
		{AngleDeg: 10, DistanceM: 0},
		{AngleDeg: 20, DistanceM: -1},
		{AngleDeg: math.NaN(), DistanceM: 2},
		{AngleDeg: math.Inf(1), DistanceM: 2},
	})
	if snap := agg.Snapshot(); len(snap) != 0 {
		t.Errorf("invalid measurements should be discarded, got %v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	agg := NewSectorAggregator(5)
	agg.Ingest([]Measurement{{AngleDeg: 45, DistanceM: 1.5}})

	snap := agg.Snapshot()
	snap[45] = 99.0

	if d, _ := agg.GetSector(45); d != 1.5 {
		t.Errorf("mutating a snapshot leaked into the aggregator: %v", d)
	}
}

func TestSectorWidthFallback(t *testing.T) {
	agg := NewSectorAggregator(0)
	if agg.SectorWidthDeg() != DefaultSectorWidthDeg {
		t.Errorf("width = %d, want default %d", agg.SectorWidthDeg(), DefaultSectorWidthDeg)
	}
}
