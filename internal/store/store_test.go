package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadscan-data/surface.report/internal/defect"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleDefect(trackID int64) DefectRecord {
	dist := 2.5
	width := 0.4
	return DefectRecord{
		TrackID:    trackID,
		BBox:       defect.BBox{X1: 10, Y1: 20, X2: 110, Y2: 90},
		Confidence: 0.87,
		DistanceM:  &dist,
		WidthM:     &width,
		Analysis: defect.AnalysisResult{
			Geometry: defect.GeometryFeatures{Circularity: 0.8, AreaPx: 5000},
			Severity: defect.SeverityClassification{
				Severity: defect.SeverityMedium,
				Priority: defect.PriorityMedium,
			},
			Damage: defect.DamageClassification{
				Primary: defect.DamageCircularPothole,
				Scores:  map[defect.DamageType]float64{defect.DamageCircularPothole: 85},
			},
		},
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalDetections)
	assert.Equal(t, 0, stats.TotalDefects)
	assert.NotEmpty(t, db.SessionID)
}

func TestRecordDetectionRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	id, err := db.RecordDetection(ts, "photos/d1.jpg", []DefectRecord{sampleDefect(1), sampleDefect(2)})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := db.ByID(id)
	require.NoError(t, err)
	assert.Equal(t, ts, got.Timestamp.UTC())
	assert.Equal(t, "photos/d1.jpg", got.PhotoPath)
	assert.Equal(t, 2, got.NumDefects)
	assert.Equal(t, db.SessionID, got.SessionID)
	require.Len(t, got.Defects, 2)

	d := got.Defects[0]
	assert.Equal(t, int64(1), d.TrackID)
	assert.Equal(t, defect.BBox{X1: 10, Y1: 20, X2: 110, Y2: 90}, d.BBox)
	assert.InDelta(t, 0.87, d.Confidence, 1e-9)
	require.NotNil(t, d.DistanceM)
	assert.InDelta(t, 2.5, *d.DistanceM, 1e-9)
	assert.Equal(t, defect.SeverityMedium, d.Analysis.Severity.Severity)
	assert.Equal(t, defect.DamageCircularPothole, d.Analysis.Damage.Primary)
}

func TestRecordDetectionNilOptionals(t *testing.T) {
	db := openTestDB(t)
	d := sampleDefect(1)
	d.DistanceM = nil
	d.WidthM = nil

	id, err := db.RecordDetection(time.Now(), "", []DefectRecord{d})
	require.NoError(t, err)

	got, err := db.ByID(id)
	require.NoError(t, err)
	require.Len(t, got.Defects, 1)
	assert.Nil(t, got.Defects[0].DistanceM)
	assert.Nil(t, got.Defects[0].WidthM)
}

func TestRecentNewestFirst(t *testing.T) {
	db := openTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		_, err := db.RecordDetection(base.Add(time.Duration(i)*time.Second), "", []DefectRecord{sampleDefect(int64(i + 1))})
		require.NoError(t, err)
	}

	recent, err := db.Recent(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.True(t, recent[0].ID > recent[1].ID && recent[1].ID > recent[2].ID,
		"expected newest-first ordering, got %d/%d/%d", recent[0].ID, recent[1].ID, recent[2].ID)
	require.Len(t, recent[0].Defects, 1)
}

func TestByIDMissing(t *testing.T) {
	db := openTestDB(t)
	_, err := db.ByID(12345)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGetStatsCounts(t *testing.T) {
	db := openTestDB(t)
	_, err := db.RecordDetection(time.Now(), "", []DefectRecord{sampleDefect(1), sampleDefect(2)})
	require.NoError(t, err)
	_, err = db.RecordDetection(time.Now(), "", []DefectRecord{sampleDefect(3)})
	require.NoError(t, err)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDetections)
	assert.Equal(t, 3, stats.TotalDefects)
}

func TestClearHistoryEmptiesBothTables(t *testing.T) {
	db := openTestDB(t)
	_, err := db.RecordDetection(time.Now(), "p.jpg", []DefectRecord{sampleDefect(1), sampleDefect(2)})
	require.NoError(t, err)

	require.NoError(t, db.ClearHistory())

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalDetections)
	assert.Equal(t, 0, stats.TotalDefects)

	// The store stays writable after a wipe.
	_, err = db.RecordDetection(time.Now(), "", []DefectRecord{sampleDefect(3)})
	require.NoError(t, err)
}

func TestAllDefectsOldestFirst(t *testing.T) {
	db := openTestDB(t)
	for i := 1; i <= 3; i++ {
		_, err := db.RecordDetection(time.Now(), "", []DefectRecord{sampleDefect(int64(i))})
		require.NoError(t, err)
	}

	defects, err := db.AllDefects()
	require.NoError(t, err)
	require.Len(t, defects, 3)
	for i := 1; i < len(defects); i++ {
		assert.Greater(t, defects[i].ID, defects[i-1].ID)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	// A second MigrateUp on an up-to-date schema must be a no-op.
	require.NoError(t, db.MigrateUp())
}
