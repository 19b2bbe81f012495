// Package store persists detection events and their analysed defects to
// sqlite. It exposes the append/query surface the detection cycle and the
// HTTP API consume, plus a history wipe for the admin endpoint; schema
// changes go through embedded migrations.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/roadscan-data/surface.report/internal/defect"
)

// DB wraps the sqlite handle with the detection persistence surface.
type DB struct {
	*sql.DB

	// SessionID identifies one process run; every detection row carries it
	// so survey drives can be separated afterwards.
	SessionID string
}

// Open opens (creating if needed) the sqlite database at path and applies
// pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db := &DB{DB: sqlDB, SessionID: uuid.NewString()}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// DefectRecord is one analysed defect belonging to a detection event.
type DefectRecord struct {
	ID          int64                 `json:"id"`
	DetectionID int64                 `json:"detection_id"`
	TrackID     int64                 `json:"track_id"`
	BBox        defect.BBox           `json:"bbox"`
	Confidence  float64               `json:"confidence"`
	DistanceM   *float64              `json:"distance_m,omitempty"`
	WidthM      *float64              `json:"width_m,omitempty"`
	Analysis    defect.AnalysisResult `json:"analysis"`
}

// DetectionRecord is one save event: a frame timestamp plus the new defects
// it contributed.
type DetectionRecord struct {
	ID         int64          `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	PhotoPath  string         `json:"photo_path"`
	NumDefects int            `json:"num_defects"`
	SessionID  string         `json:"session_id"`
	Defects    []DefectRecord `json:"defects"`
}

// Stats are the aggregate persistence counters.
type Stats struct {
	TotalDetections int `json:"total_detections"`
	TotalDefects    int `json:"total_defects"`
}

// RecordDetection appends one detection event and its defects in a single
// transaction, returning the new detection id.
func (db *DB) RecordDetection(timestamp time.Time, photoPath string, defects []DefectRecord) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO detections (timestamp, photo_path, num_defects, session_id) VALUES (?, ?, ?, ?)`,
		timestamp.UTC().Format(time.RFC3339), photoPath, len(defects), db.SessionID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert detection: %w", err)
	}
	detectionID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, d := range defects {
		analysisJSON, err := json.Marshal(d.Analysis)
		if err != nil {
			return 0, fmt.Errorf("marshal analysis: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO defects
			 (detection_id, track_id, bbox_x1, bbox_y1, bbox_x2, bbox_y2,
			  confidence, distance_m, width_m, analysis)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			detectionID, d.TrackID,
			d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2,
			d.Confidence, d.DistanceM, d.WidthM, string(analysisJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("insert defect: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return detectionID, nil
}

// Recent returns the most recent detection events, newest first, each with
// its defects.
func (db *DB) Recent(limit int) ([]DetectionRecord, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT id, timestamp, photo_path, num_defects, session_id
		 FROM detections ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var detections []DetectionRecord
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range detections {
		defects, err := db.defectsFor(detections[i].ID)
		if err != nil {
			return nil, err
		}
		detections[i].Defects = defects
	}
	return detections, nil
}

// ByID returns one detection event with its defects, or sql.ErrNoRows.
func (db *DB) ByID(id int64) (DetectionRecord, error) {
	row := db.QueryRow(
		`SELECT id, timestamp, photo_path, num_defects, session_id
		 FROM detections WHERE id = ?`, id)
	d, err := scanDetection(row)
	if err != nil {
		return DetectionRecord{}, err
	}
	d.Defects, err = db.defectsFor(d.ID)
	return d, err
}

// ClearHistory deletes every stored detection and defect in one
// transaction. Serves the admin clear-history endpoint.
func (db *DB) ClearHistory() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM defects`); err != nil {
		return fmt.Errorf("delete defects: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("delete detections: %w", err)
	}
	return tx.Commit()
}

// GetStats returns the aggregate counters.
func (db *DB) GetStats() (Stats, error) {
	var s Stats
	if err := db.QueryRow(`SELECT COUNT(*) FROM detections`).Scan(&s.TotalDetections); err != nil {
		return s, err
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM defects`).Scan(&s.TotalDefects); err != nil {
		return s, err
	}
	return s, nil
}

// AllDefects streams every stored defect, oldest first. Used by the offline
// report tool.
func (db *DB) AllDefects() ([]DefectRecord, error) {
	rows, err := db.Query(
		`SELECT id, detection_id, track_id, bbox_x1, bbox_y1, bbox_x2, bbox_y2,
		        confidence, distance_m, width_m, analysis
		 FROM defects ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query defects: %w", err)
	}
	defer rows.Close()
	return scanDefects(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDetection(row rowScanner) (DetectionRecord, error) {
	var d DetectionRecord
	var ts string
	if err := row.Scan(&d.ID, &ts, &d.PhotoPath, &d.NumDefects, &d.SessionID); err != nil {
		return d, err
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return d, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	d.Timestamp = t
	return d, nil
}

func (db *DB) defectsFor(detectionID int64) ([]DefectRecord, error) {
	rows, err := db.Query(
		`SELECT id, detection_id, track_id, bbox_x1, bbox_y1, bbox_x2, bbox_y2,
		        confidence, distance_m, width_m, analysis
		 FROM defects WHERE detection_id = ?`, detectionID)
	if err != nil {
		return nil, fmt.Errorf("query defects: %w", err)
	}
	defer rows.Close()
	return scanDefects(rows)
}

func scanDefects(rows *sql.Rows) ([]DefectRecord, error) {
	var defects []DefectRecord
	for rows.Next() {
		var d DefectRecord
		var analysisJSON string
		err := rows.Scan(&d.ID, &d.DetectionID, &d.TrackID,
			&d.BBox.X1, &d.BBox.Y1, &d.BBox.X2, &d.BBox.Y2,
			&d.Confidence, &d.DistanceM, &d.WidthM, &analysisJSON)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(analysisJSON), &d.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis for defect %d: %w", d.ID, err)
		}
		defects = append(defects, d)
	}
	return defects, rows.Err()
}
