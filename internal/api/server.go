// Package api serves the detection pipeline's HTTP JSON surface.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/roadscan-data/surface.report/internal/defect"
	"github.com/roadscan-data/surface.report/internal/runner"
	"github.com/roadscan-data/surface.report/internal/store"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// SectorSource exposes the live ranging snapshot.
type SectorSource interface {
	Snapshot() defect.SectorSnapshot
	SectorWidthDeg() int
}

// StatusSource exposes the runner's live state and the tracking reset used
// by the clear-history endpoint.
type StatusSource interface {
	Display() runner.DisplayState
	TrackerStats() defect.TrackerStats
	ResetTracking()
}

type Server struct {
	sectors SectorSource
	status  StatusSource
	db      *store.DB
}

func NewServer(sectors SectorSource, status StatusSource, db *store.DB) *Server {
	return &Server{
		sectors: sectors,
		status:  status,
		db:      db,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/lidar/latest", s.showLatestScan)
	mux.HandleFunc("/api/detections/recent", s.listRecentDetections)
	mux.HandleFunc("/api/detections/stats", s.showDetectionStats)
	mux.HandleFunc("/api/detections/", s.showDetection)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/clear-history", s.clearHistory)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to write response: %v", err)
	}
}

// showLatestScan returns the current sector snapshot from the ranging
// sensor.
func (s *Server) showLatestScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.sectors == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Ranging sensor not configured")
		return
	}
	snapshot := s.sectors.Snapshot()
	s.writeJSON(w, map[string]any{
		"sector_width_deg": s.sectors.SectorWidthDeg(),
		"sectors":          snapshot,
		"num_sectors":      len(snapshot),
	})
}

// listRecentDetections returns the most recent detection events, newest
// first. The limit query parameter defaults to 20.
func (s *Server) listRecentDetections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}
	records, err := s.db.Recent(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve detections: %v", err))
		return
	}
	s.writeJSON(w, records)
}

// showDetectionStats returns aggregate persistence counters.
func (s *Server) showDetectionStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}
	s.writeJSON(w, stats)
}

// showDetection returns one detection event with its defects.
func (s *Server) showDetection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/detections/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid detection id")
		return
	}
	record, err := s.db.ByID(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Detection %d not found", id))
		return
	}
	s.writeJSON(w, record)
}

// showStatus returns the runner's live display state and tracker counters.
func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.status == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "Runner not started")
		return
	}
	s.writeJSON(w, map[string]any{
		"display": s.status.Display(),
		"tracker": s.status.TrackerStats(),
	})
}

// clearHistory wipes stored detections and resets live tracking.
func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := s.db.ClearHistory(); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to clear history: %v", err))
		return
	}
	if s.status != nil {
		s.status.ResetTracking()
	}
	log.Printf("[API] detection history cleared")
	s.writeJSON(w, map[string]string{"status": "cleared"})
}
