package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig holds the adjustable pipeline parameters. All fields are
// pointers so a partial JSON file only overrides what it names; the Get*
// methods supply defaults for anything left nil.
type TuningConfig struct {
	// Sensor params
	SectorWidthDeg *float64 `json:"sector_width_deg,omitempty"`
	SerialBaud     *int     `json:"serial_baud,omitempty"`

	// Camera params
	CameraHFOVDeg *float64 `json:"camera_hfov_deg,omitempty"`

	// Tracker params
	IoUThreshold   *float64 `json:"iou_threshold,omitempty"`
	TrackMaxAge    *string  `json:"track_max_age,omitempty"` // duration string like "5s"
	SmoothingAlpha *float64 `json:"smoothing_alpha,omitempty"`

	// Analysis params
	AssumedDistanceM *float64 `json:"assumed_distance_m,omitempty"`

	// Loop params
	ScanInterval    *string `json:"scan_interval,omitempty"`    // duration string like "100ms"
	AnalyzeInterval *string `json:"analyze_interval,omitempty"` // duration string like "200ms"
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted
// from the file retain their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are sane.
func (c *TuningConfig) Validate() error {
	if c.SectorWidthDeg != nil {
		if *c.SectorWidthDeg <= 0 || *c.SectorWidthDeg > 90 {
			return fmt.Errorf("sector_width_deg must be in (0, 90], got %f", *c.SectorWidthDeg)
		}
	}
	if c.CameraHFOVDeg != nil {
		if *c.CameraHFOVDeg <= 0 || *c.CameraHFOVDeg >= 180 {
			return fmt.Errorf("camera_hfov_deg must be in (0, 180), got %f", *c.CameraHFOVDeg)
		}
	}
	if c.IoUThreshold != nil {
		if *c.IoUThreshold < 0 || *c.IoUThreshold > 1 {
			return fmt.Errorf("iou_threshold must be between 0 and 1, got %f", *c.IoUThreshold)
		}
	}
	if c.SmoothingAlpha != nil {
		if *c.SmoothingAlpha < 0 || *c.SmoothingAlpha > 1 {
			return fmt.Errorf("smoothing_alpha must be between 0 and 1, got %f", *c.SmoothingAlpha)
		}
	}
	if c.TrackMaxAge != nil && *c.TrackMaxAge != "" {
		if _, err := time.ParseDuration(*c.TrackMaxAge); err != nil {
			return fmt.Errorf("invalid track_max_age '%s': %w", *c.TrackMaxAge, err)
		}
	}
	if c.ScanInterval != nil && *c.ScanInterval != "" {
		if _, err := time.ParseDuration(*c.ScanInterval); err != nil {
			return fmt.Errorf("invalid scan_interval '%s': %w", *c.ScanInterval, err)
		}
	}
	if c.AnalyzeInterval != nil && *c.AnalyzeInterval != "" {
		if _, err := time.ParseDuration(*c.AnalyzeInterval); err != nil {
			return fmt.Errorf("invalid analyze_interval '%s': %w", *c.AnalyzeInterval, err)
		}
	}
	return nil
}

// GetSectorWidthDeg returns the sector_width_deg value or the default.
func (c *TuningConfig) GetSectorWidthDeg() float64 {
	if c.SectorWidthDeg == nil {
		return 5.0
	}
	return *c.SectorWidthDeg
}

// GetSerialBaud returns the serial_baud value or the default.
func (c *TuningConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetCameraHFOVDeg returns the camera_hfov_deg value or the default.
func (c *TuningConfig) GetCameraHFOVDeg() float64 {
	if c.CameraHFOVDeg == nil {
		return 70.0
	}
	return *c.CameraHFOVDeg
}

// GetIoUThreshold returns the iou_threshold value or the default.
func (c *TuningConfig) GetIoUThreshold() float64 {
	if c.IoUThreshold == nil {
		return 0.3
	}
	return *c.IoUThreshold
}

// GetTrackMaxAge parses and returns the track max age as a time.Duration.
func (c *TuningConfig) GetTrackMaxAge() time.Duration {
	if c.TrackMaxAge == nil || *c.TrackMaxAge == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(*c.TrackMaxAge)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetSmoothingAlpha returns the smoothing_alpha value or the default.
func (c *TuningConfig) GetSmoothingAlpha() float64 {
	if c.SmoothingAlpha == nil {
		return 0.7
	}
	return *c.SmoothingAlpha
}

// GetAssumedDistanceM returns the assumed_distance_m value or the default.
func (c *TuningConfig) GetAssumedDistanceM() float64 {
	if c.AssumedDistanceM == nil {
		return 2.0
	}
	return *c.AssumedDistanceM
}

// GetScanInterval parses and returns the scan interval as a time.Duration.
func (c *TuningConfig) GetScanInterval() time.Duration {
	if c.ScanInterval == nil || *c.ScanInterval == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.ScanInterval)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetAnalyzeInterval parses and returns the analysis loop interval.
func (c *TuningConfig) GetAnalyzeInterval() time.Duration {
	if c.AnalyzeInterval == nil || *c.AnalyzeInterval == "" {
		return 200 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.AnalyzeInterval)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}
