// Package config holds tracking and service settings.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

const (
	// MotionVelocity extrapolates by last position plus last velocity
	MotionVelocity = "velocity"
	// MotionKalman smooths positions with Kalman filter
	MotionKalman = "kalman"

	// BoxOrderSource keeps frames in the order the bounding-box document lists them
	BoxOrderSource = "source"
	// BoxOrderNumeric sorts frames by the number embedded into each key
	BoxOrderNumeric = "numeric"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Config is the resolved configuration. Use Default or Load to get one.
type Config struct {
	DetectionThreshold   float64 `json:"detection_threshold"`
	MemoryFramesNumber   int     `json:"memory_frames_number"`
	MotionModel          string  `json:"motion_model"`
	ResetAbsencesOnMatch bool    `json:"reset_absences_on_match"`
	BoxOrder             string  `json:"box_order"`
	StrictPairing        bool    `json:"strict_pairing"`
	Listen               string  `json:"listen"`
	Database             string  `json:"database"`
}

// fileConfig mirrors Config with optional fields so a file may override only some of them
type fileConfig struct {
	DetectionThreshold   *float64 `json:"detection_threshold,omitempty"`
	MemoryFramesNumber   *int     `json:"memory_frames_number,omitempty"`
	MotionModel          *string  `json:"motion_model,omitempty"`
	ResetAbsencesOnMatch *bool    `json:"reset_absences_on_match,omitempty"`
	BoxOrder             *string  `json:"box_order,omitempty"`
	StrictPairing        *bool    `json:"strict_pairing,omitempty"`
	Listen               *string  `json:"listen,omitempty"`
	Database             *string  `json:"database,omitempty"`
}

// Default returns configuration with default values
func Default() Config {
	return Config{
		DetectionThreshold:   0.1,
		MemoryFramesNumber:   10,
		MotionModel:          MotionVelocity,
		ResetAbsencesOnMatch: false,
		BoxOrder:             BoxOrderSource,
		StrictPairing:        false,
		Listen:               ":5000",
		Database:             "",
	}
}

// Load reads JSON file at path on top of defaults. Empty path yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "can't read config %s", path)
	}
	var file fileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return cfg, errors.Wrapf(err, "can't parse config %s", path)
	}
	file.applyTo(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (file *fileConfig) applyTo(cfg *Config) {
	if file.DetectionThreshold != nil {
		cfg.DetectionThreshold = *file.DetectionThreshold
	}
	if file.MemoryFramesNumber != nil {
		cfg.MemoryFramesNumber = *file.MemoryFramesNumber
	}
	if file.MotionModel != nil {
		cfg.MotionModel = *file.MotionModel
	}
	if file.ResetAbsencesOnMatch != nil {
		cfg.ResetAbsencesOnMatch = *file.ResetAbsencesOnMatch
	}
	if file.BoxOrder != nil {
		cfg.BoxOrder = *file.BoxOrder
	}
	if file.StrictPairing != nil {
		cfg.StrictPairing = *file.StrictPairing
	}
	if file.Listen != nil {
		cfg.Listen = *file.Listen
	}
	if file.Database != nil {
		cfg.Database = *file.Database
	}
}

// Validate checks that every value is usable
func (cfg Config) Validate() error {
	if !(cfg.DetectionThreshold > 0) {
		return errors.Wrapf(ErrInvalidConfig, "detection_threshold must be positive, got %v", cfg.DetectionThreshold)
	}
	if cfg.MemoryFramesNumber < 0 {
		return errors.Wrapf(ErrInvalidConfig, "memory_frames_number must not be negative, got %d", cfg.MemoryFramesNumber)
	}
	switch cfg.MotionModel {
	case MotionVelocity, MotionKalman:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown motion_model %q", cfg.MotionModel)
	}
	switch cfg.BoxOrder {
	case BoxOrderSource, BoxOrderNumeric:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown box_order %q", cfg.BoxOrder)
	}
	return nil
}
