package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/recipegrid/internal/report"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	RecipesPaths []string // .json and .hcl manifests, files or directories

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	MaxParallel     int
	ModuleTimeout   time.Duration
	// HistoryDB is the journal path. Empty disables the journal.
	HistoryDB    string
	ReportFormat string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.RecipesPaths) == 0 {
		return nil, errors.New("RecipesPaths is a required configuration field and cannot be empty")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, ok := logLevels[cfg.LogLevel]; !ok {
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.ReportFormat == "" {
		cfg.ReportFormat = report.FormatText
	}
	if !slices.Contains(report.Formats(), cfg.ReportFormat) {
		return nil, fmt.Errorf("%w: %q", report.ErrUnknownFormat, cfg.ReportFormat)
	}
	if cfg.MaxParallel < 0 {
		return nil, errors.New("MaxParallel must not be negative")
	}
	if cfg.ModuleTimeout < 0 {
		return nil, errors.New("ModuleTimeout must not be negative")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort %d is out of range", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
