package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "recipegrid"
	// DefaultConfigFile is the file name looked up in the XDG config dir.
	DefaultConfigFile = "config.yaml"
	// DefaultHistoryFile is the journal file name in the XDG data dir.
	DefaultHistoryFile = "history.db"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File mirrors the YAML configuration file. Zero values mean "not set" so
// that command-line flags and built-in defaults can fill them.
type File struct {
	RecipesPaths    []string      `yaml:"recipes_paths"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	MaxParallel     int           `yaml:"max_parallel"`
	ModuleTimeout   time.Duration `yaml:"module_timeout"`
	HealthcheckPort int           `yaml:"healthcheck_port"`
	HistoryDB       string        `yaml:"history_db"`
	ReportFormat    string        `yaml:"report_format"`
}

// LoadFile reads the configuration file at path.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// Validate checks the values that can be checked without context.
func (f *File) Validate() error {
	if f.MaxParallel < 0 {
		return errors.New("max_parallel must not be negative")
	}
	if f.ModuleTimeout < 0 {
		return errors.New("module_timeout must not be negative")
	}
	if f.HealthcheckPort < 0 || f.HealthcheckPort > 65535 {
		return fmt.Errorf("healthcheck_port %d is out of range", f.HealthcheckPort)
	}
	return nil
}

// ConfigDir returns the XDG configuration directory for the application.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir returns the XDG data directory for the application.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultPath is where the configuration file is read from when no path is
// given on the command line.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), DefaultConfigFile)
}

// DefaultHistoryPath is where the run journal lives unless configured.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), DefaultHistoryFile)
}
