// Package config holds the run configuration for the featurizer. Every field
// is optional: the Get* accessors supply the fixed defaults when a field is
// unset, so a missing or partial file behaves like the built-in run.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/sensor.features/internal/features"
)

// DefaultConfigPath is the path to the canonical defaults file. A YAML file
// with the same stem (.yaml or .yml) is also accepted.
const DefaultConfigPath = "config/featurize.defaults.json"

const (
	DefaultInputPath     = "input_without_target.csv"
	DefaultOutputPath    = "output_with_features.csv"
	DefaultReportFeature = features.RootMeanSquare
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config represents the run configuration.
type Config struct {
	InputPath  *string `json:"input_path,omitempty" yaml:"input_path,omitempty"`
	OutputPath *string `json:"output_path,omitempty" yaml:"output_path,omitempty"`

	// Workers is the number of concurrent row extractors. 0 or 1 runs rows
	// sequentially.
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`

	// Optional sinks
	SQLitePath    *string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	ReportPath    *string `json:"report_path,omitempty" yaml:"report_path,omitempty"` // .html, .png or .svg
	ReportFeature *string `json:"report_feature,omitempty" yaml:"report_feature,omitempty"`

	// LogEvery logs a progress line every N rows; 0 disables progress lines.
	LogEvery *int `json:"log_every,omitempty" yaml:"log_every,omitempty"`
}

func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON or YAML file. The file must have a
// .json, .yaml or .yml extension and be under 1MB. Fields omitted from the
// file fall back to their defaults.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads DefaultConfigPath, or its YAML sibling, relative to
// dir. When no defaults file exists the empty config is returned.
func LoadDefaultConfig(dir string) (*Config, error) {
	stem := strings.TrimSuffix(DefaultConfigPath, filepath.Ext(DefaultConfigPath))
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return LoadConfig(path)
	}
	return EmptyConfig(), nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.LogEvery != nil && *c.LogEvery < 0 {
		return fmt.Errorf("log_every must be non-negative, got %d", *c.LogEvery)
	}
	if c.ReportFeature != nil && *c.ReportFeature != "" {
		if _, err := features.ParseFeature(*c.ReportFeature); err != nil {
			return fmt.Errorf("invalid report_feature: %w", err)
		}
	}
	if p := c.GetReportPath(); p != "" {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".html", ".png", ".svg":
		default:
			return fmt.Errorf("report_path must end in .html, .png or .svg, got %q", p)
		}
	}
	if filepath.Clean(c.GetInputPath()) == filepath.Clean(c.GetOutputPath()) {
		return fmt.Errorf("output_path must differ from input_path %q", c.GetInputPath())
	}
	return nil
}

// GetInputPath returns the input_path value or the default.
func (c *Config) GetInputPath() string {
	if c.InputPath == nil || *c.InputPath == "" {
		return DefaultInputPath
	}
	return *c.InputPath
}

// GetOutputPath returns the output_path value or the default.
func (c *Config) GetOutputPath() string {
	if c.OutputPath == nil || *c.OutputPath == "" {
		return DefaultOutputPath
	}
	return *c.OutputPath
}

// GetWorkers returns the workers value or the default.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 1 // sequential
	}
	return *c.Workers
}

// GetSQLitePath returns the sqlite_path value; empty disables the store.
func (c *Config) GetSQLitePath() string {
	if c.SQLitePath == nil {
		return ""
	}
	return *c.SQLitePath
}

// GetReportPath returns the report_path value; empty disables the report.
func (c *Config) GetReportPath() string {
	if c.ReportPath == nil {
		return ""
	}
	return *c.ReportPath
}

// GetReportFeature returns the charted feature or the default. Invalid names
// are rejected by Validate.
func (c *Config) GetReportFeature() features.Feature {
	if c.ReportFeature == nil || *c.ReportFeature == "" {
		return DefaultReportFeature
	}
	f, err := features.ParseFeature(*c.ReportFeature)
	if err != nil {
		return DefaultReportFeature
	}
	return f
}

// GetLogEvery returns the log_every value or the default.
func (c *Config) GetLogEvery() int {
	if c.LogEvery == nil {
		return 0
	}
	return *c.LogEvery
}
