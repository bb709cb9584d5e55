// Package config holds the healthdash run configuration.
//
// Values are resolved in increasing precedence: `default` tags, HEALTHDASH_*
// environment variables, the optional YAML file, then command-line flags
// (applied by cmd/healthdash).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. HEALTHDASH_INPUT_PATH.
// Leaf keys come from split field names and have no unprefixed fallback.
const EnvPrefix = "HEALTHDASH"

// Config is the complete run configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" envconfig:"INPUT"`
	Dashboard DashboardConfig `yaml:"dashboard" envconfig:"DASHBOARD"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Postgres  PostgresConfig  `yaml:"postgres" envconfig:"POSTGRES"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
}

// InputConfig names the source dataset.
type InputConfig struct {
	Path string `yaml:"path" split_words:"true" default:"healthcare_dataset.csv"`
}

// DashboardConfig parameterizes the panel set.
type DashboardConfig struct {
	TopConditions int      `yaml:"top_conditions" split_words:"true" default:"10"`
	TopBilled     int      `yaml:"top_billed" split_words:"true" default:"5"`
	AgeBins       int      `yaml:"age_bins" split_words:"true" default:"20"`
	DensityXBins  int      `yaml:"density_x_bins" split_words:"true" default:"20"`
	DensityYBins  int      `yaml:"density_y_bins" split_words:"true" default:"15"`
	Disabled      []string `yaml:"disabled" split_words:"true"`
}

// OutputConfig lists the file sinks; an empty path disables that sink.
type OutputConfig struct {
	JSON     string `yaml:"json" split_words:"true"`
	Workbook string `yaml:"workbook" split_words:"true"`
	Parquet  string `yaml:"parquet" split_words:"true"`
}

// PostgresConfig enables the Postgres sink when DSN is set.
type PostgresConfig struct {
	DSN       string `yaml:"dsn" split_words:"true"`
	BatchSize int    `yaml:"batch_size" split_words:"true" default:"5000"`
}

// ServerConfig enables the HTTP API when Addr is set.
type ServerConfig struct {
	Addr            string        `yaml:"addr" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" default:"10s"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" split_words:"true" default:"info"`
	Format string `yaml:"format" split_words:"true" default:"console"`
}

// Load resolves defaults and environment, overlays the YAML file at path
// when path is non-empty, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// overlayFile decodes the YAML document at path over c. Keys absent from
// the document leave the current values alone.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration after every override has been applied.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Input.Path) == "" {
		errs = append(errs, errors.New("input path is required"))
	}

	d := c.Dashboard
	for _, p := range []struct {
		name string
		v    int
	}{
		{"top_conditions", d.TopConditions},
		{"top_billed", d.TopBilled},
		{"age_bins", d.AgeBins},
		{"density_x_bins", d.DensityXBins},
		{"density_y_bins", d.DensityYBins},
	} {
		if p.v < 1 {
			errs = append(errs, fmt.Errorf("dashboard %s must be positive, got %d", p.name, p.v))
		}
	}

	if c.Postgres.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("postgres batch_size must be positive, got %d", c.Postgres.BatchSize))
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server shutdown timeout must be positive"))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// IsDisabled reports whether the panel with the given ID is switched off.
func (d DashboardConfig) IsDisabled(id string) bool {
	for _, s := range d.Disabled {
		if strings.EqualFold(strings.TrimSpace(s), id) {
			return true
		}
	}
	return false
}
