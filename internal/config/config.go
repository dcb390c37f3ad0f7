// Package config holds the runtime configuration and the immutable metric
// catalog (window layouts, total allowlists, role tables).
//
// The catalog is decoded once from the embedded catalog.yaml and may be
// overridden from a config file; nothing mutates it after Load returns.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// Workers bounds the number of matches processed concurrently.
	Workers int `koanf:"workers"`

	// StageRetries is how many times a failed barrier stage is retried before
	// the run is parked for resume.
	StageRetries int `koanf:"stage_retries"`

	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// MetricsOut, when set, receives a Prometheus text dump after league runs.
	MetricsOut string `koanf:"metrics_out"`

	// PostgresURL, when set, enables mirroring league aggregates to Postgres.
	PostgresURL string `koanf:"postgres_url"`

	Catalog Catalog `koanf:"catalog"`
}

// New returns a Config populated with defaults and the embedded catalog.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		DBPath:       "metrics.db",
		Workers:      runtime.NumCPU(),
		StageRetries: 2,
		RetryBackoff: 500 * time.Millisecond,
		Catalog:      mustDefaultCatalog(),
	}
}

// Validate checks the runtime settings and the catalog.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.StageRetries < 0 {
		return fmt.Errorf("%w: stage_retries must not be negative", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	return c.Catalog.Validate()
}
