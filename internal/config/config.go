// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file and env on top.
// - Validation errors wrap ErrInvalidConfig, loading errors wrap ErrLoadConfig.
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

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory notification queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of notification workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the request and notification dedupe caches.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the event store.
	ShardCount int `koanf:"shard_count"`

	// LogCapacity is the number of events kept per (user, agent) log.
	LogCapacity int `koanf:"log_capacity"`

	// Timezone is the IANA zone that defines a user's day, e.g. "Asia/Tokyo".
	Timezone string `koanf:"timezone"`

	// CatalogPath optionally replaces the built-in catalog with a YAML file.
	CatalogPath string `koanf:"catalog_path"`

	// SnapshotDBPath stores daily snapshots in SQLite when set; memory otherwise.
	SnapshotDBPath string `koanf:"snapshot_db_path"`

	// WriteTimeoutMS bounds each event store write.
	WriteTimeoutMS int `koanf:"write_timeout_ms"`

	// SecondaryParallelism limits concurrent secondary writes of one sync.
	SecondaryParallelism int `koanf:"secondary_parallelism"`

	// MaxBatchSize caps POST /v1/sync/batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// MaxTrendDays caps GET /v1/users/{user}/trend?days.
	MaxTrendDays int `koanf:"max_trend_days"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU(),
		DedupeSize:           50_000,
		ShardCount:           16,
		LogCapacity:          100,
		Timezone:             "Local",
		WriteTimeoutMS:       2000,
		SecondaryParallelism: 4,
		MaxBatchSize:         100,
		MaxTrendDays:         90,
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	positive := []struct {
		key   string
		value int
	}{
		{"queue_size", c.QueueSize},
		{"worker_count", c.WorkerCount},
		{"dedupe_size", c.DedupeSize},
		{"shard_count", c.ShardCount},
		{"log_capacity", c.LogCapacity},
		{"write_timeout_ms", c.WriteTimeoutMS},
		{"secondary_parallelism", c.SecondaryParallelism},
		{"max_batch_size", c.MaxBatchSize},
		{"max_trend_days", c.MaxTrendDays},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, p.key, p.value)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w %q: %w", ErrInvalidConfig, ErrUnknownTimezone, c.Timezone, err)
	}
	return loc, nil
}

// WriteTimeout returns WriteTimeoutMS as a duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}
