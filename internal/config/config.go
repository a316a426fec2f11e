// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
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

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of job workers.
	WorkerCount int `koanf:"worker_count"`

	// JobTimeout bounds one asynchronous job; zero disables the bound.
	JobTimeout time.Duration `koanf:"job_timeout"`

	// DedupeSize sets how many request ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// ResultCapacity caps the number of jobs kept in the job store.
	ResultCapacity int `koanf:"result_capacity"`

	// MaxRecords rejects batches larger than this.
	MaxRecords int `koanf:"max_records"`

	// MaxBodyBytes caps HTTP request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Mixture fitting.
	MaxIterations  int     `koanf:"max_iterations"`
	Tolerance      float64 `koanf:"tolerance"`
	Seed           int64   `koanf:"seed"`
	Regularization float64 `koanf:"regularization"`
	EStepWorkers   int     `koanf:"estep_workers"`

	// MaxZoom caps the viewport zoom hint.
	MaxZoom int `koanf:"max_zoom"`

	// Palette overrides the cluster colors when non-empty.
	Palette []string `koanf:"palette"`
}

// New creates a Config with defaults. The context is reserved for loaders.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		QueueSize:      1024,
		WorkerCount:    runtime.NumCPU(),
		JobTimeout:     2 * time.Minute,
		DedupeSize:     50_000,
		ResultCapacity: 10_000,
		MaxRecords:     200_000,
		MaxBodyBytes:   32 << 20,
		MaxIterations:  100,
		Tolerance:      1e-6,
		Seed:           42,
		Regularization: 1e-6,
		EStepWorkers:   1,
		MaxZoom:        15,
	}
}
