package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment names.
const (
	EnvPrefix     = "GEOCLUSTER_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if GEOCLUSTER_CONFIG is set
//  3. env (prefix GEOCLUSTER_)
func Load(ctx context.Context) (*Config, error) {
	cfg := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GEOCLUSTER_QUEUE_SIZE -> queue_size; keys are flat so underscores stay.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		if s == "CONFIG" {
			return ""
		}
		return strings.ToLower(s)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.ResultCapacity <= 0:
		return fmt.Errorf("%w: result_capacity must be positive", ErrInvalidConfig)
	case c.MaxRecords <= 0:
		return fmt.Errorf("%w: max_records must be positive", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: max_iterations must be positive", ErrInvalidConfig)
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidConfig)
	case c.Regularization <= 0:
		return fmt.Errorf("%w: regularization must be positive", ErrInvalidConfig)
	case c.MaxZoom <= 0:
		return fmt.Errorf("%w: max_zoom must be positive", ErrInvalidConfig)
	case c.JobTimeout < 0:
		return fmt.Errorf("%w: job_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}
