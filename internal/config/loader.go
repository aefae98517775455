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

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if CRUX_CONFIG is set
//  3. env (prefix CRUX_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("CRUX_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: CRUX_ADDR, CRUX_QUEUE_SIZE, ...
	// Underscores are preserved so env keys line up with the koanf tags.
	envProvider := env.Provider("CRUX_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "crux_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("%w: buffer_capacity must be positive", ErrInvalidConfig)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min_confidence must be in [0,1]", ErrInvalidConfig)
	}
	if c.PauseMinMS >= c.PauseMaxMS {
		return fmt.Errorf("%w: pause_min_ms must be below pause_max_ms", ErrInvalidConfig)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	var sum float64
	for cat, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("%w: weight for %s must not be negative", ErrInvalidConfig, cat)
		}
		sum += w
	}
	if len(c.Weights) > 0 && (sum < 0.999 || sum > 1.001) {
		return fmt.Errorf("%w: weights must sum to 1.0, got %.3f", ErrInvalidConfig, sum)
	}
	return nil
}
