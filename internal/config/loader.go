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

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RATING_CONFIG is set
//  3. env (prefix RATING_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RATING_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrLoadConfig, err)
		}
	}

	// Environment variables: RATING_ADDR, RATING_QUEUE_SIZE, ...
	// Keys map onto the flat koanf tags of the struct, underscores kept.
	envProvider := env.Provider("RATING_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "rating_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrLoadConfig, err)
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
	if c.DBDSN == "" {
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.DirectoryRefreshSeconds <= 0 {
		return fmt.Errorf("%w: directory_refresh_seconds must be positive", ErrInvalidConfig)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: request_timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.StartRatingDeviation <= 0 {
		return fmt.Errorf("%w: start_rating_deviation must be positive", ErrInvalidConfig)
	}
	return nil
}
