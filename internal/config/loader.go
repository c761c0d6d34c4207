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
//  2. file (YAML) if TALENTLENS_CONFIG is set
//  3. env (prefix TALENTLENS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TALENTLENS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Env keys like TALENTLENS_GRACE_WINDOW_MS map to grace_window_ms.
	// Underscores are preserved to match koanf tags on the struct.
	envProvider := env.Provider("TALENTLENS_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "talentlens_")
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
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.GraceWindowMS < 0:
		return fmt.Errorf("%w: grace_window_ms must not be negative", ErrInvalidConfig)
	case c.QueryTopK < 1:
		return fmt.Errorf("%w: query_top_k must be at least 1", ErrInvalidConfig)
	case c.RelevanceFloor < 0 || c.RelevanceFloor > 1:
		return fmt.Errorf("%w: relevance_floor must be within [0,1]", ErrInvalidConfig)
	case c.StoreRetryAttempts < 1:
		return fmt.Errorf("%w: store_retry_attempts must be at least 1", ErrInvalidConfig)
	}
	return nil
}
