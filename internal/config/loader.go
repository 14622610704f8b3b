package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "ALIGNMENT_"
	envFileKey = "ALIGNMENT_CONFIG"
)

// Load builds a Config by layering, low to high precedence:
//  1. defaults (New)
//  2. YAML file named by ALIGNMENT_CONFIG, if set
//  3. environment variables prefixed ALIGNMENT_
//
// A bare PORT variable, as set by most PaaS hosts, fills Addr when
// ALIGNMENT_ADDR is absent.
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFileKey); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// ALIGNMENT_SMTP_HOST -> smtp_host; underscores are kept to match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if !k.Exists("addr") {
		if port := os.Getenv("PORT"); port != "" {
			cfg.Addr = net.JoinHostPort("", port)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !validMode(c.ValidationMode):
		return fmt.Errorf("%w: validation_mode must be lenient or strict, got %q", ErrInvalidConfig, c.ValidationMode)
	case c.RenderAttempts < 1:
		return fmt.Errorf("%w: render_attempts must be at least 1", ErrInvalidConfig)
	case c.RenderTimeoutSec < 1:
		return fmt.Errorf("%w: render_timeout_sec must be at least 1", ErrInvalidConfig)
	case c.BodyLimitBytes < 1:
		return fmt.Errorf("%w: body_limit_bytes must be positive", ErrInvalidConfig)
	case c.OutputDir == "":
		return fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig)
	case c.SMTPHost != "" && (c.SMTPPort < 1 || c.SMTPPort > 65535):
		return fmt.Errorf("%w: smtp_port out of range: %d", ErrInvalidConfig, c.SMTPPort)
	case c.SMTPHost != "" && c.SMTPFrom == "":
		return fmt.Errorf("%w: smtp_from is required when smtp_host is set", ErrInvalidConfig)
	}
	return nil
}

func validMode(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "lenient", "strict":
		return true
	}
	return false
}
