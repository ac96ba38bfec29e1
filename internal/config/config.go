// Package config loads the agent configuration file.
//
// Configuration is YAML, validated against an embedded CUE schema
// before decoding so that a malformed file fails with a field-level
// message instead of a zero value deep in the sync path.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/mfigueroa/rutero/internal/api"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded agent configuration.
type Config struct {
	API struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Token          string `yaml:"token"`
	} `yaml:"api"`
	Retry struct {
		MaxAttempts      int     `yaml:"max_attempts"`
		InitialBackoffMS int     `yaml:"initial_backoff_ms"`
		Multiplier       float64 `yaml:"multiplier"`
	} `yaml:"retry"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	cfg.API.TimeoutSeconds = 120
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.InitialBackoffMS = 2000
	cfg.Retry.Multiplier = 3
	cfg.Store.Path = "rutero.db"
	return cfg
}

// Load reads, validates, and decodes the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates raw YAML against the embedded schema and decodes it,
// applying defaults for absent fields.
func Parse(data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile config schema: %w", err)
	}
	if err := cueyaml.Validate(data, schema); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Timeout returns the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// RetryPolicy returns the submission retry policy.
func (c Config) RetryPolicy() api.RetryPolicy {
	return api.RetryPolicy{
		MaxAttempts:    c.Retry.MaxAttempts,
		InitialBackoff: time.Duration(c.Retry.InitialBackoffMS) * time.Millisecond,
		Multiplier:     c.Retry.Multiplier,
	}
}
