// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads relay's YAML configuration.
//
// Configuration is resolved in order: built-in defaults, the YAML file,
// defaults for anything the file left empty, then environment overrides.
// The result is validated before it is returned.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	relayerrors "github.com/tombee/relay/pkg/errors"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete relay configuration.
type Config struct {
	Log           LogConfig           `yaml:"log"`
	Engine        EngineConfig        `yaml:"engine"`
	Audit         AuditConfig         `yaml:"audit"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`

	// Steps is the ordered chain. Each name must be a registered module.
	Steps []StepConfig `yaml:"steps"`

	// Inputs are used when none are given on the command line.
	Inputs []string `yaml:"inputs,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	AddSource bool `yaml:"add_source"`
}

// EngineConfig contains scheduler settings.
type EngineConfig struct {
	// MaxConcurrency bounds the number of inputs running at once.
	MaxConcurrency int `yaml:"max_concurrency"`
}

// AuditConfig controls where audit records are written.
type AuditConfig struct {
	// Root is the directory audit trees are written under.
	Root string `yaml:"root"`

	// Format is the document format for audit files (json, yaml).
	Format string `yaml:"format"`

	// SQLitePath enables the SQLite audit sink when set.
	SQLitePath string `yaml:"sqlite_path,omitempty"`
}

// HTTPConfig configures the client used by fetching steps.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`

	// RateLimit is requests per second per host. Zero disables it.
	RateLimit float64 `yaml:"rate_limit,omitempty"`
	Burst     int     `yaml:"burst,omitempty"`
}

// ObservabilityConfig configures tracing and metrics.
type ObservabilityConfig struct {
	TracingEnabled bool `yaml:"tracing_enabled"`

	// TraceOutput is "stdout", "stderr" or a file path.
	TraceOutput string `yaml:"trace_output,omitempty"`

	// MetricsAddr serves /metrics when set (e.g. ":9090").
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// StepConfig configures one step of the chain and its decorators.
type StepConfig struct {
	Name string `yaml:"name"`

	// MaxConcurrency bounds concurrent executions of the step across all
	// inputs. Zero disables the limit.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Key shares a concurrency pool between steps. Defaults to Name.
	Key string `yaml:"key,omitempty"`

	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryDelay time.Duration `yaml:"retry_delay,omitempty"`
}

// PoolKey returns the key of the concurrency pool the step uses.
func (s StepConfig) PoolKey() string {
	if s.Key != "" {
		return s.Key
	}
	return s.Name
}

// Default returns a configuration that runs the smoke chain.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Engine: EngineConfig{
			MaxConcurrency: 2,
		},
		Audit: AuditConfig{
			Root:   "outputs",
			Format: "json",
		},
		HTTP: HTTPConfig{
			Timeout:   30 * time.Second,
			UserAgent: "Mozilla/5.0 (compatible; relay/1.0)",
		},
		Observability: ObservabilityConfig{
			TraceOutput: "stderr",
		},
		Steps: []StepConfig{
			defaultStep("Uppercase"),
			defaultStep("Length"),
		},
	}
}

func defaultStep(name string) StepConfig {
	return StepConfig{
		Name:           name,
		MaxConcurrency: 2,
		MaxRetries:     3,
		Timeout:        30 * time.Second,
	}
}

// Load reads configuration from the given path, applies defaults and
// environment overrides, and validates the result. An empty path skips the
// file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &relayerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &relayerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// A file that declares steps replaces the default chain entirely.
	c.Steps = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyDefaults fills zero values left by a minimal config file.
func (c *Config) applyDefaults() {
	def := Default()

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Engine.MaxConcurrency == 0 {
		c.Engine.MaxConcurrency = def.Engine.MaxConcurrency
	}
	if c.Audit.Root == "" {
		c.Audit.Root = def.Audit.Root
	}
	if c.Audit.Format == "" {
		c.Audit.Format = def.Audit.Format
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = def.HTTP.Timeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = def.HTTP.UserAgent
	}
	if c.Observability.TraceOutput == "" {
		c.Observability.TraceOutput = def.Observability.TraceOutput
	}
	if len(c.Steps) == 0 {
		c.Steps = def.Steps
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = parseBool(val)
	}

	if val := os.Getenv("RELAY_MAX_CONCURRENCY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Engine.MaxConcurrency = n
		}
	}

	if val := os.Getenv("RELAY_AUDIT_ROOT"); val != "" {
		c.Audit.Root = val
	}
	if val := os.Getenv("RELAY_AUDIT_FORMAT"); val != "" {
		c.Audit.Format = strings.ToLower(val)
	}
	if val := os.Getenv("RELAY_AUDIT_SQLITE"); val != "" {
		c.Audit.SQLitePath = val
	}

	if val := os.Getenv("RELAY_HTTP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.HTTP.Timeout = d
		}
	}
	if val := os.Getenv("RELAY_HTTP_RATE_LIMIT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.HTTP.RateLimit = f
		}
	}

	if val := os.Getenv("RELAY_TRACING"); val != "" {
		c.Observability.TracingEnabled = parseBool(val)
	}
	if val := os.Getenv("RELAY_METRICS_ADDR"); val != "" {
		c.Observability.MetricsAddr = val
	}
}

func parseBool(val string) bool {
	return val == "1" || strings.ToLower(val) == "true"
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if c.Engine.MaxConcurrency <= 0 {
		errs = append(errs, fmt.Sprintf("engine.max_concurrency must be positive, got %d", c.Engine.MaxConcurrency))
	}

	if c.Audit.Root == "" {
		errs = append(errs, "audit.root is required")
	}
	if c.Audit.Format != "json" && c.Audit.Format != "yaml" {
		errs = append(errs, fmt.Sprintf("audit.format must be one of [json, yaml], got %q", c.Audit.Format))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("http.timeout must be positive, got %v", c.HTTP.Timeout))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Sprintf("http.rate_limit must be non-negative, got %v", c.HTTP.RateLimit))
	}
	if c.HTTP.Burst < 0 {
		errs = append(errs, fmt.Sprintf("http.burst must be non-negative, got %d", c.HTTP.Burst))
	}

	if len(c.Steps) == 0 {
		errs = append(errs, "steps must contain at least one step")
	}
	seen := make(map[string]bool, len(c.Steps))
	pools := make(map[string]int, len(c.Steps))
	for i, s := range c.Steps {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("steps[%d].name is required", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("steps[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = true

		if s.MaxConcurrency < 0 {
			errs = append(errs, fmt.Sprintf("steps[%d].max_concurrency must be non-negative, got %d", i, s.MaxConcurrency))
		}
		if s.MaxRetries < 0 {
			errs = append(errs, fmt.Sprintf("steps[%d].max_retries must be non-negative, got %d", i, s.MaxRetries))
		}
		if s.Timeout < 0 {
			errs = append(errs, fmt.Sprintf("steps[%d].timeout must be non-negative, got %v", i, s.Timeout))
		}
		if s.RetryDelay < 0 {
			errs = append(errs, fmt.Sprintf("steps[%d].retry_delay must be non-negative, got %v", i, s.RetryDelay))
		}

		// Steps sharing a pool must agree on its capacity.
		if s.MaxConcurrency > 0 {
			key := s.PoolKey()
			if prev, ok := pools[key]; ok && prev != s.MaxConcurrency {
				errs = append(errs, fmt.Sprintf("steps[%d].max_concurrency %d conflicts with %d for pool %q", i, s.MaxConcurrency, prev, key))
			} else {
				pools[key] = s.MaxConcurrency
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}
