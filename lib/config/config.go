// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable Load reads the config path from.
const EnvironmentVariable = "BUREAU_CRYPTOEVENTS_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the configuration for bureau-cryptoevents.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Identity names the local account and device. Key requests are
	// sent from this device to every device of this account.
	Identity IdentityConfig `yaml:"identity"`

	// Pending configures the store of undecryptable events.
	Pending PendingConfig `yaml:"pending"`

	// Schemas configures event schema loading.
	Schemas SchemasConfig `yaml:"schemas"`

	// Log configures diagnostic output on stderr.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Pending *PendingConfig `yaml:"pending,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// IdentityConfig names the local Matrix account and device. Both are
// raw strings here; the CLI parses them into typed references so a
// malformed value is reported against the flag or file it came from.
type IdentityConfig struct {
	// UserID is the local account, e.g. "@alice:example.org".
	UserID string `yaml:"user_id"`

	// DeviceID is this device's ID, placed in requesting_device_id.
	DeviceID string `yaml:"device_id"`
}

// PendingConfig configures the pending event store.
type PendingConfig struct {
	// Database is the SQLite file path. ${HOME} and ${VAR:-default}
	// are expanded.
	Database string `yaml:"database"`

	// MaxAge is how long an undecryptable event is kept before
	// "pending prune" drops it, as a Go duration string.
	// Default: 168h
	MaxAge string `yaml:"max_age"`

	// PoolSize is the number of SQLite connections. Zero picks a
	// default based on CPU count.
	PoolSize int `yaml:"pool_size"`
}

// SchemasConfig configures where event schemas come from.
type SchemasConfig struct {
	// Directory, when set, replaces the embedded schemas with the
	// *.json files in this directory. Every schema name must be present.
	Directory string `yaml:"directory"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Default returns the default configuration. The defaults fill fields
// the file leaves out; they are not a substitute for the file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Pending: PendingConfig{
			Database: "${XDG_STATE_HOME:-${HOME}/.local/state}/bureau-cryptoevents/pending.sqlite",
			MaxAge:   "168h",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by
// BUREAU_CRYPTOEVENTS_CONFIG. There is no fallback: if the variable is
// unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your cryptoevents.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The file is the single source of truth: environment variables do not
// override values. The only expansion performed is ${VAR} in path
// fields, for portability between machines.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: quieter logs, machine-readable.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Level: "warn", Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Pending != nil {
		if overrides.Pending.Database != "" {
			c.Pending.Database = overrides.Pending.Database
		}
		if overrides.Pending.MaxAge != "" {
			c.Pending.MaxAge = overrides.Pending.MaxAge
		}
		if overrides.Pending.PoolSize != 0 {
			c.Pending.PoolSize = overrides.Pending.PoolSize
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Pending.Database = expandVars(c.Pending.Database, vars)
	c.Schemas.Directory = expandVars(c.Schemas.Directory, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}. Defaults may themselves
// contain one level of ${VAR}, which expandVars resolves afterwards.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-((?:[^{}]|\$\{[^}]*\})*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		if defaultValue != "" {
			return expandVars(defaultValue, vars)
		}
		return ""
	})
}

// Validate checks the configuration for errors. Every problem is
// reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Pending.Database == "" {
		errs = append(errs, fmt.Errorf("pending.database is required"))
	}
	if _, err := c.PendingMaxAge(); err != nil {
		errs = append(errs, err)
	}
	if c.Pending.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("pending.pool_size must not be negative"))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// PendingMaxAge parses Pending.MaxAge.
func (c *Config) PendingMaxAge() (time.Duration, error) {
	maxAge, err := time.ParseDuration(c.Pending.MaxAge)
	if err != nil {
		return 0, fmt.Errorf("pending.max_age: %w", err)
	}
	if maxAge <= 0 {
		return 0, fmt.Errorf("pending.max_age must be positive, got %s", c.Pending.MaxAge)
	}
	return maxAge, nil
}

// LogLevel returns Log.Level as a slog.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// EnsurePaths creates the parent directory of the pending database.
func (c *Config) EnsurePaths() error {
	if c.Pending.Database == "" || c.Pending.Database == ":memory:" {
		return nil
	}
	directory := filepath.Dir(c.Pending.Database)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", directory, err)
	}
	return nil
}
