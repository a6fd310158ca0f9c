// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/logregator/lib/logging"
)

// EnvVar names the environment variable Load reads the config path from.
const EnvVar = "LOGREGATOR_CONFIG"

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

// Config is the configuration of an aggregation scope.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Sink configures the logger aggregated records are delivered to.
	Sink SinkConfig `yaml:"sink"`

	// Transport configures the channel records travel through.
	Transport TransportConfig `yaml:"transport"`

	// Scope configures the aggregation lifecycle.
	Scope ScopeConfig `yaml:"scope"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Sink      *SinkConfig      `yaml:"sink,omitempty"`
	Transport *TransportConfig `yaml:"transport,omitempty"`
	Scope     *ScopeConfig     `yaml:"scope,omitempty"`
}

// SinkConfig configures the sink logger.
type SinkConfig struct {
	// Name of the sink logger.
	// Default: LOGTOR
	Name string `yaml:"name"`

	// Level is the sink's minimum level: trace, debug, info, warning,
	// error, critical, or a number.
	// Default: info
	Level string `yaml:"level"`

	// File is an optional file to write to. A .zst suffix compresses it.
	File string `yaml:"file"`

	// Mode is "a" to append to File or "w" to truncate it.
	// Default: a
	Mode string `yaml:"mode"`

	// Console writes to stderr. When unset, the console is used only
	// if no File is given.
	Console *bool `yaml:"console"`
}

// TransportConfig configures the aggregation transport.
type TransportConfig struct {
	// Capacity is the number of records buffered before dropping.
	// Default: 4096
	Capacity int `yaml:"capacity"`

	// SocketDirectory is where the transport's socket directory is
	// created. Keep it short: socket paths are limited to 108 bytes.
	// Default: the system temporary directory
	SocketDirectory string `yaml:"socket_directory"`

	// Linger is how long closing waits for child processes to finish
	// sending.
	// Default: 1s
	Linger string `yaml:"linger"`
}

// ScopeConfig configures the aggregation scope.
type ScopeConfig struct {
	// JoinTimeout is how long exiting waits for the remaining records
	// to be delivered.
	// Default: 5s
	JoinTimeout string `yaml:"join_timeout"`

	// Annotate prefixes messages with the sink name and origin pid.
	// Default: false
	Annotate bool `yaml:"annotate"`
}

// Default returns the default configuration. It is the base the
// config file is merged into.
func Default() *Config {
	return &Config{
		Environment: Development,
		Sink: SinkConfig{
			Name:  "LOGTOR",
			Level: "info",
			Mode:  "a",
		},
		Transport: TransportConfig{
			Capacity: 4096,
			Linger:   "1s",
		},
		Scope: ScopeConfig{
			JoinTimeout: "5s",
		},
	}
}

// Load loads configuration from the file named by LOGREGATOR_CONFIG.
//
// There are no fallbacks: if the variable is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your logregator.yaml config file, or use --config flag", EnvVar)
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. Files ending
// in .json or .jsonc are read as JSON with comments and trailing
// commas; anything else is YAML.
//
// Environment variables do not override config values. The only
// expansion performed is ${VAR} and ${VAR:-default} in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile merges a single configuration file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so once comments and trailing
		// commas are stripped the YAML decoder reads it as is.
		data = jsonc.ToJSON(data)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching c.Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: nothing on the console unless asked for.
		if overrides == nil && c.Sink.File != "" && c.Sink.Console == nil {
			console := false
			overrides = &ConfigOverrides{Sink: &SinkConfig{Console: &console}}
		}
	}

	if overrides == nil {
		return
	}

	if sink := overrides.Sink; sink != nil {
		if sink.Name != "" {
			c.Sink.Name = sink.Name
		}
		if sink.Level != "" {
			c.Sink.Level = sink.Level
		}
		if sink.File != "" {
			c.Sink.File = sink.File
		}
		if sink.Mode != "" {
			c.Sink.Mode = sink.Mode
		}
		if sink.Console != nil {
			c.Sink.Console = sink.Console
		}
	}

	if transport := overrides.Transport; transport != nil {
		if transport.Capacity != 0 {
			c.Transport.Capacity = transport.Capacity
		}
		if transport.SocketDirectory != "" {
			c.Transport.SocketDirectory = transport.SocketDirectory
		}
		if transport.Linger != "" {
			c.Transport.Linger = transport.Linger
		}
	}

	if scope := overrides.Scope; scope != nil {
		if scope.JoinTimeout != "" {
			c.Scope.JoinTimeout = scope.JoinTimeout
		}
		// Annotate is a bool, so we always apply it from overrides.
		c.Scope.Annotate = scope.Annotate
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Sink.File = expandVars(c.Sink.File, vars)
	c.Transport.SocketDirectory = expandVars(c.Transport.SocketDirectory, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

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
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Sink.Name == "" {
		errs = append(errs, fmt.Errorf("sink.name is required"))
	}
	if _, err := c.SinkLevel(); err != nil {
		errs = append(errs, fmt.Errorf("sink.level: %w", err))
	}
	if c.Sink.Mode != "a" && c.Sink.Mode != "w" {
		errs = append(errs, fmt.Errorf("sink.mode must be one of: [a w]"))
	}
	if c.Sink.File == "" && c.Sink.Console != nil && !*c.Sink.Console {
		errs = append(errs, fmt.Errorf("sink.file is required when sink.console is false"))
	}

	if c.Transport.Capacity < 0 {
		errs = append(errs, fmt.Errorf("transport.capacity must not be negative"))
	}
	if _, err := parseDuration(c.Transport.Linger); err != nil {
		errs = append(errs, fmt.Errorf("transport.linger: %w", err))
	}
	if _, err := parseDuration(c.Scope.JoinTimeout); err != nil {
		errs = append(errs, fmt.Errorf("scope.join_timeout: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SinkLevel parses Sink.Level.
func (c *Config) SinkLevel() (logging.Level, error) {
	return logging.ParseLevel(c.Sink.Level)
}

// LingerDuration parses Transport.Linger. Zero means the default.
func (c *Config) LingerDuration() (time.Duration, error) {
	return parseDuration(c.Transport.Linger)
}

// JoinTimeoutDuration parses Scope.JoinTimeout. Zero means the default.
func (c *Config) JoinTimeoutDuration() (time.Duration, error) {
	return parseDuration(c.Scope.JoinTimeout)
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("negative duration %s", value)
	}
	return duration, nil
}

// EnsurePaths creates the directories the configuration refers to if
// they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Transport.SocketDirectory}
	if c.Sink.File != "" {
		paths = append(paths, filepath.Dir(c.Sink.File))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
