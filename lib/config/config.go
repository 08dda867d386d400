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
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/baseline"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/deltabits"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/recveng"
	"github.com/perilouswithadollarsign/cstrike15-src-sub061/lib/sendeng"
)

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

// Config is the master configuration.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Codec configures encoders and decoders.
	Codec CodecConfig `yaml:"codec"`

	// Baseline configures instance baseline storage.
	Baseline BaselineConfig `yaml:"baseline"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
// Unset fields keep the base value.
type ConfigOverrides struct {
	Codec    *CodecOverrides `yaml:"codec,omitempty"`
	Baseline *BaselineConfig `yaml:"baseline,omitempty"`
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Logging  *LoggingConfig  `yaml:"logging,omitempty"`
}

// CodecConfig configures the codec.
type CodecConfig struct {
	// DeltaScheme selects the changed-index layout senders write.
	// Values: "compact", "legacy". Default: compact
	DeltaScheme string `yaml:"delta_scheme"`

	// DecodePolicy selects how receivers treat sent props they cannot
	// store. Values: "strict", "compatible".
	// Default: compatible (development), strict (production)
	DecodePolicy string `yaml:"decode_policy"`

	// FastDelta enables the word-scanning delta path.
	// Default: true
	FastDelta bool `yaml:"fast_delta"`

	// WarnClamp logs a warning for every out-of-range value an encoder
	// clamps. Default: true
	WarnClamp bool `yaml:"warn_clamp"`
}

// CodecOverrides mirrors CodecConfig with optional booleans, so an
// override can turn a switch off.
type CodecOverrides struct {
	DeltaScheme  string `yaml:"delta_scheme,omitempty"`
	DecodePolicy string `yaml:"decode_policy,omitempty"`
	FastDelta    *bool  `yaml:"fast_delta,omitempty"`
	WarnClamp    *bool  `yaml:"warn_clamp,omitempty"`
}

// BaselineConfig configures instance baselines.
type BaselineConfig struct {
	// Compression is applied to stored baselines.
	// Values: "none", "lz4", "zstd". Default: lz4
	Compression string `yaml:"compression"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for codec data.
	Root string `yaml:"root"`

	// Schemas is the directory holding schema files.
	Schemas string `yaml:"schemas"`

	// Baselines is where exported baselines are written.
	Baselines string `yaml:"baselines"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the minimum level logged.
	// Values: "debug", "info", "warn", "error". Default: info
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given. Load
// decodes the file over it, so omitted keys keep these values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "datatable")

	return &Config{
		Environment: Development,
		Codec: CodecConfig{
			DeltaScheme:  "compact",
			DecodePolicy: "compatible",
			FastDelta:    true,
			WarnClamp:    true,
		},
		Baseline: BaselineConfig{
			Compression: "lz4",
		},
		Paths: PathsConfig{
			Root:      defaultRoot,
			Schemas:   filepath.Join(defaultRoot, "schemas"),
			Baselines: filepath.Join(defaultRoot, "baselines"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the DT_CONFIG environment variable.
//
// There are no fallbacks or defaults - if DT_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("DT_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("DT_CONFIG environment variable not set; " +
			"set it to the path of your config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile decodes path over [Default], applies the section for the
// selected environment, then expands ${HOME}-style variables in paths.
// Environment variables never override values set in the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
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

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: refuse schemas the receiver cannot store.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Codec: &CodecOverrides{DecodePolicy: "strict"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Codec != nil {
		if overrides.Codec.DeltaScheme != "" {
			c.Codec.DeltaScheme = overrides.Codec.DeltaScheme
		}
		if overrides.Codec.DecodePolicy != "" {
			c.Codec.DecodePolicy = overrides.Codec.DecodePolicy
		}
		if overrides.Codec.FastDelta != nil {
			c.Codec.FastDelta = *overrides.Codec.FastDelta
		}
		if overrides.Codec.WarnClamp != nil {
			c.Codec.WarnClamp = *overrides.Codec.WarnClamp
		}
	}

	if overrides.Baseline != nil && overrides.Baseline.Compression != "" {
		c.Baseline.Compression = overrides.Baseline.Compression
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Schemas != "" {
			c.Paths.Schemas = overrides.Paths.Schemas
		}
		if overrides.Paths.Baselines != "" {
			c.Paths.Baselines = overrides.Paths.Baselines
		}
	}

	if overrides.Logging != nil && overrides.Logging.Level != "" {
		c.Logging.Level = overrides.Logging.Level
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"DT_ROOT": c.Paths.Root,
		"HOME":    os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["DT_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.Schemas = expandVars(c.Paths.Schemas, vars)
	c.Paths.Baselines = expandVars(c.Paths.Baselines, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
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

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if _, err := c.DeltaScheme(); err != nil {
		errs = append(errs, fmt.Errorf("codec.delta_scheme: %w", err))
	}
	if _, err := c.DecodePolicy(); err != nil {
		errs = append(errs, fmt.Errorf("codec.decode_policy: %w", err))
	}
	if _, err := c.Compression(); err != nil {
		errs = append(errs, fmt.Errorf("baseline.compression: %w", err))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DeltaScheme returns the configured changed-index layout.
func (c *Config) DeltaScheme() (deltabits.Scheme, error) {
	return deltabits.ParseScheme(c.Codec.DeltaScheme)
}

// DecodePolicy returns the configured receiver policy.
func (c *Config) DecodePolicy() (recveng.Policy, error) {
	return recveng.ParsePolicy(c.Codec.DecodePolicy)
}

// Compression returns the configured baseline compression.
func (c *Config) Compression() (baseline.Compression, error) {
	return baseline.ParseCompression(c.Baseline.Compression)
}

// LogLevel returns the configured minimum log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Logging.Level))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// EncoderConfig returns the encoder settings for logger.
func (c *Config) EncoderConfig(logger *slog.Logger) (sendeng.Config, error) {
	scheme, err := c.DeltaScheme()
	if err != nil {
		return sendeng.Config{}, err
	}
	return sendeng.Config{
		Logger:    logger,
		FastDelta: c.Codec.FastDelta,
		WarnClamp: c.Codec.WarnClamp,
		Scheme:    scheme,
	}, nil
}

// BaselineStoreConfig returns the baseline store settings for logger.
func (c *Config) BaselineStoreConfig(logger *slog.Logger) (baseline.Config, error) {
	compression, err := c.Compression()
	if err != nil {
		return baseline.Config{}, err
	}
	return baseline.Config{Compression: compression, Logger: logger}, nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.Schemas,
		c.Paths.Baselines,
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
