// Package config loads and writes the registry configuration document.
//
// The document is a single YAML file describing every library known to the
// registry: its unique name, its absolute root path, the caller-encoded
// opaque metadata value, and optional scan exclude patterns. The engine in
// pkg/library loads the document wholesale and writes it back wholesale;
// nothing in this package scans library files.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete registry configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SHELF_*)
//  2. Configuration file
//  3. Default values
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Digest selects how content digests are computed during indexing
	Digest DigestConfig `mapstructure:"digest" yaml:"digest"`

	// Libraries lists every library in the registry
	Libraries []LibraryConfig `mapstructure:"libraries" yaml:"libraries" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// DigestConfig selects the digest computation strategy.
//
// The Type field determines which hasher is used. Only the corresponding
// type-specific section is consulted.
type DigestConfig struct {
	// Type specifies which hasher implementation to use
	// Valid values: direct, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=direct badger"`

	// Badger contains badger-cache-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// LibraryConfig describes a single library record.
type LibraryConfig struct {
	// Name is the unique library name
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// Root is the absolute path of the library root directory
	Root string `mapstructure:"root" yaml:"root" validate:"required"`

	// Metadata is the opaque library metadata value, encoded by the
	// caller's codec. It round-trips through load and write untouched.
	Metadata string `mapstructure:"metadata" yaml:"metadata,omitempty"`

	// Exclude lists glob patterns (doublestar syntax) for paths skipped
	// during scans, in addition to the hidden-segment rule
	Exclude []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
}

// Load reads the configuration document at path.
//
// Environment variables with the SHELF_ prefix override file values
// (for example SHELF_LOGGING_LEVEL=DEBUG). A missing or malformed file is
// an error: the registry document is the source of truth for which
// libraries exist, so silently substituting an empty registry would be a
// data-loss hazard.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("SHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only consults the environment for keys viper already
	// knows about. Registering defaults for the scalar keys keeps env
	// overrides working even when the file omits the whole section.
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("digest.type", "direct")

	v.SetConfigFile(path)
	if !strings.Contains(path, ".") {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
