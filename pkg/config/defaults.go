package config

import "strings"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyDigestDefaults(&cfg.Digest)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)
}

// applyDigestDefaults sets digest defaults.
func applyDigestDefaults(cfg *DigestConfig) {
	if cfg.Type == "" {
		cfg.Type = "direct"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
}
