package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const workInProgressSuffix = ".wip"

// Write serializes the configuration document to path.
//
// The file is written to a temporary sibling first and moved into place, so
// a crash mid-write never leaves a truncated registry document behind.
// Library records are emitted in the order they appear in cfg.Libraries;
// callers control ordering by arranging that slice.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	tempPath := path + workInProgressSuffix
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace config file %s: %w", path, err)
	}

	return nil
}
