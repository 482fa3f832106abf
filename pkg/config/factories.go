package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/shelf-db/shelf/internal/logger"
	"github.com/shelf-db/shelf/pkg/digest"
	digestBadger "github.com/shelf-db/shelf/pkg/digest/badger"
)

// CreateHasher creates a digest hasher based on configuration.
//
// Supported types:
//   - "direct": hashes every file on every indexing run
//   - "badger": caches digests in BadgerDB keyed by (path, size, mtime)
//
// A badger-backed hasher owns a database handle; the caller must close it
// (it implements io.Closer) when the registry is done.
func CreateHasher(cfg *DigestConfig) (digest.Hasher, error) {
	switch cfg.Type {
	case "direct":
		return digest.NewFileHasher(), nil
	case "badger":
		return createBadgerHasher(cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown digest type: %q", cfg.Type)
	}
}

// createBadgerHasher creates a BadgerDB-cached hasher.
func createBadgerHasher(options map[string]any) (digest.Hasher, error) {
	type BadgerHasherConfig struct {
		Path string `mapstructure:"path"`
	}

	var hasherCfg BadgerHasherConfig
	if err := mapstructure.Decode(options, &hasherCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger digest config: %w", err)
	}

	if hasherCfg.Path == "" {
		return nil, fmt.Errorf("badger digest cache: path is required")
	}

	cache, err := digestBadger.NewCache(digestBadger.Config{DBPath: hasherCfg.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger digest cache: %w", err)
	}

	logger.Debug("digest cache opened at %s", hasherCfg.Path)
	return cache, nil
}
