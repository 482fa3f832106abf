// Package badger provides a persistent digest cache backed by BadgerDB.
//
// Hashing every tracked file on every index run is the dominant cost for
// large, mostly-unchanged libraries. The cache keys each absolute path to
// its (size, mtime, digest) triple; a file whose size and mtime are
// unchanged since the cached run is not rehashed.
//
// Staleness model: a file rewritten with identical size and a timestamp
// the filesystem cannot distinguish will serve a stale digest. That is the
// usual stat-based tradeoff and acceptable for equality indexing.
package badger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/shelf-db/shelf/pkg/digest"
)

// entry layout: size (8 bytes) | mtime nanos (8 bytes) | digest (8 bytes),
// all big endian.
const entrySize = 24

// Config configures a Cache.
type Config struct {
	// DBPath is the directory holding the BadgerDB files. Required.
	DBPath string

	// Inner computes digests on cache misses. Defaults to
	// digest.NewFileHasher().
	Inner digest.Hasher

	// BadgerOptions overrides the database options entirely. When nil,
	// defaults tuned for this small-value workload are used.
	BadgerOptions *badger.Options
}

// Cache is a digest.Hasher that memoizes results in BadgerDB.
// The owner must call Close when done.
type Cache struct {
	db    *badger.DB
	inner digest.Hasher
}

// NewCache opens (or creates) the cache database at cfg.DBPath.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("digest cache: DBPath is required")
	}

	var opts badger.Options
	if cfg.BadgerOptions != nil {
		opts = *cfg.BadgerOptions
	} else {
		opts = badger.DefaultOptions(cfg.DBPath)
		opts = opts.WithLoggingLevel(badger.WARNING)
		// Values are 24 bytes; compression only adds overhead here.
		opts = opts.WithCompression(options.None)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open digest cache at %s: %w", cfg.DBPath, err)
	}

	inner := cfg.Inner
	if inner == nil {
		inner = digest.NewFileHasher()
	}

	return &Cache{db: db, inner: inner}, nil
}

// DigestFile returns the content digest of path, reusing the cached value
// when the file's size and mtime are unchanged.
func (c *Cache) DigestFile(path string) (digest.Digest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	size := uint64(info.Size())
	mtime := uint64(info.ModTime().UnixNano())

	if cached, ok := c.lookup(path, size, mtime); ok {
		return cached, nil
	}

	computed, err := c.inner.DigestFile(path)
	if err != nil {
		return 0, err
	}

	if err := c.store(path, size, mtime, computed); err != nil {
		// A failed cache write only costs a rehash next time.
		return computed, nil
	}
	return computed, nil
}

func (c *Cache) lookup(path string, size, mtime uint64) (digest.Digest, bool) {
	var result digest.Digest
	hit := false

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != entrySize {
				return nil
			}
			if binary.BigEndian.Uint64(val[0:8]) != size {
				return nil
			}
			if binary.BigEndian.Uint64(val[8:16]) != mtime {
				return nil
			}
			result = digest.Digest(binary.BigEndian.Uint64(val[16:24]))
			hit = true
			return nil
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false
	}
	return result, hit
}

func (c *Cache) store(path string, size, mtime uint64, d digest.Digest) error {
	val := make([]byte, entrySize)
	binary.BigEndian.PutUint64(val[0:8], size)
	binary.BigEndian.PutUint64(val[8:16], mtime)
	binary.BigEndian.PutUint64(val[16:24], uint64(d))

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), val)
	})
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
