// Package digest computes content digests for file reconciliation.
//
// The engine only ever compares digests for equality, so cryptographic
// strength is not required; xxhash gives a 64-bit identifier with collision
// probability far below what realistic library sizes can reach, at a
// fraction of the cost of a cryptographic hash.
package digest

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Digest is a fixed-size content identifier. Two files with identical
// content always produce the same Digest.
type Digest uint64

// String formats the digest as 16 hex digits.
func (d Digest) String() string {
	return fmt.Sprintf("%016x", uint64(d))
}

// Sum computes the digest of an in-memory byte slice.
func Sum(data []byte) Digest {
	return Digest(xxhash.Sum64(data))
}

// Hasher computes the content digest of a file on disk.
type Hasher interface {
	DigestFile(path string) (Digest, error)
}

// FileHasher is the plain Hasher: it streams the file through xxhash on
// every call, holding no state between calls.
type FileHasher struct{}

// NewFileHasher returns a stateless file hasher.
func NewFileHasher() *FileHasher {
	return &FileHasher{}
}

func (h *FileHasher) DigestFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer file.Close()

	hash := xxhash.New()
	if _, err := io.Copy(hash, file); err != nil {
		return 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return Digest(hash.Sum64()), nil
}
