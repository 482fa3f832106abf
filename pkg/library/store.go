package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/shelf-db/shelf/pkg/digest"
	"github.com/shelf-db/shelf/pkg/fsops"
	"github.com/shelf-db/shelf/pkg/pathutil"
)

// MetadataDirName is the reserved hidden directory under a library root
// holding one persisted document per entry. Because its name starts with a
// dot, the hidden-segment scan rule keeps the mirror itself from being
// indexed as content.
const MetadataDirName = ".metadata"

// metadataFileSuffix is appended to the mirrored relative path of each
// entry document.
const metadataFileSuffix = ".json"

// entry is the in-memory record for one tracked file.
type entry[D any] struct {
	value D

	// dig caches the content digest from the most recent successful
	// indexing of the backing file. hasDigest is false until then.
	dig       digest.Digest
	hasDigest bool

	// dirty marks the entry for persistence at the next flush.
	dirty bool
}

// Store is the per-library entry store: a map from relative path to
// metadata, persisted as a mirrored document tree under MetadataDirName.
//
// A Store holds purely in-memory state between Init/Refresh and Flush;
// nothing auto-persists.
type Store[D any] struct {
	codec Codec[D]
	fs    fsops.Ops

	entries map[string]*entry[D]

	// removed holds keys whose entries were deleted (or re-keyed away)
	// since the last flush; their mirror documents are deleted then.
	removed map[string]struct{}
}

func newStore[D any](codec Codec[D], fs fsops.Ops) *Store[D] {
	return &Store[D]{
		codec:   codec,
		fs:      fs,
		entries: make(map[string]*entry[D]),
		removed: make(map[string]struct{}),
	}
}

// mirrorDocumentPath returns the absolute path of the persisted document
// for key under root.
func mirrorDocumentPath(root, key string) string {
	return pathutil.Join(root, MetadataDirName+"/"+key) + metadataFileSuffix
}

// excluded reports whether key matches any of the given doublestar
// patterns. Invalid patterns never match.
func excluded(key string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, key); err == nil && matched {
			return true
		}
	}
	return false
}

// scanKeys lists the entry keys of all trackable files under root: every
// regular file, minus hidden segments and exclude patterns.
func (s *Store[D]) scanKeys(root string, exclude []string) ([]string, error) {
	files, err := s.fs.ListFiles(root, true)
	if err != nil {
		if errors.Is(err, fsops.ErrNotDirectory) {
			return nil, newError(ErrNotDirectory, "library root is not a directory", root)
		}
		return nil, newError(ErrIOError, fmt.Sprintf("failed to scan library root: %v", err), root)
	}

	keys := make([]string, 0, len(files))
	for _, abs := range files {
		key, inside := pathutil.Strip(root, abs)
		if !inside {
			continue
		}
		if excluded(key, exclude) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Init discards any previous in-memory state and rebuilds the store from a
// full scan of root. Files with a persisted document get the decoded value
// (a decode failure aborts the whole load with ErrCorruptMetadata naming
// the document); untracked files get the codec's default value and are
// marked dirty so the next flush creates their documents.
func (s *Store[D]) Init(root string, exclude []string) error {
	keys, err := s.scanKeys(root, exclude)
	if err != nil {
		return err
	}

	fresh := make(map[string]*entry[D], len(keys))
	for _, key := range keys {
		docPath := mirrorDocumentPath(root, key)
		hasDoc, err := s.fs.Exists(docPath)
		if err != nil {
			return newError(ErrIOError, fmt.Sprintf("failed to probe metadata document: %v", err), docPath)
		}

		if hasDoc {
			data, err := s.fs.ReadFile(docPath)
			if err != nil {
				return newError(ErrIOError, fmt.Sprintf("failed to read metadata document: %v", err), docPath)
			}
			value, err := s.codec.Decode(data)
			if err != nil {
				return newError(ErrCorruptMetadata, fmt.Sprintf("failed to decode metadata document: %v", err), docPath)
			}
			fresh[key] = &entry[D]{value: value}
		} else {
			fresh[key] = &entry[D]{value: s.codec.Default(), dirty: true}
		}
	}

	s.entries = fresh
	s.removed = make(map[string]struct{})
	return nil
}

// Refresh scans root for files lacking an entry and adds defaulted entries
// for them, leaving already-loaded entries untouched. It returns the newly
// added (key, value) pairs in scan order.
func (s *Store[D]) Refresh(root string, exclude []string) ([]Added[D], error) {
	keys, err := s.scanKeys(root, exclude)
	if err != nil {
		return nil, err
	}

	var added []Added[D]
	for _, key := range keys {
		if _, tracked := s.entries[key]; tracked {
			continue
		}
		value := s.codec.Default()
		s.entries[key] = &entry[D]{value: value, dirty: true}
		delete(s.removed, key)
		added = append(added, Added[D]{Key: key, Value: value})
	}
	return added, nil
}

// Get returns the metadata value for key.
func (s *Store[D]) Get(key string) (D, error) {
	e, ok := s.entries[key]
	if !ok {
		var zero D
		return zero, newError(ErrEntryNotFound, "no entry for key", key)
	}
	return e.value, nil
}

// Set replaces the metadata value for an existing key and marks the entry
// dirty. Setting a key with no entry is an error, never an implicit create.
func (s *Store[D]) Set(key string, value D) error {
	e, ok := s.entries[key]
	if !ok {
		return newError(ErrEntryNotFound, "no entry for key", key)
	}
	e.value = value
	e.dirty = true
	return nil
}

// Has reports whether key has an entry.
func (s *Store[D]) Has(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of entries.
func (s *Store[D]) Len() int {
	return len(s.entries)
}

// Keys returns all entry keys in sorted order. The slice is freshly
// computed on every call and safe to modify.
func (s *Store[D]) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Digest returns the cached content digest for key, if one was recorded by
// a previous indexing run.
func (s *Store[D]) Digest(key string) (digest.Digest, bool) {
	e, ok := s.entries[key]
	if !ok || !e.hasDigest {
		return 0, false
	}
	return e.dig, true
}

// setDigest records the content digest observed for key during indexing.
// The digest cache is not part of the persisted document, so this does not
// dirty the entry.
func (s *Store[D]) setDigest(key string, d digest.Digest) {
	if e, ok := s.entries[key]; ok {
		e.dig = d
		e.hasDigest = true
	}
}

// create adds a brand-new dirty entry. The caller guarantees the key is
// free; used by resolution transplants and migration.
func (s *Store[D]) create(key string, e *entry[D]) {
	e.dirty = true
	s.entries[key] = e
	delete(s.removed, key)
}

// RemoveEntry deletes the in-memory entry for key; its persisted document
// is deleted at the next flush. The underlying file is untouched.
func (s *Store[D]) RemoveEntry(key string) error {
	if _, ok := s.entries[key]; !ok {
		return newError(ErrEntryNotFound, "no entry for key", key)
	}
	delete(s.entries, key)
	s.removed[key] = struct{}{}
	return nil
}

// RemoveFile deletes the underlying file for key; the entry and its cached
// digest remain, now pointing at nothing, a candidate for later resolution.
func (s *Store[D]) RemoveFile(root, key string) error {
	if _, ok := s.entries[key]; !ok {
		return newError(ErrEntryNotFound, "no entry for key", key)
	}
	path := pathutil.Join(root, key)
	if err := s.fs.Delete(path); err != nil {
		return newError(ErrIOError, fmt.Sprintf("failed to delete file: %v", err), path)
	}
	return nil
}

// RenameFile renames the underlying file and re-keys the entry from oldKey
// to newKey. A failed filesystem rename leaves the entry model unchanged.
// A newKey that already names an entry is rejected with ErrEntryExists
// rather than merging or overwriting.
func (s *Store[D]) RenameFile(root, oldKey, newKey string) error {
	e, ok := s.entries[oldKey]
	if !ok {
		return newError(ErrEntryNotFound, "no entry for key", oldKey)
	}
	if _, taken := s.entries[newKey]; taken {
		return newError(ErrEntryExists, "an entry already exists for the rename target", newKey)
	}

	oldPath := pathutil.Join(root, oldKey)
	newPath := pathutil.Join(root, newKey)
	if err := s.fs.MakeDirs(filepath.Dir(newPath)); err != nil {
		return newError(ErrCouldNotRename, fmt.Sprintf("failed to create target directory: %v", err), newPath)
	}
	if err := s.fs.Move(oldPath, newPath); err != nil {
		return newError(ErrCouldNotRename, fmt.Sprintf("failed to rename file: %v", err), oldPath)
	}

	delete(s.entries, oldKey)
	s.removed[oldKey] = struct{}{}
	e.dirty = true
	s.entries[newKey] = e
	delete(s.removed, newKey)
	return nil
}

// Flush persists every dirty entry to its mirror document under root
// (creating intermediate directories as needed) and deletes the documents
// of entries removed since the last flush.
func (s *Store[D]) Flush(root string) error {
	for _, key := range s.Keys() {
		e := s.entries[key]
		if !e.dirty {
			continue
		}

		data, err := s.codec.Encode(e.value)
		if err != nil {
			return newError(ErrIOError, fmt.Sprintf("failed to encode metadata: %v", err), key)
		}

		docPath := mirrorDocumentPath(root, key)
		if err := s.fs.MakeDirs(filepath.Dir(docPath)); err != nil {
			return newError(ErrIOError, fmt.Sprintf("failed to create metadata directory: %v", err), docPath)
		}
		if err := s.fs.WriteFile(docPath, data); err != nil {
			return newError(ErrIOError, fmt.Sprintf("failed to write metadata document: %v", err), docPath)
		}
		e.dirty = false
	}

	removedKeys := make([]string, 0, len(s.removed))
	for key := range s.removed {
		removedKeys = append(removedKeys, key)
	}
	sort.Strings(removedKeys)

	for _, key := range removedKeys {
		docPath := mirrorDocumentPath(root, key)
		hasDoc, err := s.fs.Exists(docPath)
		if err != nil {
			return newError(ErrIOError, fmt.Sprintf("failed to probe metadata document: %v", err), docPath)
		}
		if hasDoc {
			if err := s.fs.Delete(docPath); err != nil {
				return newError(ErrIOError, fmt.Sprintf("failed to delete metadata document: %v", err), docPath)
			}
		}
		delete(s.removed, key)
	}

	return nil
}
