package library

import (
	"fmt"
	"path/filepath"

	"github.com/shelf-db/shelf/internal/logger"
	"github.com/shelf-db/shelf/pkg/pathutil"
)

// MigrateEntry moves the entry and file at key from one library to
// another, preserving the key.
//
// Preconditions are checked in order: the entry must exist in the source
// library (ErrEntryNotFound), no entry may exist at the destination key
// (ErrEntryExists), and no file may exist at the destination path
// (ErrFileExists).
//
// The file is moved before the entry model is touched, so a filesystem
// failure never leaves the entry transplanted while the file stayed
// behind.
func (r *Registry[D, LD]) MigrateEntry(fromLibrary, toLibrary, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, ok := r.libraries[fromLibrary]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", fromLibrary)
	}
	to, ok := r.libraries[toLibrary]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", toLibrary)
	}

	e, exists := from.store.entries[key]
	if !exists {
		return newError(ErrEntryNotFound, "no entry for key in source library", key)
	}
	if to.store.Has(key) {
		return newError(ErrEntryExists, "an entry already exists for the key in the destination library", key)
	}

	dst := pathutil.Join(to.root, key)
	occupied, err := r.fs.Exists(dst)
	if err != nil {
		return newError(ErrIOError, fmt.Sprintf("failed to probe destination: %v", err), dst)
	}
	if occupied {
		return newError(ErrFileExists, "a file already exists at the destination path", dst)
	}

	src := pathutil.Join(from.root, key)
	if err := r.fs.MakeDirs(filepath.Dir(dst)); err != nil {
		return newError(ErrIOError, fmt.Sprintf("failed to create destination directory: %v", err), dst)
	}
	if err := r.fs.Move(src, dst); err != nil {
		return newError(ErrCouldNotRename, fmt.Sprintf("failed to move file: %v", err), src)
	}

	// Filesystem move succeeded; now transplant the entry.
	if err := from.store.RemoveEntry(key); err != nil {
		return err
	}
	to.store.create(key, &entry[D]{value: e.value, dig: e.dig, hasDigest: e.hasDigest})
	from.dirty = true
	to.dirty = true

	logger.Info("migrated %q from library %q to library %q", key, fromLibrary, toLibrary)
	return nil
}
