package library

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shelf-db/shelf/internal/logger"
	"github.com/shelf-db/shelf/pkg/config"
	"github.com/shelf-db/shelf/pkg/digest"
	"github.com/shelf-db/shelf/pkg/fsops"
	"github.com/shelf-db/shelf/pkg/pathutil"
)

// Registry is the set of named libraries and the single entry point for
// every engine operation.
//
// The engine is synchronous and single-threaded by design; the registry is
// one mutex-guarded object so that sharing an instance across goroutines
// is at least not memory-unsafe. No operation supports cancellation: scans
// and indexing run to completion or fail on the first unrecoverable
// filesystem error.
//
// Example usage:
//
//	reg := library.NewRegistry[Note, ShelfInfo](noteCodec, shelfCodec, nil)
//	if err := reg.LoadConfig("/home/user/.config/shelf/registry.yaml"); err != nil { ... }
//	if err := reg.InitLibrary("Books"); err != nil { ... }
//	idx, err := reg.IndexFiles()
//	resolutions, err := reg.ResolveMissingFiles("Books", idx)
//	err = reg.FlushAll()
type Registry[D, LD any] struct {
	mu sync.Mutex

	entryCodec   Codec[D]
	libraryCodec Codec[LD]
	fs           fsops.Ops
	hasher       digest.Hasher
	ownsHasher   bool

	// settings carries the non-library configuration sections so a
	// write_config after load_config round-trips them
	settings config.Config

	libraries map[string]*Library[D, LD]
}

// RegistryOptions overrides the default collaborators of a Registry.
type RegistryOptions struct {
	// Fs supplies the filesystem primitives. Defaults to fsops.NewLocal().
	Fs fsops.Ops

	// Hasher computes content digests during indexing. Defaults to the
	// hasher selected by the configuration document's digest section (or
	// a plain file hasher before any LoadConfig).
	Hasher digest.Hasher
}

// NewRegistry creates an empty registry bound to the two caller codecs:
// one for per-entry metadata, one for library-level metadata.
// opts may be nil.
func NewRegistry[D, LD any](entryCodec Codec[D], libraryCodec Codec[LD], opts *RegistryOptions) *Registry[D, LD] {
	r := &Registry[D, LD]{
		entryCodec:   entryCodec,
		libraryCodec: libraryCodec,
		fs:           fsops.NewLocal(),
		hasher:       digest.NewFileHasher(),
		libraries:    make(map[string]*Library[D, LD]),
	}
	r.settings = config.Config{
		Logging: config.LoggingConfig{Level: "INFO"},
		Digest:  config.DigestConfig{Type: "direct"},
	}
	if opts != nil {
		if opts.Fs != nil {
			r.fs = opts.Fs
		}
		if opts.Hasher != nil {
			r.hasher = opts.Hasher
		}
	}
	return r
}

// Close releases resources owned by the registry (currently only a
// config-created digest cache). It never touches caller-supplied
// collaborators.
func (r *Registry[D, LD]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ownsHasher {
		if closer, ok := r.hasher.(io.Closer); ok {
			r.ownsHasher = false
			return closer.Close()
		}
	}
	return nil
}

// ============================================================================
// Configuration Document
// ============================================================================

// LoadConfig parses the registry configuration document at path and
// replaces the entire in-process registry with its library records. No
// library files are scanned; every library starts unloaded (see
// InitLibrary). A malformed document is reported as ErrCouldNotParse.
func (r *Registry[D, LD]) LoadConfig(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := config.Load(path)
	if err != nil {
		return newError(ErrCouldNotParse, fmt.Sprintf("failed to load registry document: %v", err), path)
	}

	libraries := make(map[string]*Library[D, LD], len(cfg.Libraries))
	for _, record := range cfg.Libraries {
		data := r.libraryCodec.Default()
		if record.Metadata != "" {
			data, err = r.libraryCodec.Decode([]byte(record.Metadata))
			if err != nil {
				return newError(ErrCouldNotParse,
					fmt.Sprintf("failed to decode metadata of library %q: %v", record.Name, err), path)
			}
		}
		libraries[record.Name] = &Library[D, LD]{
			name:    record.Name,
			root:    record.Root,
			data:    data,
			exclude: append([]string(nil), record.Exclude...),
			store:   newStore[D](r.entryCodec, r.fs),
		}
	}

	// Honor the document's digest section unless the caller supplied a
	// custom hasher at construction. A hasher created by a previous
	// LoadConfig is closed and replaced.
	var newHasher digest.Hasher
	_, isPlain := r.hasher.(*digest.FileHasher)
	if isPlain || r.ownsHasher {
		newHasher, err = config.CreateHasher(&cfg.Digest)
		if err != nil {
			return newError(ErrCouldNotParse, fmt.Sprintf("failed to create digest hasher: %v", err), path)
		}
	}

	// Nothing below can fail; the registry mutates only after every
	// fallible step succeeded, so a failed load leaves it untouched.
	if newHasher != nil {
		if r.ownsHasher {
			if closer, ok := r.hasher.(io.Closer); ok {
				_ = closer.Close()
			}
		}
		r.hasher = newHasher
		_, closable := newHasher.(io.Closer)
		r.ownsHasher = closable
	}

	logger.SetLevel(cfg.Logging.Level)
	r.settings = config.Config{Logging: cfg.Logging, Digest: cfg.Digest}
	r.libraries = libraries
	logger.Info("registry loaded from %s: %d libraries", path, len(libraries))
	return nil
}

// WriteConfig serializes the registry to the configuration document at
// path. Libraries named in order are emitted first, in that order; names
// not present in the registry are ignored; remaining libraries follow
// sorted by name. Dirty library records are marked clean on success.
func (r *Registry[D, LD]) WriteConfig(path string, order []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]config.LibraryConfig, 0, len(r.libraries))
	emitted := make(map[string]bool, len(r.libraries))

	appendRecord := func(lib *Library[D, LD]) error {
		data, err := r.libraryCodec.Encode(lib.data)
		if err != nil {
			return newError(ErrIOError,
				fmt.Sprintf("failed to encode metadata of library %q: %v", lib.name, err), path)
		}
		records = append(records, config.LibraryConfig{
			Name:     lib.name,
			Root:     lib.root,
			Metadata: string(data),
			Exclude:  append([]string(nil), lib.exclude...),
		})
		emitted[lib.name] = true
		return nil
	}

	for _, name := range order {
		lib, ok := r.libraries[name]
		if !ok || emitted[name] {
			continue
		}
		if err := appendRecord(lib); err != nil {
			return err
		}
	}
	for _, name := range r.sortedNames() {
		if emitted[name] {
			continue
		}
		if err := appendRecord(r.libraries[name]); err != nil {
			return err
		}
	}

	cfg := config.Config{
		Logging:   r.settings.Logging,
		Digest:    r.settings.Digest,
		Libraries: records,
	}
	if err := config.Write(path, &cfg); err != nil {
		return newError(ErrIOError, fmt.Sprintf("failed to write registry document: %v", err), path)
	}

	for _, lib := range r.libraries {
		lib.dirty = false
	}
	return nil
}

// ============================================================================
// Library Lifecycle
// ============================================================================

// NewLibrary registers an empty, uninitialized library. No file scan is
// performed; that is InitLibrary's job.
func (r *Registry[D, LD]) NewLibrary(name, root string, data LD) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return newError(ErrInvalidArgument, "library name must not be empty", "")
	}
	if !filepath.IsAbs(root) {
		return newError(ErrInvalidArgument, "library root must be an absolute path", root)
	}
	if _, exists := r.libraries[name]; exists {
		return newError(ErrLibraryExists, "a library with this name is already registered", name)
	}

	r.libraries[name] = &Library[D, LD]{
		name:  name,
		root:  root,
		data:  data,
		store: newStore[D](r.entryCodec, r.fs),
		dirty: true,
	}
	logger.Debug("registered library %q at %s", name, root)
	return nil
}

// RemoveLibrary unregisters the library. When deleteMetadata is set, its
// on-disk metadata mirror directory is deleted recursively. The tracked
// files themselves are never touched.
func (r *Registry[D, LD]) RemoveLibrary(name string, deleteMetadata bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", name)
	}

	if deleteMetadata {
		mirror := pathutil.Join(lib.root, MetadataDirName)
		if err := r.fs.DeleteRecursive(mirror); err != nil {
			return newError(ErrIOError, fmt.Sprintf("failed to delete metadata mirror: %v", err), mirror)
		}
	}

	delete(r.libraries, name)
	logger.Info("removed library %q (metadata deleted: %v)", name, deleteMetadata)
	return nil
}

// RenameLibrary changes the registry key of a library. Purely a registry
// operation, no filesystem effect.
func (r *Registry[D, LD]) RenameLibrary(name, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", name)
	}
	if newName == "" {
		return newError(ErrInvalidArgument, "library name must not be empty", "")
	}
	if _, taken := r.libraries[newName]; taken {
		return newError(ErrLibraryExists, "a library with this name is already registered", newName)
	}

	delete(r.libraries, name)
	lib.name = newName
	lib.dirty = true
	r.libraries[newName] = lib
	return nil
}

// MoveLibrary moves the entire directory tree (tracked files and metadata
// mirror) to newRoot and updates the registered root. An existing
// destination directory with any children at all, files or empty
// subdirectories, is rejected with ErrDirNotEmpty.
func (r *Registry[D, LD]) MoveLibrary(name, newRoot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", name)
	}
	if !filepath.IsAbs(newRoot) {
		return newError(ErrInvalidArgument, "library root must be an absolute path", newRoot)
	}

	exists, err := r.fs.DirExists(newRoot)
	if err != nil {
		return newError(ErrIOError, fmt.Sprintf("failed to probe destination: %v", err), newRoot)
	}
	if exists {
		occupants, err := r.fs.ListDir(newRoot)
		if err != nil {
			return newError(ErrIOError, fmt.Sprintf("failed to inspect destination: %v", err), newRoot)
		}
		if len(occupants) > 0 {
			return newError(ErrDirNotEmpty, "destination is not empty", newRoot)
		}
		// An existing empty directory would make the rename fail; clear it.
		if err := r.fs.Delete(newRoot); err != nil {
			return newError(ErrIOError, fmt.Sprintf("failed to clear empty destination: %v", err), newRoot)
		}
	}

	if err := r.fs.MakeDirs(filepath.Dir(newRoot)); err != nil {
		return newError(ErrIOError, fmt.Sprintf("failed to create destination parent: %v", err), newRoot)
	}
	if err := r.fs.Move(lib.root, newRoot); err != nil {
		return newError(ErrCouldNotRename, fmt.Sprintf("failed to move library tree: %v", err), lib.root)
	}

	logger.Info("moved library %q from %s to %s", name, lib.root, newRoot)
	lib.root = newRoot
	lib.dirty = true
	return nil
}

// InitLibrary populates the library's entry store from a full scan of its
// root, replacing any previously loaded state.
func (r *Registry[D, LD]) InitLibrary(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", name)
	}
	if err := lib.store.Init(lib.root, lib.exclude); err != nil {
		return err
	}
	logger.Info("initialized library %q: %d entries", name, lib.store.Len())
	return nil
}

// RefreshLibrary scans the library's root for untracked files and adds
// defaulted entries for them, returning the added (key, value) pairs.
// Already-loaded entries are left untouched.
func (r *Registry[D, LD]) RefreshLibrary(name string) ([]Added[D], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return nil, newError(ErrLibraryNotFound, "no library with this name", name)
	}
	added, err := lib.store.Refresh(lib.root, lib.exclude)
	if err != nil {
		return nil, err
	}
	logger.Debug("refreshed library %q: %d new entries", name, len(added))
	return added, nil
}

// FlushLibrary persists the library's dirty entries to its metadata mirror.
func (r *Registry[D, LD]) FlushLibrary(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", name)
	}
	return lib.store.Flush(lib.root)
}

// FlushAll persists every library's dirty entries, in name order, stopping
// at the first failure.
func (r *Registry[D, LD]) FlushAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.sortedNames() {
		lib := r.libraries[name]
		if err := lib.store.Flush(lib.root); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Lookup
// ============================================================================

// Library returns the library registered under name.
func (r *Registry[D, LD]) Library(name string) (*Library[D, LD], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return nil, newError(ErrLibraryNotFound, "no library with this name", name)
	}
	return lib, nil
}

// Libraries returns all registered library names in sorted order.
func (r *Registry[D, LD]) Libraries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedNames()
}

// SetLibraryMetadata replaces the library-level metadata value.
func (r *Registry[D, LD]) SetLibraryMetadata(name string, data LD) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", name)
	}
	lib.data = data
	lib.dirty = true
	return nil
}

// SetLibraryExclude replaces the library's scan exclude patterns. Takes
// effect on the next init/refresh/index scan.
func (r *Registry[D, LD]) SetLibraryExclude(name string, patterns []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", name)
	}
	lib.exclude = append([]string(nil), patterns...)
	lib.dirty = true
	return nil
}

func (r *Registry[D, LD]) sortedNames() []string {
	names := make([]string, 0, len(r.libraries))
	for name := range r.libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ============================================================================
// Entry Operations
// ============================================================================

// Entry returns the metadata value at (library, key).
func (r *Registry[D, LD]) Entry(library, key string) (D, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[library]
	if !ok {
		var zero D
		return zero, newError(ErrLibraryNotFound, "no library with this name", library)
	}
	return lib.store.Get(key)
}

// SetEntry replaces the metadata value at (library, key). The entry must
// already exist.
func (r *Registry[D, LD]) SetEntry(library, key string, value D) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[library]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", library)
	}
	return lib.store.Set(key, value)
}

// RemoveEntry deletes the entry at (library, key), leaving the underlying
// file in place.
func (r *Registry[D, LD]) RemoveEntry(library, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[library]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", library)
	}
	return lib.store.RemoveEntry(key)
}

// RemoveFile deletes the file backing (library, key), leaving the entry in
// place as a resolution candidate.
func (r *Registry[D, LD]) RemoveFile(library, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[library]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", library)
	}
	return lib.store.RemoveFile(lib.root, key)
}

// RenameFile renames the file backing (library, oldKey) to newKey within
// the same library and re-keys the entry.
func (r *Registry[D, LD]) RenameFile(library, oldKey, newKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[library]
	if !ok {
		return newError(ErrLibraryNotFound, "no library with this name", library)
	}
	return lib.store.RenameFile(lib.root, oldKey, newKey)
}
