package library

import (
	"fmt"
	"sort"

	"github.com/shelf-db/shelf/internal/logger"
	"github.com/shelf-db/shelf/pkg/digest"
	"github.com/shelf-db/shelf/pkg/pathutil"
)

// Index is the transient content-digest index over all libraries: a
// reverse map from digest to the ordered set of locations holding that
// content, plus the per-library bookkeeping the resolver needs (orphan
// files and missing entries).
//
// An Index is a snapshot. It reflects file content at the instant of the
// IndexFiles call that built it and is never updated incrementally;
// rebuild it whenever the file set or content may have changed.
type Index struct {
	// byDigest maps each digest to its locations, each list sorted by
	// (library, key). Only files actually hashed during the build appear
	// here; missing entries do not.
	byDigest map[digest.Digest][]Location

	// orphans: library name -> keys of files on disk without an entry.
	orphans map[string][]string

	// missing: library name -> missing entry key -> cached digest (only
	// keys whose digest was computed at a previous indexing).
	missing map[string]map[string]digest.Digest

	// missingNoDigest: library name -> keys of missing entries that were
	// never indexed, for diagnostics.
	missingNoDigest map[string][]string
}

// Locations returns the locations holding content with the given digest,
// sorted by (library, key). The slice is a copy.
func (idx *Index) Locations(d digest.Digest) []Location {
	return append([]Location(nil), idx.byDigest[d]...)
}

// Orphans returns the keys of files found on disk in the named library
// with no corresponding entry, sorted.
func (idx *Index) Orphans(library string) []string {
	return append([]string(nil), idx.orphans[library]...)
}

// MissingKeys returns the keys of entries in the named library whose file
// was absent at index time, sorted. Entries that were never indexed (no
// cached digest) are included.
func (idx *Index) MissingKeys(library string) []string {
	keys := append([]string(nil), idx.missingNoDigest[library]...)
	for key := range idx.missing[library] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IndexFiles rebuilds the content-digest index from a full scan of every
// registered library that is currently loaded.
//
// Every file on disk under a library root (minus hidden segments and
// exclude patterns) is hashed, whether or not it has an entry; files with
// entries get their cached digest updated, files without become orphans.
// Entries whose file is gone are recorded as missing together with their
// last known digest.
//
// Cost is one digest computation per file (a configured digest cache
// reduces that to one stat for unchanged files). The scan fails outright
// on the first unrecoverable filesystem error.
func (r *Registry[D, LD]) IndexFiles() (*Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := &Index{
		byDigest:        make(map[digest.Digest][]Location),
		orphans:         make(map[string][]string),
		missing:         make(map[string]map[string]digest.Digest),
		missingNoDigest: make(map[string][]string),
	}

	hashed := 0
	for _, name := range r.sortedNames() {
		lib := r.libraries[name]

		keys, err := lib.store.scanKeys(lib.root, lib.exclude)
		if err != nil {
			return nil, err
		}

		onDisk := make(map[string]bool, len(keys))
		for _, key := range keys {
			onDisk[key] = true

			abs := pathutil.Join(lib.root, key)
			d, err := r.hasher.DigestFile(abs)
			if err != nil {
				return nil, newError(ErrIOError, fmt.Sprintf("failed to hash file: %v", err), abs)
			}
			hashed++

			idx.byDigest[d] = append(idx.byDigest[d], Location{Library: name, Key: key})

			if lib.store.Has(key) {
				lib.store.setDigest(key, d)
			} else {
				idx.orphans[name] = append(idx.orphans[name], key)
			}
		}

		for _, key := range lib.store.Keys() {
			if onDisk[key] {
				continue
			}
			if d, ok := lib.store.Digest(key); ok {
				if idx.missing[name] == nil {
					idx.missing[name] = make(map[string]digest.Digest)
				}
				idx.missing[name][key] = d
			} else {
				idx.missingNoDigest[name] = append(idx.missingNoDigest[name], key)
			}
		}
	}

	for _, locations := range idx.byDigest {
		sort.Slice(locations, func(i, j int) bool { return locations[i].less(locations[j]) })
	}
	for _, keys := range idx.orphans {
		sort.Strings(keys)
	}

	logger.Info("indexed %d files across %d libraries", hashed, len(r.libraries))
	return idx, nil
}
