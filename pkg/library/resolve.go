package library

import (
	"sort"

	"github.com/shelf-db/shelf/internal/logger"
)

// ResolveMissingFiles reconciles the entries of the named library whose
// backing file disappeared, using the given index snapshot.
//
// The caller is responsible for the preconditions (not re-checked here):
// every library freshly initialized or refreshed, and idx produced by an
// IndexFiles call immediately before, with no filesystem changes since.
//
// For each entry whose digest was computed at a previous indexing but
// whose file is now absent, the index is searched for another location
// with the same digest. When several locations qualify, the
// lexicographically smallest (library, key) is chosen so results are
// reproducible given identical input state. What happens then depends on
// the candidate:
//
//   - The candidate file has no entry (an orphan, e.g. the library was
//     initialized but not refreshed): the stale entry is transplanted to
//     the candidate location, keeping its metadata value and digest.
//   - The candidate already has an ordinarily-created entry (e.g.
//     auto-added by a prior refresh): the codec's Merge combines the two
//     values. A combined value replaces the candidate's entry and the
//     stale entry is removed. If Merge declines, both entries are
//     deliberately left in place, a conflict for manual resolution rather
//     than silent data loss.
//
// Either way a Remap is emitted. Entries with no candidate produce a
// Missing result and are left untouched: absence of a match does not
// prove deletion, the file may simply not have been indexed yet.
//
// Decisions consult live store state, not the index snapshot, so a
// transplant performed earlier in the same call is visible to later
// resolutions.
func (r *Registry[D, LD]) ResolveMissingFiles(name string, idx *Index) ([]Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lib, ok := r.libraries[name]
	if !ok {
		return nil, newError(ErrLibraryNotFound, "no library with this name", name)
	}

	missing := idx.missing[name]
	keys := make([]string, 0, len(missing))
	for key := range missing {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	results := make([]Resolution, 0, len(keys))
	for _, key := range keys {
		// A previous resolution in this call may have already removed
		// the stale entry.
		if !lib.store.Has(key) {
			continue
		}

		d := missing[key]
		candidates := idx.byDigest[d]
		if len(candidates) == 0 {
			logger.Debug("no relocation candidate for %q in library %q", key, name)
			results = append(results, Missing{Key: key})
			continue
		}
		target := candidates[0]

		targetLib := r.libraries[target.Library]
		if targetLib == nil {
			// Index built against a registry state that no longer holds
			// this library; treat as unresolvable.
			results = append(results, Missing{Key: key})
			continue
		}

		staleValue, err := lib.store.Get(key)
		if err != nil {
			return nil, err
		}

		if targetLib.store.Has(target.Key) {
			existing, err := targetLib.store.Get(target.Key)
			if err != nil {
				return nil, err
			}
			if merged, combined := r.entryCodec.Merge(staleValue, existing); combined {
				if err := targetLib.store.Set(target.Key, merged); err != nil {
					return nil, err
				}
				if err := lib.store.RemoveEntry(key); err != nil {
					return nil, err
				}
				logger.Debug("merged %q of library %q into %q of library %q",
					key, name, target.Key, target.Library)
			} else {
				// Documented policy choice: an unmergeable pair stays as
				// two distinct entries instead of failing the resolution.
				logger.Info("metadata conflict between (%s, %s) and (%s, %s) left for manual resolution",
					name, key, target.Library, target.Key)
			}
		} else {
			e := &entry[D]{value: staleValue, dig: d, hasDigest: true}
			if err := lib.store.RemoveEntry(key); err != nil {
				return nil, err
			}
			targetLib.store.create(target.Key, e)
			logger.Debug("remapped %q of library %q to %q of library %q",
				key, name, target.Key, target.Library)
		}

		results = append(results, Remap{OldKey: key, Target: target})
	}

	return results, nil
}
