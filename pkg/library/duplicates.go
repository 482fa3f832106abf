package library

import (
	"sort"

	"github.com/shelf-db/shelf/pkg/digest"
)

// Duplicates groups the index's locations by digest and returns one group
// per digest held by more than one location. Grouping is exact content
// equality; singleton buckets (unique content) are omitted.
//
// Groups are ordered by digest and members by (library, key), so two calls
// on the same index return identical output.
func (idx *Index) Duplicates() [][]Location {
	digests := make([]digest.Digest, 0, len(idx.byDigest))
	for d, locations := range idx.byDigest {
		if len(locations) > 1 {
			digests = append(digests, d)
		}
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i] < digests[j] })

	groups := make([][]Location, 0, len(digests))
	for _, d := range digests {
		groups = append(groups, append([]Location(nil), idx.byDigest[d]...))
	}
	return groups
}

// FindDuplicates is the registry-level convenience for Index.Duplicates.
func (r *Registry[D, LD]) FindDuplicates(idx *Index) [][]Location {
	return idx.Duplicates()
}
