package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// indexTwice builds the index once so digests reach the entries, applies
// mutate to the filesystem, and builds a fresh index over the result.
func indexTwice(t *testing.T, reg *Registry[bookMeta, shelfInfo], mutate func()) *Index {
	t.Helper()
	_, err := reg.IndexFiles()
	require.NoError(t, err)
	mutate()
	idx, err := reg.IndexFiles()
	require.NoError(t, err)
	return idx
}

func TestResolve_TransplantsToOrphan(t *testing.T) {
	reg := newTestRegistry(t)
	root := newTestLibrary(t, reg, "Books")
	writeFile(t, root, "old.pdf", "document body")
	require.NoError(t, reg.InitLibrary("Books"))
	require.NoError(t, reg.SetEntry("Books", "old.pdf", bookMeta{Rating: 5, Note: "keeper"}))

	// Moved on disk without a refresh: the new location is an orphan.
	idx := indexTwice(t, reg, func() {
		moveFile(t, root, "old.pdf", root, "shelved/new.pdf")
	})

	resolutions, err := reg.ResolveMissingFiles("Books", idx)
	require.NoError(t, err)
	require.Equal(t, []Resolution{
		Remap{OldKey: "old.pdf", Target: Location{Library: "Books", Key: "shelved/new.pdf"}},
	}, resolutions)

	value, err := reg.Entry("Books", "shelved/new.pdf")
	require.NoError(t, err)
	require.Equal(t, bookMeta{Rating: 5, Note: "keeper"}, value)

	_, err = reg.Entry("Books", "old.pdf")
	requireCode(t, err, ErrEntryNotFound)
}

func TestResolve_MergesIntoRefreshedEntry(t *testing.T) {
	reg := newTestRegistry(t)
	root := newTestLibrary(t, reg, "Books")
	writeFile(t, root, "old.pdf", "document body")
	require.NoError(t, reg.InitLibrary("Books"))
	require.NoError(t, reg.SetEntry("Books", "old.pdf", bookMeta{Rating: 4, Tags: []string{"go"}}))

	idx := indexTwice(t, reg, func() {
		moveFile(t, root, "old.pdf", root, "new.pdf")
		// A refresh after the move gives the new location its own entry.
		added, err := reg.RefreshLibrary("Books")
		require.NoError(t, err)
		require.Len(t, added, 1)
		require.NoError(t, reg.SetEntry("Books", "new.pdf", bookMeta{Tags: []string{"pdf"}}))
	})

	resolutions, err := reg.ResolveMissingFiles("Books", idx)
	require.NoError(t, err)
	require.Equal(t, []Resolution{
		Remap{OldKey: "old.pdf", Target: Location{Library: "Books", Key: "new.pdf"}},
	}, resolutions)

	value, err := reg.Entry("Books", "new.pdf")
	require.NoError(t, err)
	require.Equal(t, bookMeta{Rating: 4, Tags: []string{"go", "pdf"}}, value)

	_, err = reg.Entry("Books", "old.pdf")
	requireCode(t, err, ErrEntryNotFound)
}

func TestResolve_ConflictLeavesBothEntries(t *testing.T) {
	reg := newTestRegistry(t)
	root := newTestLibrary(t, reg, "Books")
	writeFile(t, root, "old.pdf", "document body")
	require.NoError(t, reg.InitLibrary("Books"))
	require.NoError(t, reg.SetEntry("Books", "old.pdf", bookMeta{Note: "first impressions"}))

	idx := indexTwice(t, reg, func() {
		moveFile(t, root, "old.pdf", root, "new.pdf")
		_, err := reg.RefreshLibrary("Books")
		require.NoError(t, err)
		require.NoError(t, reg.SetEntry("Books", "new.pdf", bookMeta{Note: "second thoughts"}))
	})

	resolutions, err := reg.ResolveMissingFiles("Books", idx)
	require.NoError(t, err)
	require.Equal(t, []Resolution{
		Remap{OldKey: "old.pdf", Target: Location{Library: "Books", Key: "new.pdf"}},
	}, resolutions)

	// Unmergeable values: both entries survive untouched.
	stale, err := reg.Entry("Books", "old.pdf")
	require.NoError(t, err)
	require.Equal(t, bookMeta{Note: "first impressions"}, stale)

	existing, err := reg.Entry("Books", "new.pdf")
	require.NoError(t, err)
	require.Equal(t, bookMeta{Note: "second thoughts"}, existing)
}

func TestResolve_CrossLibrary(t *testing.T) {
	reg := newTestRegistry(t)
	booksRoot := newTestLibrary(t, reg, "Books")
	archiveRoot := newTestLibrary(t, reg, "Archive")
	writeFile(t, booksRoot, "doc.pdf", "document body")
	require.NoError(t, reg.InitLibrary("Books"))
	require.NoError(t, reg.InitLibrary("Archive"))
	require.NoError(t, reg.SetEntry("Books", "doc.pdf", bookMeta{Rating: 3}))

	idx := indexTwice(t, reg, func() {
		moveFile(t, booksRoot, "doc.pdf", archiveRoot, "2020/doc.pdf")
	})

	resolutions, err := reg.ResolveMissingFiles("Books", idx)
	require.NoError(t, err)
	require.Equal(t, []Resolution{
		Remap{OldKey: "doc.pdf", Target: Location{Library: "Archive", Key: "2020/doc.pdf"}},
	}, resolutions)

	value, err := reg.Entry("Archive", "2020/doc.pdf")
	require.NoError(t, err)
	require.Equal(t, bookMeta{Rating: 3}, value)
}

func TestResolve_NoCandidate(t *testing.T) {
	reg := newTestRegistry(t)
	root := newTestLibrary(t, reg, "Books")
	writeFile(t, root, "doc.pdf", "document body")
	require.NoError(t, reg.InitLibrary("Books"))

	idx := indexTwice(t, reg, func() {
		require.NoError(t, os.Remove(filepath.Join(root, "doc.pdf")))
	})

	resolutions, err := reg.ResolveMissingFiles("Books", idx)
	require.NoError(t, err)
	require.Equal(t, []Resolution{Missing{Key: "doc.pdf"}}, resolutions)

	// Unresolvable entries stay: the file may reappear at the next index.
	_, err = reg.Entry("Books", "doc.pdf")
	require.NoError(t, err)
}

func TestResolve_DeterministicCandidateChoice(t *testing.T) {
	reg := newTestRegistry(t)
	root := newTestLibrary(t, reg, "Books")
	writeFile(t, root, "doc.pdf", "document body")
	require.NoError(t, reg.InitLibrary("Books"))

	idx := indexTwice(t, reg, func() {
		require.NoError(t, os.Remove(filepath.Join(root, "doc.pdf")))
		writeFile(t, root, "copy-z.pdf", "document body")
		writeFile(t, root, "copy-a.pdf", "document body")
	})

	resolutions, err := reg.ResolveMissingFiles("Books", idx)
	require.NoError(t, err)
	require.Equal(t, []Resolution{
		Remap{OldKey: "doc.pdf", Target: Location{Library: "Books", Key: "copy-a.pdf"}},
	}, resolutions)
}

func TestResolve_LaterKeysSeeEarlierTransplants(t *testing.T) {
	reg := newTestRegistry(t)
	root := newTestLibrary(t, reg, "Books")
	writeFile(t, root, "m1.pdf", "document body")
	writeFile(t, root, "m2.pdf", "document body")
	require.NoError(t, reg.InitLibrary("Books"))
	require.NoError(t, reg.SetEntry("Books", "m1.pdf", bookMeta{Tags: []string{"one"}}))
	require.NoError(t, reg.SetEntry("Books", "m2.pdf", bookMeta{Tags: []string{"two"}}))

	idx := indexTwice(t, reg, func() {
		require.NoError(t, os.Remove(filepath.Join(root, "m1.pdf")))
		require.NoError(t, os.Remove(filepath.Join(root, "m2.pdf")))
		writeFile(t, root, "found.pdf", "document body")
	})

	resolutions, err := reg.ResolveMissingFiles("Books", idx)
	require.NoError(t, err)
	require.Equal(t, []Resolution{
		Remap{OldKey: "m1.pdf", Target: Location{Library: "Books", Key: "found.pdf"}},
		Remap{OldKey: "m2.pdf", Target: Location{Library: "Books", Key: "found.pdf"}},
	}, resolutions)

	// m1 transplanted first; m2 then merged into the freshly created entry.
	value, err := reg.Entry("Books", "found.pdf")
	require.NoError(t, err)
	require.Equal(t, bookMeta{Tags: []string{"one", "two"}}, value)
}

func TestResolve_UnknownLibrary(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.ResolveMissingFiles("Nope", &Index{})
	requireCode(t, err, ErrLibraryNotFound)
}
