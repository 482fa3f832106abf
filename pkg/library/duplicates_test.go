package library

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDuplicates(t *testing.T) {
	reg := newTestRegistry(t)
	booksRoot := newTestLibrary(t, reg, "Books")
	papersRoot := newTestLibrary(t, reg, "Papers")

	writeFile(t, booksRoot, "a.pdf", "first body")
	writeFile(t, booksRoot, "copies/a2.pdf", "first body")
	writeFile(t, papersRoot, "a3.pdf", "first body")
	writeFile(t, booksRoot, "b.pdf", "second body")
	writeFile(t, papersRoot, "b2.pdf", "second body")
	writeFile(t, booksRoot, "unique.pdf", "nothing like me")

	require.NoError(t, reg.InitLibrary("Books"))
	require.NoError(t, reg.InitLibrary("Papers"))

	idx, err := reg.IndexFiles()
	require.NoError(t, err)

	groups := reg.FindDuplicates(idx)
	require.Len(t, groups, 2, "unique content must not form a group")

	require.Contains(t, groups, []Location{
		{Library: "Books", Key: "a.pdf"},
		{Library: "Books", Key: "copies/a2.pdf"},
		{Library: "Papers", Key: "a3.pdf"},
	})
	require.Contains(t, groups, []Location{
		{Library: "Books", Key: "b.pdf"},
		{Library: "Papers", Key: "b2.pdf"},
	})

	// Deterministic output: a second pass over the same index is identical.
	require.Equal(t, groups, idx.Duplicates())
}

func TestDuplicates_IncludesOrphans(t *testing.T) {
	reg := newTestRegistry(t)
	root := newTestLibrary(t, reg, "Books")
	writeFile(t, root, "tracked.pdf", "same body")
	require.NoError(t, reg.InitLibrary("Books"))

	// Written after init: hashed during indexing but entry-less.
	writeFile(t, root, "stray.pdf", "same body")

	idx, err := reg.IndexFiles()
	require.NoError(t, err)

	require.Equal(t, [][]Location{{
		{Library: "Books", Key: "stray.pdf"},
		{Library: "Books", Key: "tracked.pdf"},
	}}, idx.Duplicates())
}

func TestDuplicates_NoGroups(t *testing.T) {
	reg := newTestRegistry(t)
	root := newTestLibrary(t, reg, "Books")
	writeFile(t, root, "a.pdf", "first body")
	writeFile(t, root, "b.pdf", "second body")
	require.NoError(t, reg.InitLibrary("Books"))

	idx, err := reg.IndexFiles()
	require.NoError(t, err)
	require.Empty(t, idx.Duplicates())
}
