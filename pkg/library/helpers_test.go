package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// bookMeta is the per-entry metadata type used throughout the engine tests.
type bookMeta struct {
	Tags   []string `json:"tags,omitempty"`
	Rating int      `json:"rating,omitempty"`
	Note   string   `json:"note,omitempty"`
}

type bookCodec struct{}

func (bookCodec) Encode(v bookMeta) ([]byte, error) {
	return json.Marshal(v)
}

func (bookCodec) Decode(data []byte) (bookMeta, error) {
	var v bookMeta
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&v); err != nil {
		return bookMeta{}, err
	}
	return v, nil
}

func (bookCodec) Default() bookMeta {
	return bookMeta{}
}

// Merge combines two values unless both carry distinct notes; notes hold
// free text, so overwriting either silently would lose information.
func (bookCodec) Merge(stale, existing bookMeta) (bookMeta, bool) {
	if stale.Note != "" && existing.Note != "" && stale.Note != existing.Note {
		return bookMeta{}, false
	}

	merged := existing
	if merged.Note == "" {
		merged.Note = stale.Note
	}
	if merged.Rating == 0 {
		merged.Rating = stale.Rating
	}
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range append(append([]string(nil), existing.Tags...), stale.Tags...) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	merged.Tags = tags
	return merged, true
}

func (bookCodec) Describe(v bookMeta) string {
	return fmt.Sprintf("rating=%d note=%q tags=%v", v.Rating, v.Note, v.Tags)
}

// shelfInfo is the library-level metadata type used in tests.
type shelfInfo struct {
	Owner string `json:"owner,omitempty"`
}

type shelfCodec struct{}

func (shelfCodec) Encode(v shelfInfo) ([]byte, error) {
	return json.Marshal(v)
}

func (shelfCodec) Decode(data []byte) (shelfInfo, error) {
	var v shelfInfo
	if err := json.Unmarshal(data, &v); err != nil {
		return shelfInfo{}, err
	}
	return v, nil
}

func (shelfCodec) Default() shelfInfo {
	return shelfInfo{}
}

func (shelfCodec) Merge(stale, existing shelfInfo) (shelfInfo, bool) {
	if existing.Owner != "" {
		return existing, true
	}
	return stale, true
}

func (shelfCodec) Describe(v shelfInfo) string {
	return fmt.Sprintf("owner=%q", v.Owner)
}

func newTestRegistry(t *testing.T) *Registry[bookMeta, shelfInfo] {
	t.Helper()
	return NewRegistry[bookMeta, shelfInfo](bookCodec{}, shelfCodec{}, nil)
}

// newTestLibrary registers a library over a fresh temp root and returns
// its name and root.
func newTestLibrary(t *testing.T, reg *Registry[bookMeta, shelfInfo], name string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, reg.NewLibrary(name, root, shelfInfo{}))
	return root
}

func writeFile(t *testing.T, root, key, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func moveFile(t *testing.T, srcRoot, srcKey, dstRoot, dstKey string) {
	t.Helper()
	src := filepath.Join(srcRoot, filepath.FromSlash(srcKey))
	dst := filepath.Join(dstRoot, filepath.FromSlash(dstKey))
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0755))
	require.NoError(t, os.Rename(src, dst))
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.True(t, IsCode(err, code), "expected domain code %v, got error: %v", code, err)
}

func mirrorDoc(root, key string) string {
	return filepath.Join(root, MetadataDirName, filepath.FromSlash(key)+metadataFileSuffix)
}
