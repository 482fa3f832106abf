// Package pathutil provides the path value operations the library engine
// consumes: joining roots with relative keys, stripping roots off absolute
// paths, and the hidden-segment rule that keeps metadata mirrors out of
// file scans.
//
// Entry keys are always slash-separated relative paths, regardless of the
// host separator. Conversion happens at the boundary: Join produces a
// platform path, Strip produces a slash path.
package pathutil

import (
	"path/filepath"
	"strings"
)

// Join resolves a slash-separated relative key against an absolute root,
// producing a platform absolute path.
func Join(root, key string) string {
	return filepath.Join(root, filepath.FromSlash(key))
}

// Strip returns the slash-separated path of abs relative to root.
// The second return value is false if abs does not lie under root.
func Strip(root, abs string) (key string, inside bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Leaf returns the last segment of a path.
func Leaf(path string) string {
	return filepath.Base(path)
}

// IsHidden reports whether any segment of path starts with a dot.
// The rule applies uniformly to every segment, not just the first, so a
// metadata mirror nested anywhere in a tree is excluded from scans.
func IsHidden(path string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == "" || segment == "." || segment == ".." {
			continue
		}
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}
