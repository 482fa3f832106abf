// Package fsops defines the filesystem capability interface consumed by the
// library engine, together with a local-disk implementation.
//
// The engine never touches the os package directly; everything it needs from
// the filesystem goes through Ops. This keeps the engine testable and keeps
// the surface of filesystem behavior it depends on explicit.
package fsops

import "errors"

// ErrNotDirectory is wrapped into errors returned by ListFiles when the
// given root does not exist or is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Ops is the set of filesystem primitives the library engine consumes.
//
// All operations are synchronous and return on first failure; there are no
// retries and no partial results. Paths are platform absolute paths.
type Ops interface {
	// ListFiles returns the absolute paths of all regular files reachable
	// under root, in lexical order. When skipHidden is set, any path with a
	// dot-prefixed segment below root is omitted and hidden directories are
	// not descended into. Returns an error wrapping ErrNotDirectory if root
	// does not exist or is not a directory.
	ListFiles(root string, skipHidden bool) ([]string, error)

	// ListDir returns the names of the immediate children of dir, files
	// and directories alike.
	ListDir(dir string) ([]string, error)

	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to path, replacing any existing content.
	WriteFile(path string, data []byte) error

	// Move renames src to dst. It does not create missing parent
	// directories and does not copy across devices.
	Move(src, dst string) error

	// Delete removes a single file or empty directory.
	Delete(path string) error

	// DeleteRecursive removes dir and everything below it. Removing a
	// path that does not exist is not an error.
	DeleteRecursive(dir string) error

	// MakeDirs creates path and all missing parents.
	MakeDirs(path string) error

	// Exists reports whether path exists (file or directory).
	Exists(path string) (bool, error)

	// DirExists reports whether path exists and is a directory.
	DirExists(path string) (bool, error)
}
