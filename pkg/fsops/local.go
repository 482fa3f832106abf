package fsops

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/shelf-db/shelf/pkg/pathutil"
)

// Local implements Ops on the local filesystem.
type Local struct{}

// NewLocal returns an Ops backed by the os package.
func NewLocal() *Local {
	return &Local{}
}

// ListFiles walks root and collects regular files.
//
// filepath.WalkDir visits entries in lexical order, so the returned slice
// is already sorted and deterministic across runs.
func (l *Local) ListFiles(root string, skipHidden bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var files []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if skipHidden {
			// Only segments below root count as hidden; a root like
			// /home/user/.library must remain scannable.
			rel, inside := pathutil.Strip(root, path)
			if inside && pathutil.IsHidden(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, walkErr)
	}
	return files, nil
}

func (l *Local) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (l *Local) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (l *Local) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

func (l *Local) Move(src, dst string) error {
	return os.Rename(src, dst)
}

func (l *Local) Delete(path string) error {
	return os.Remove(path)
}

func (l *Local) DeleteRecursive(dir string) error {
	return os.RemoveAll(dir)
}

func (l *Local) MakeDirs(path string) error {
	return os.MkdirAll(path, 0755)
}

func (l *Local) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence of %s: %w", path, err)
	}
	return true, nil
}

func (l *Local) DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existence of %s: %w", path, err)
	}
	return info.IsDir(), nil
}
