package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DirStore writes previews into a local directory. Files appear atomically:
// a reader never sees a partially written preview.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir. The directory is created on the
// first Put.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// Put writes data to root/key and returns the file's absolute path.
func (s *DirStore) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if key == "" || filepath.Base(key) != key || key == "." || key == ".." {
		return "", fmt.Errorf("invalid preview key %q", key)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create publish dir: %w", err)
	}

	dest := filepath.Join(s.root, key)
	if err := WriteFileAtomic(dest, data, 0o644); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		abs = dest
	}
	log.Debugf("published %s (%d bytes)", abs, len(data))
	return abs, nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	tmpName = ""
	return nil
}
