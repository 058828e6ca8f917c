package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FSStore keeps documents as plain files under a root directory, one file per
// key. Writes go through a temp file in the destination directory followed by
// a rename, so readers never observe a partially written document.
type FSStore struct {
	root string
}

// Compile-time interface check.
var _ Store = (*FSStore)(nil)

// NewFSStore creates a filesystem store rooted at root, creating the
// directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if root == "" {
		return nil, errors.New("filesystem blob store requires a root directory")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}

	return &FSStore{root: root}, nil
}

// keyPath maps a blob key to a file path under the root, rejecting keys that
// would escape it.
func (s *FSStore) keyPath(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty blob key")
	}

	cleaned := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("blob key %q escapes the store root", key)
	}

	return filepath.Join(s.root, cleaned), nil
}

// Put writes data under key, creating parent directories as needed.
func (s *FSStore) Put(_ context.Context, key string, data []byte) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create blob directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("write blob %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("close blob %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("commit blob %s: %w", key, err)
	}

	return nil
}

// Get returns the document under key, or ErrNotFound.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is constrained to the store root
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}

	return data, nil
}

// Exists reports whether a document exists under key.
func (s *FSStore) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat blob %s: %w", key, err)
	}

	return true, nil
}
