package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"statement-worker/internal/domain"
)

var _ domain.ObjectStore = (*FSStore)(nil)

// FSStore writes result objects under a local directory. The bucket segment
// of the object path becomes a subdirectory of the root. Intended for
// development and tests.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at the given directory.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// WriteBytes writes data to {root}/{path}, creating directories as needed.
func (s *FSStore) WriteBytes(_ context.Context, path string, data []byte) error {
	if _, _, err := splitPath(path); err != nil {
		return err
	}

	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directory for %q: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write file %q: %w", path, err)
	}
	return nil
}
