package filestore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// UploadStore keeps uploaded originals on disk, one file per book id
type UploadStore struct {
	dir string
}

func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadStore{dir: dir}, nil
}

func (s *UploadStore) Path(id string) string {
	return filepath.Join(s.dir, id)
}

func (s *UploadStore) Save(id string, data []byte) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(id), data, 0o644); err != nil {
		return fmt.Errorf("write upload %s: %w", id, err)
	}
	return nil
}

// Remove deletes the stored file; a missing file is not an error.
func (s *UploadStore) Remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := os.Remove(s.Path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload %s: %w", id, err)
	}
	return nil
}

func (s *UploadStore) Exists(id string) bool {
	if validateID(id) != nil {
		return false
	}
	info, err := os.Stat(s.Path(id))
	return err == nil && !info.IsDir()
}

// List returns the ids of every stored upload.
func (s *UploadStore) List() (map[string]struct{}, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	ids := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ids[entry.Name()] = struct{}{}
	}
	return ids, nil
}

func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid upload id %q", id)
	}
	return nil
}
