package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pankaj-dahiya-devops/accountguard/internal/models"
)

const latestFile = "latest.json.zst"

// FileStore keeps the latest result in a directory on disk.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is created
// on first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the file holding the latest result.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, latestFile)
}

// Save implements Store. The file is replaced atomically so a concurrent
// Latest never sees a partial write.
func (s *FileStore) Save(_ context.Context, r *models.AnalysisResult) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create store dir %q: %w", s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, latestFile+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("replace %q: %w", s.Path(), err)
	}
	return nil
}

// Latest implements Store.
func (s *FileStore) Latest(context.Context) (*models.AnalysisResult, error) {
	data, err := os.ReadFile(s.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", s.Path(), err)
	}
	return decode(data)
}
