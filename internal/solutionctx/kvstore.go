package solutionctx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned by KVStore.Read for a missing key.
var ErrNotExist = errors.New("key does not exist")

// KVStore persists small values by key.
type KVStore interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// FileStore is a KVStore keeping one file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory must exist.
func NewFileStore(dir string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve context dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("context dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("context dir %s is not a directory", abs)
	}
	return &FileStore{dir: abs}, nil
}

// Dir returns the absolute directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file path for key.
func (s *FileStore) Path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *FileStore) Read(key string) ([]byte, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Write replaces key atomically via a temp file and rename. Each write uses
// its own temp file, so concurrent writers never share one.
func (s *FileStore) Write(key string, data []byte) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
