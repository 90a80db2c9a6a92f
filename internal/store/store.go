// Package store provides file-backed persistence for the pipeline's
// operational state. All writes go through write-temp-then-atomic-rename so
// an external reader never observes a partially written file.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stride-dev/stride/internal/errors"
)

// FileStore is a key-to-file store rooted at a base directory. Keys use "/"
// as path separators.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a new FileStore rooted at the given directory.
// The directory will be created if it doesn't exist.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FileStore) BaseDir() string {
	return fs.baseDir
}

// Save persists data with the given key using atomic write.
func (fs *FileStore) Save(key string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.keyToPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return AtomicWriteFile(path, data, 0644)
}

// Load retrieves data for the given key.
func (fs *FileStore) Load(key string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete removes the data associated with the given key.
func (fs *FileStore) Delete(key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.keyToPath(key)); err != nil {
		if os.IsNotExist(err) {
			return errors.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks if a key exists without loading its data.
func (fs *FileStore) Exists(key string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := os.Stat(fs.keyToPath(key))
	return err == nil
}

// List returns all keys matching the given prefix.
func (fs *FileStore) List(prefix string) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var keys []string
	err := filepath.Walk(fs.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(fs.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func (fs *FileStore) keyToPath(key string) string {
	return filepath.Join(fs.baseDir, filepath.FromSlash(key))
}

// AtomicWriteFile writes data to a file atomically by writing to a
// temporary file first, then renaming. This ensures the target file is
// never observed in a partially-written state.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Create temp file in same directory to ensure atomic rename
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
