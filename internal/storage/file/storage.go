package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage stores image files on the local filesystem under a root directory.
// The worker processes images by plain path, so the API and the workers must
// share this filesystem.
type Storage struct {
	root string
}

// NewStorage creates the root directory if needed and returns the storage.
func NewStorage(root string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Storage{root: root}, nil
}

// Save writes the file under the root and returns its path. An existing file
// at the same name is overwritten.
func (s *Storage) Save(filename string, src io.Reader) (string, error) {
	path := filepath.Join(s.root, filename)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// Open returns a reader over the stored file.
func (s *Storage) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Exists reports whether a regular file is present at path.
func (s *Storage) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the file size in bytes.
func (s *Storage) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	return info.Size(), nil
}

// Remove deletes the stored file. Removing a file that is already gone is
// not an error.
func (s *Storage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	return nil
}
