package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store keeps uploaded submission files on disk under a base directory.
// Keys are opaque names generated at upload time; the store never trusts
// user-supplied paths.
type Store struct {
	base string
}

func NewStore(base string) (*Store, error) {
	if base == "" {
		base = "./uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{base: base}, nil
}

func (s *Store) Save(key string, r io.Reader) error {
	if key == "" {
		return errors.New("empty file key")
	}
	dst := filepath.Join(s.base, filepath.Base(filepath.Clean(key)))
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Open returns the stored bytes for a key. The caller owns the closer.
// os.ErrNotExist surfaces unchanged so callers can map it to their own
// not-found semantics.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.base, filepath.Base(filepath.Clean(key))))
}
