package photos

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore persists uploaded photo bytes and serves them back.
type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader) (path string, size int64, err error)
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)
	Remove(ctx context.Context, path string) error
}

// DiskStore keeps photo bytes under a base directory. Stored paths are
// relative to the base so the directory can move between environments.
type DiskStore struct {
	base string
}

// NewDiskStore ensures the base directory exists and returns a store over it.
func NewDiskStore(base string) (*DiskStore, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("uploads directory required")
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &DiskStore{base: base}, nil
}

func (s *DiskStore) Save(ctx context.Context, name string, r io.Reader) (string, int64, error) {
	rel := uuid.NewString() + sanitizeExt(name)
	full := filepath.Join(s.base, rel)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create photo file: %w", err)
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, fmt.Errorf("write photo file: %w", err)
	}
	return rel, size, nil
}

func (s *DiskStore) Open(ctx context.Context, path string) (io.ReadSeekCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *DiskStore) Remove(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// resolve rejects any stored path that would escape the base directory.
func (s *DiskStore) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage path %q", path)
	}
	return filepath.Join(s.base, clean), nil
}

func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return ext
	default:
		return ""
	}
}
