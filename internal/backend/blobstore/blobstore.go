package blobstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyFilename is returned when a filename is empty after sanitizing.
var ErrEmptyFilename = errors.New("filename is empty after sanitizing")

// BlobStore persists raw uploaded image bytes on the filesystem, keyed by
// sanitized filename. It is deliberately not transactional with the record
// store; a crash between blob write and record insert can orphan a file.
type BlobStore struct {
	root string
}

// NewBlobStore creates the root directory if it does not exist yet.
func NewBlobStore(root string) (*BlobStore, error) {
	if root == "" {
		return nil, errors.New("blob store root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob store root %s: %w", root, err)
	}
	return &BlobStore{root: root}, nil
}

func (s *BlobStore) Root() string {
	return s.root
}

// Write stores data under the given sanitized filename. An existing file of
// the same name is overwritten; there is no collision detection.
func (s *BlobStore) Write(filename string, data []byte) error {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return err
	}
	path := filepath.Join(s.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", name, err)
	}
	return nil
}

// Read returns the stored bytes for the given filename. The name is sanitized
// again before touching the filesystem so a stored name can never escape root.
func (s *BlobStore) Read(filename string) ([]byte, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return data, nil
}

func (s *BlobStore) Exists(filename string) bool {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(s.root, name))
	return err == nil
}

// SanitizeFilename strips path components and collapses characters outside
// [A-Za-z0-9_.-] to underscores so the result is always a plain file name
// inside the blob root. Leading dots and dashes are dropped to avoid hidden
// files and flag-like names. Returns ErrEmptyFilename when nothing survives.
func SanitizeFilename(filename string) (string, error) {
	// Drop any path prefix, whichever separator the client used
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	name = strings.TrimLeft(b.String(), ".-")
	if name == "" || strings.Trim(name, "._-") == "" {
		return "", ErrEmptyFilename
	}
	return name, nil
}
