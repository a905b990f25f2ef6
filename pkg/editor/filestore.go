package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File store errors.
var (
	ErrEmptyPath   = errors.New("asset path is empty")
	ErrOutsideRoot = errors.New("asset path escapes the asset root")
)

// DefaultAssetPrefix is the project-relative prefix assets are addressed
// under. Callers may pass paths with or without it.
const DefaultAssetPrefix = "Assets"

// DiskFileStore is a FileStore rooted at a directory on disk.
type DiskFileStore struct {
	root   string
	prefix string
}

// NewDiskFileStore creates a file store rooted at dir. The prefix is
// stripped from incoming paths when present, so "Assets/Scripts/A.cs" and
// "Scripts/A.cs" address the same file.
func NewDiskFileStore(dir string) *DiskFileStore {
	return &DiskFileStore{root: dir, prefix: DefaultAssetPrefix}
}

// Root returns the store's root directory.
func (s *DiskFileStore) Root() string {
	return s.root
}

// normalize resolves an incoming asset path to an absolute path under the
// root, tolerating a leading prefix and rejecting escapes.
func (s *DiskFileStore) normalize(p string) (string, error) {
	if p == "" {
		return "", ErrEmptyPath
	}

	p = filepath.ToSlash(filepath.Clean(p))
	if p == s.prefix {
		return "", fmt.Errorf("%w: %q names the root itself", ErrEmptyPath, p)
	}
	p = strings.TrimPrefix(p, s.prefix+"/")

	if p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}

	return filepath.Join(s.root, filepath.FromSlash(p)), nil
}

// ReadText reads an asset as text.
func (s *DiskFileStore) ReadText(path string) (string, error) {
	full, err := s.normalize(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteText writes an asset as text, creating parent directories.
func (s *DiskFileStore) WriteText(path, content string) error {
	return s.WriteBytes(path, []byte(content))
}

// WriteBytes writes a binary asset, creating parent directories.
func (s *DiskFileStore) WriteBytes(path string, data []byte) error {
	full, err := s.normalize(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
