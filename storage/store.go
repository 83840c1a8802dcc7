// Package storage keeps uploaded source documents and generated reviewed
// documents as flat files under separate upload and output locations.
package storage

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// Store is the flat-file layout behind the review service. The filesystem is
// injected so tests run against an in-memory fs.
type Store struct {
	fs        afero.Fs
	uploadDir string
	outputDir string
}

func New(fs afero.Fs, uploadDir, outputDir string) *Store {
	return &Store{fs: fs, uploadDir: uploadDir, outputDir: outputDir}
}

// Init creates the upload and output directories.
func (s *Store) Init() error {
	for _, dir := range []string{s.uploadDir, s.outputDir} {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// SaveUpload writes an uploaded document under the upload dir with a
// sanitized filename and returns its path.
func (s *Store) SaveUpload(name string, r io.Reader) (string, error) {
	clean := SanitizeFilename(name)
	if clean == "" {
		return "", fmt.Errorf("invalid filename %q", name)
	}
	path := filepath.Join(s.uploadDir, clean)

	f, err := s.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// ReadUpload reads an uploaded document back through the store's filesystem.
// Paths outside the upload dir are rejected.
func (s *Store) ReadUpload(path string) ([]byte, error) {
	if filepath.Dir(path) != filepath.Clean(s.uploadDir) {
		return nil, fmt.Errorf("path %q outside upload dir", path)
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

// OutputPath returns the path a generated document of the given name lives
// at.
func (s *Store) OutputPath(name string) string {
	return filepath.Join(s.outputDir, name)
}

// OpenOutput opens a generated document by bare name. Names carrying path
// separators or traversal segments are rejected.
func (s *Store) OpenOutput(name string) (afero.File, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid output name %q", name)
	}
	f, err := s.fs.Open(filepath.Join(s.outputDir, name))
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return f, nil
}

// RemoveUpload deletes an uploaded source file.
func (s *Store) RemoveUpload(path string) error {
	if filepath.Dir(path) != filepath.Clean(s.uploadDir) {
		return fmt.Errorf("path %q outside upload dir", path)
	}
	return s.fs.Remove(path)
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename flattens a client-supplied filename to a safe basename:
// path components dropped, whitespace and special characters collapsed to
// underscores.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.TrimSpace(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return ""
	}
	return name
}
