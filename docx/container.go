package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// part is one file inside the container, in archive order.
type part struct {
	name string
	data []byte
}

// readParts loads every part of the container at path into memory, preserving
// archive order. This is the round-trip entry point: writing the parts back
// out yields a clean copy without ever touching the source file.
func readParts(path string) ([]part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read container: %w", err)
	}
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}

	parts := make([]part, 0, len(reader.File))
	for _, file := range reader.File {
		if strings.HasSuffix(file.Name, "/") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", file.Name, err)
		}
		parts = append(parts, part{name: file.Name, data: content})
	}
	if findPart(parts, documentPart) < 0 {
		return nil, fmt.Errorf("container missing %s", documentPart)
	}
	return parts, nil
}

func findPart(parts []part, name string) int {
	for i := range parts {
		if parts[i].name == name {
			return i
		}
	}
	return -1
}

// writeParts serializes parts into a new container at outPath.
func writeParts(outPath string, parts []part) (err error) {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close container: %w", cerr)
		}
	}()

	zw := zip.NewWriter(f)
	for _, p := range parts {
		w, werr := zw.Create(p.name)
		if werr != nil {
			return fmt.Errorf("create part %s: %w", p.name, werr)
		}
		if _, werr := w.Write(p.data); werr != nil {
			return fmt.Errorf("write part %s: %w", p.name, werr)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize container: %w", err)
	}
	return nil
}

// unpackTo extracts parts into dir, creating intermediate directories.
func unpackTo(dir string, parts []part) error {
	for _, p := range parts {
		dest := filepath.Join(dir, filepath.FromSlash(p.name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("create scratch dir: %w", err)
		}
		if err := os.WriteFile(dest, p.data, 0o644); err != nil {
			return fmt.Errorf("write scratch part %s: %w", p.name, err)
		}
	}
	return nil
}

// packDir walks dir and zips every file into outPath with slash-separated
// archive names relative to dir.
func packDir(dir, outPath string) error {
	var parts []part
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		parts = append(parts, part{name: filepath.ToSlash(rel), data: data})
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk scratch dir: %w", err)
	}
	return writeParts(outPath, parts)
}
