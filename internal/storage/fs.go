package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/fmkit/internal/checksum"
)

// DefaultExtension is the document file extension picked up from directories.
const DefaultExtension = ".md"

const newFilePerm fs.FileMode = 0o644

// FS implements Provider backed by the local file system.
type FS struct {
	ext string // extension of document files, e.g. ".md"
}

// NewFS creates a file system provider that treats files ending in ext as
// documents. An empty ext means DefaultExtension.
func NewFS(ext string) *FS {
	if ext == "" {
		ext = DefaultExtension
	}
	return &FS{ext: ext}
}

// Read returns the raw bytes of a file.
func (f *FS) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename. An existing
// file keeps its permission bits.
func (f *FS) Write(path string, content []byte) error {
	if path == "" {
		return errors.New("storage: empty path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	perm := newFilePerm
	if info, err := os.Stat(path); err == nil {
		if !info.Mode().IsRegular() {
			return fmt.Errorf("storage: not a regular file: %s", path)
		}
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, ".fmkit-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// List returns metadata for every document file directly inside dir, in
// lexical order.
func (f *FS) List(dir string) ([]Entry, error) {
	paths, err := f.documentsIn(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, Entry{
			Path:      p,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Expand resolves input locations in order. Directories contribute their
// document files (not recursively); regular files are passed through
// whatever their extension. A location that does not exist is an error.
func (f *FS) Expand(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("storage: expand %s: %w", p, err)
		}
		switch {
		case info.IsDir():
			docs, err := f.documentsIn(p)
			if err != nil {
				return nil, err
			}
			out = append(out, docs...)
		case info.Mode().IsRegular():
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *FS) documentsIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if !f.IsDocument(e.Name()) || !e.Type().IsRegular() {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// IsDocument reports whether name carries the document extension. Temp
// files left by Write never qualify.
func (f *FS) IsDocument(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, f.ext) && !strings.HasPrefix(base, ".fmkit-tmp-")
}
