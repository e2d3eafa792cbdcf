// Package storage defines file access for front-matter documents.
package storage

import "time"

// Entry describes one document file found by List.
type Entry struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for document file operations.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path, creating parent directories.
	Write(path string, content []byte) error
	// List returns every document file directly inside dir.
	List(dir string) ([]Entry, error)
	// Expand turns input locations into document paths: a directory yields
	// its document files, a file yields itself.
	Expand(paths ...string) ([]string, error)
}
