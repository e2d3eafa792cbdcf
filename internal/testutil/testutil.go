// Package testutil provides shared test helpers for document directories,
// loggers, and write-counting storage.
package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/fmkit/internal/storage"
)

// WriteDoc writes content to dir/name and returns the full path.
func WriteDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadDoc returns the content of path as a string.
func ReadDoc(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// Logger returns a logger that drops everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CaptureLogger returns a debug-level text logger writing into the returned buffer.
func CaptureLogger() (*slog.Logger, *SafeBuffer) {
	buf := &SafeBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// SafeBuffer is a bytes.Buffer safe for concurrent use.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// RecordingStore is a storage.FS that remembers every path written.
type RecordingStore struct {
	*storage.FS

	mu     sync.Mutex
	writes []string
}

// NewRecordingStore wraps a default storage.FS.
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{FS: storage.NewFS("")}
}

// Write records path and delegates to the file system.
func (s *RecordingStore) Write(path string, content []byte) error {
	s.mu.Lock()
	s.writes = append(s.writes, path)
	s.mu.Unlock()
	return s.FS.Write(path, content)
}

// Writes returns the paths written so far.
func (s *RecordingStore) Writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.writes...)
}

var _ storage.Provider = (*RecordingStore)(nil)
