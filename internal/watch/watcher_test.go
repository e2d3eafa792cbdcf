package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/fmkit/internal/batch"
	"github.com/starford/fmkit/internal/testutil"
)

type update struct {
	path    string
	written bool
}

// startWatch runs Watch on dir in the background and returns the recorded
// callbacks. The watcher is stopped when the test ends.
func startWatch(t *testing.T, dir string, store *testutil.RecordingStore) func() []update {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var updates []update

	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, store, Options{
			Dir:      dir,
			Update:   batch.UpdateOptions{Defaults: batch.DefaultFields()},
			Debounce: 50 * time.Millisecond,
			Logger:   testutil.Logger(),
			OnUpdate: func(path string, written bool) {
				mu.Lock()
				updates = append(updates, update{path, written})
				mu.Unlock()
			},
		})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Watch returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})

	return func() []update {
		mu.Lock()
		defer mu.Unlock()
		return append([]update(nil), updates...)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_InitialUpdate(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteDoc(t, dir, "2023-08-30-existing.md", "---\ncategories: notes\n---\nBody\n")
	store := testutil.NewRecordingStore()
	startWatch(t, dir, store)

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return strings.Contains(testutil.ReadDoc(t, path), "slug: existing")
	}, "existing document not updated on start")
}

func TestWatch_NewDocumentUpdatedOnce(t *testing.T) {
	dir := t.TempDir()
	store := testutil.NewRecordingStore()
	updates := startWatch(t, dir, store)

	time.Sleep(100 * time.Millisecond)
	path := testutil.WriteDoc(t, dir, "2024-01-02-fresh-post.md", "---\ntitle: Fresh\ncategories: blog\n---\nHello\n")

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return len(updates()) > 0
	}, "watcher did not report the new document")

	content := testutil.ReadDoc(t, path)
	for _, want := range []string{"slug: fresh-post", "/blog/2024/01/02/fresh-post.html", "draft: false"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
	if !strings.HasSuffix(content, "---\nHello\n") {
		t.Errorf("body changed:\n%s", content)
	}

	// Give the event from our own write time to settle; it must not trigger
	// another update.
	time.Sleep(300 * time.Millisecond)
	got := updates()
	if len(got) != 1 {
		t.Fatalf("updates = %+v, want exactly one", got)
	}
	if got[0].path != filepath.Clean(path) || !got[0].written {
		t.Errorf("update = %+v", got[0])
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store := testutil.NewRecordingStore()
	updates := startWatch(t, dir, store)

	time.Sleep(100 * time.Millisecond)
	testutil.WriteDoc(t, dir, "notes.txt", "---\ncategories: x\n---\n")

	time.Sleep(300 * time.Millisecond)
	if got := updates(); len(got) != 0 {
		t.Errorf("updates = %+v, want none", got)
	}
	if got := store.Writes(); len(got) != 0 {
		t.Errorf("writes = %v, want none", got)
	}
}

func TestWatch_SkippedDocumentKeepsRunning(t *testing.T) {
	dir := t.TempDir()
	store := testutil.NewRecordingStore()
	updates := startWatch(t, dir, store)

	time.Sleep(100 * time.Millisecond)
	skipped := testutil.WriteDoc(t, dir, "2024-01-02-no-category.md", "---\ntitle: x\n---\n")
	time.Sleep(150 * time.Millisecond)
	good := testutil.WriteDoc(t, dir, "2024-01-03-good.md", "---\ncategories: ok\n---\n")

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		for _, u := range updates() {
			if u.path == filepath.Clean(good) {
				return true
			}
		}
		return false
	}, "watcher stopped after a skipped document")

	if strings.Contains(testutil.ReadDoc(t, skipped), "slug:") {
		t.Error("skipped document must not be rewritten")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	err := Watch(context.Background(), testutil.NewRecordingStore(), Options{
		Dir:    filepath.Join(t.TempDir(), "missing"),
		Logger: testutil.Logger(),
	})
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
