// Package watch keeps a documents directory normalized by re-running the
// update transformation whenever a document changes.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/fmkit/internal/apperr"
	"github.com/starford/fmkit/internal/batch"
	"github.com/starford/fmkit/internal/checksum"
	"github.com/starford/fmkit/internal/storage"
)

// DefaultDebounce is how long a burst of events is allowed to settle.
const DefaultDebounce = 200 * time.Millisecond

// EventCallback is called after a watcher-driven update of path.
type EventCallback func(path string, written bool)

// Store is the storage a watcher needs: document access plus a way to tell
// document files apart from everything else.
type Store interface {
	storage.Provider
	IsDocument(name string) bool
}

// Options configures Watch.
type Options struct {
	Dir      string
	Update   batch.UpdateOptions // Paths is ignored
	Debounce time.Duration
	Logger   *slog.Logger
	OnUpdate EventCallback
}

// Watch updates every document in opts.Dir once, then watches the directory
// and updates documents as they are created or written until ctx is
// cancelled. Files whose content matches what the watcher last saw,
// including its own writes, are left alone. Per-document failures are
// logged and do not stop the watcher.
func Watch(ctx context.Context, store Store, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	opts.Update.Logger = logger

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(opts.Dir); err != nil {
		return err
	}

	initial := opts.Update
	initial.Paths = []string{opts.Dir}
	res, err := batch.Update(store, initial)
	if err != nil {
		return err
	}
	logger.Info("watch: initial update",
		slog.String("dir", opts.Dir),
		slog.Int("processed", res.Processed),
		slog.Int("written", res.Written),
		slog.Int("skipped", res.Skipped))

	entries, err := store.List(opts.Dir)
	if err != nil {
		return err
	}
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		seen[e.Path] = e.Checksum
	}

	logger.Info("watch: started", slog.String("dir", opts.Dir))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-timerCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			for _, p := range paths {
				processChange(store, p, opts, seen, logger)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !store.IsDocument(ev.Name) {
				continue
			}
			path := filepath.Clean(ev.Name)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[path] = struct{}{}
				schedule()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(seen, path)
				delete(pending, path)
				logger.Debug("watch: forgotten", slog.String("path", path))
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// processChange runs the update on one changed document unless its content
// is what the watcher already saw.
func processChange(store Store, path string, opts Options, seen map[string]string, logger *slog.Logger) {
	data, err := store.Read(path)
	if err != nil {
		// Gone between the event and the debounce firing.
		delete(seen, path)
		return
	}
	if checksum.Matches(data, seen[path]) {
		return
	}

	written, err := batch.UpdateDocument(store, path, opts.Update)
	switch {
	case errors.Is(err, apperr.ErrSkipped):
		logger.Warn("watch: skipped", slog.String("path", path), slog.String("reason", err.Error()))
	case err != nil:
		logger.Error("watch: update failed", slog.String("path", path), slog.String("error", err.Error()))
	case written:
		logger.Info("watch: updated", slog.String("path", path))
	}

	// Remember what is on disk now so the event from our own write is ignored.
	if current, readErr := store.Read(path); readErr == nil {
		seen[path] = checksum.Sum(current)
	} else {
		seen[path] = checksum.Sum(data)
	}

	if err == nil && opts.OnUpdate != nil {
		opts.OnUpdate(path, written)
	}
}
