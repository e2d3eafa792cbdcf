// Package internal wires configuration, logging, and storage into the audit,
// update, and watch runs.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/fmkit/internal/apperr"
	"github.com/starford/fmkit/internal/batch"
	"github.com/starford/fmkit/internal/runlock"
	"github.com/starford/fmkit/internal/storage"
	"github.com/starford/fmkit/internal/watch"
)

// AuditRequest holds the arguments of an audit run.
type AuditRequest struct {
	Paths []string
	Table bool
}

// UpdateRequest holds the arguments of an update run.
type UpdateRequest struct {
	Paths      []string
	OutDir     string
	NoSlug     bool
	NoAlias    bool
	NoDefaults bool
}

// WatchRequest holds the arguments of a watch run. Update.Paths is ignored.
type WatchRequest struct {
	Dir    string
	Update UpdateRequest
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	if app.logger == nil {
		app.logger = newLogger(app.config.App, os.Stderr)
	}
	if app.store == nil {
		app.store = storage.NewFS(app.config.Documents.Extension)
	}
	return app, nil
}

// newLogger builds the structured logger. Reports go to stdout, so logs are
// written to w (stderr in practice).
func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func (a *application) paths(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	return []string{a.config.Documents.Path}
}

func (a *application) updateOptions(req UpdateRequest) batch.UpdateOptions {
	return batch.UpdateOptions{
		Paths:        a.paths(req.Paths),
		OutDir:       req.OutDir,
		SkipDefaults: req.NoDefaults,
		SkipSlug:     req.NoSlug,
		SkipAlias:    req.NoAlias,
		Defaults:     a.config.Update.Defaults,
		Logger:       a.logger,
	}
}

// RunAudit counts header keys across documents and prints the report.
func RunAudit(_ context.Context, req AuditRequest, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	paths := app.paths(req.Paths)
	report, err := batch.Audit(app.store, batch.AuditOptions{Paths: paths})
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	app.logger.Debug("audit finished", slog.Any("paths", paths), slog.Int("files", report.Files))

	if req.Table {
		_, err = fmt.Fprintln(app.out, batch.RenderAuditTable(report))
		return err
	}
	return batch.WriteAuditReport(app.out, report)
}

// RunUpdate rewrites document headers and prints how many were processed.
func RunUpdate(_ context.Context, req UpdateRequest, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	lock, err := runlock.Acquire(app.config.Update.LockFile)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	defer lock.Release() //nolint:errcheck // lock file is advisory

	updateOpts := app.updateOptions(req)
	res, err := batch.Update(app.store, updateOpts)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	app.logger.Info("update finished",
		slog.Any("paths", updateOpts.Paths),
		slog.Int("processed", res.Processed),
		slog.Int("written", res.Written),
		slog.Int("skipped", res.Skipped))
	return batch.WriteUpdateSummary(app.out, res)
}

// RunWatch updates a directory and keeps it updated until ctx is cancelled
// or the process receives SIGINT or SIGTERM.
func RunWatch(ctx context.Context, req WatchRequest, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	dir := req.Dir
	if dir == "" {
		dir = app.config.Documents.Path
	}
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("watch: %w: %s is not a directory", apperr.ErrInvalidArgs, dir)
	}

	lock, err := runlock.Acquire(app.config.Update.LockFile)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer lock.Release() //nolint:errcheck // lock file is advisory

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return watch.Watch(gCtx, app.store, watch.Options{
			Dir:      dir,
			Update:   app.updateOptions(req.Update),
			Debounce: app.config.Watch.Debounce,
			Logger:   app.logger,
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			app.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
