package batch

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/starford/fmkit/internal/apperr"
	"github.com/starford/fmkit/internal/frontmatter"
	"github.com/starford/fmkit/internal/storage"
)

// Header keys written by Update.
const (
	KeySlug       = "slug"
	KeyAliases    = "aliases"
	KeyCategories = "categories"
)

// DefaultFields returns the fields forced by default: showtoc and draft, both false.
func DefaultFields() frontmatter.Value {
	v := frontmatter.Mapping()
	v.Set("showtoc", frontmatter.Bool(false))
	v.Set("draft", frontmatter.Bool(false))
	return v
}

// UpdateOptions configures which header transformations Update applies.
type UpdateOptions struct {
	Paths []string
	// OutDir, when set, receives rewritten documents under their original
	// filename; sources are left alone.
	OutDir string

	SkipDefaults bool // do not force Defaults
	SkipSlug     bool // do not inject the filename slug
	SkipAlias    bool // do not inject the redirect alias

	// Defaults are forced into every header unless SkipDefaults is set.
	Defaults frontmatter.Value

	Logger *slog.Logger
}

// UpdateResult summarizes an Update run.
type UpdateResult struct {
	Processed int // documents transformed without a skip
	Written   int // documents whose header changed and were written
	Skipped   int
}

// Update applies the configured transformations to every document under
// opts.Paths. A document missing the data a transformation needs is skipped
// with a warning; any other error aborts the run.
func Update(store storage.Provider, opts UpdateOptions) (*UpdateResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	paths, err := store.Expand(opts.Paths...)
	if err != nil {
		return nil, err
	}

	res := &UpdateResult{}
	for _, p := range paths {
		written, err := UpdateDocument(store, p, opts)
		if errors.Is(err, apperr.ErrSkipped) {
			logger.Warn("update: skipped", slog.String("path", p), slog.String("reason", err.Error()))
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		res.Processed++
		if written {
			res.Written++
			logger.Debug("update: written", slog.String("path", p))
		}
	}
	return res, nil
}

// UpdateDocument transforms a single document and reports whether it was
// written. Skips are returned as errors matching apperr.ErrSkipped.
func UpdateDocument(store storage.Provider, src string, opts UpdateOptions) (bool, error) {
	var docOpts []frontmatter.Option
	if opts.OutDir != "" {
		docOpts = append(docOpts, frontmatter.WithDestination(filepath.Join(opts.OutDir, filepath.Base(src))))
	}

	var written bool
	err := frontmatter.Edit(store, src, func(doc *frontmatter.Document) error {
		header, err := transform(doc, opts)
		if err != nil {
			return err
		}
		doc.SetHeader(header)
		written = doc.Changed()
		return nil
	}, docOpts...)
	if err != nil {
		return false, err
	}
	return written, nil
}

func transform(doc *frontmatter.Document, opts UpdateOptions) (frontmatter.Value, error) {
	header := doc.Header()
	if !header.IsMapping() {
		return header, apperr.ErrNotMapping
	}

	if !opts.SkipDefaults {
		for _, key := range opts.Defaults.Keys() {
			val, _ := opts.Defaults.Get(key)
			header.Set(key, val)
		}
	}

	if opts.SkipSlug && opts.SkipAlias {
		return header, nil
	}

	meta, ok, err := doc.PathMeta()
	if err != nil {
		return header, err
	}
	if !ok {
		return header, apperr.ErrNoPathMeta
	}

	if !opts.SkipSlug {
		header.Set(KeySlug, frontmatter.String(meta.Slug))
	}

	if !opts.SkipAlias {
		category, err := singleCategory(header)
		if err != nil {
			return header, err
		}
		alias := path.Join("/", category, meta.DatePath(), meta.Slug+".html")
		header.Set(KeyAliases, frontmatter.Strings(alias))
	}
	return header, nil
}

// singleCategory returns the categories field when it holds one non-empty string.
func singleCategory(header frontmatter.Value) (string, error) {
	val, ok := header.Get(KeyCategories)
	if !ok {
		return "", fmt.Errorf("%w: no %s field", apperr.ErrNoCategory, KeyCategories)
	}
	category, ok := val.AsString()
	if !ok || category == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string, got %s", apperr.ErrNoCategory, KeyCategories, val.Kind())
	}
	return category, nil
}
