// Package batch runs front-matter operations over sets of documents.
package batch

import (
	"cmp"
	"slices"

	"github.com/starford/fmkit/internal/frontmatter"
	"github.com/starford/fmkit/internal/storage"
)

// Tally keys counted alongside header keys.
const (
	KeyPathDate = "pathdate"
	KeyPathSlug = "pathslug"
)

// AuditOptions selects the documents to audit.
type AuditOptions struct {
	Paths []string
}

// KeyCount is the number of documents carrying a key.
type KeyCount struct {
	Key   string
	Count int
}

// AuditReport aggregates key usage over Files documents.
type AuditReport struct {
	Files  int
	Counts []KeyCount // most common first, ties by key
}

// Percent returns the share of audited documents counted in kc.
func (r *AuditReport) Percent(kc KeyCount) float64 {
	if r.Files == 0 {
		return 0
	}
	return float64(kc.Count) / float64(r.Files) * 100
}

// Audit reads every document under opts.Paths and counts how many carry each
// header key and how many have a date and slug in their filename. Documents
// are never written.
func Audit(store storage.Provider, opts AuditOptions) (*AuditReport, error) {
	paths, err := store.Expand(opts.Paths...)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	report := &AuditReport{}
	for _, p := range paths {
		err := frontmatter.Edit(store, p, func(doc *frontmatter.Document) error {
			for _, key := range doc.Header().Keys() {
				counts[key]++
			}
			meta, ok, err := doc.PathMeta()
			if err != nil {
				return err
			}
			if ok {
				if !meta.Date.IsZero() {
					counts[KeyPathDate]++
				}
				if meta.Slug != "" {
					counts[KeyPathSlug]++
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		report.Files++
	}

	for key, n := range counts {
		report.Counts = append(report.Counts, KeyCount{Key: key, Count: n})
	}
	slices.SortFunc(report.Counts, func(a, b KeyCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return report, nil
}
