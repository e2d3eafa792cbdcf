// Package pathmeta derives a post date and slug from filenames of the form
// YYYY-MM-DD-<slug>.md.
package pathmeta

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// ErrInvalidDate means a filename has the dated shape but names a day that
// does not exist.
var ErrInvalidDate = errors.New("pathmeta: invalid date")

const dateLayout = "2006-01-02"

var filenameRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-([A-Za-z0-9-]+)\.(?i:md)$`)

// Meta is the date and slug carried by a filename.
type Meta struct {
	Date time.Time
	Slug string
}

// DatePath renders the date as YYYY/MM/DD.
func (m Meta) DatePath() string {
	return m.Date.Format("2006/01/02")
}

// Resolve matches filename against the dated naming convention. A filename
// that does not match yields ok == false and no error.
func Resolve(filename string) (meta Meta, ok bool, err error) {
	m := filenameRe.FindStringSubmatch(filename)
	if m == nil {
		return Meta{}, false, nil
	}
	date, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return Meta{}, false, fmt.Errorf("%w %q in %s: %w", ErrInvalidDate, m[1], filename, err)
	}
	return Meta{Date: date, Slug: m[2]}, true, nil
}

// FromPath resolves the filename component of p, ignoring directories.
func FromPath(p string) (Meta, bool, error) {
	return Resolve(filepath.Base(p))
}
