// Package frontmatter reads, edits, and rewrites the YAML header block at the
// top of text documents while keeping the body byte-for-byte intact.
//
// A document is opened bound to a path, its header is read and possibly
// replaced, and on Close the document is written back only when the header
// differs from what was read:
//
//	---
//	title: DIY Consensus
//	categories: podcasts
//	---
//	Body text, never interpreted.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/fmkit/internal/pathmeta"
)

// Delimiter is the line that opens and closes the header region.
const Delimiter = "---"

var (
	// ErrMalformedHeader is returned by Open when the header is not valid YAML.
	ErrMalformedHeader = errors.New("frontmatter: malformed header")
	// ErrClosed is returned by Close on an already finalized document.
	ErrClosed = errors.New("frontmatter: document already closed")
)

// Store is the file access a Document needs.
type Store interface {
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
}

// Option configures a Document at Open time.
type Option func(*Document)

// WithDestination makes Close write to dst instead of the source path.
func WithDestination(dst string) Option {
	return func(d *Document) {
		if dst != "" {
			d.dst = dst
		}
	}
}

// Document is one text file split into a parsed header and raw body lines.
type Document struct {
	store Store
	src   string
	dst   string

	original Value
	header   Value
	body     []string
	changed  bool
	closed   bool

	metaDone bool
	meta     pathmeta.Meta
	metaOK   bool
	metaErr  error
}

// Open reads and splits the document at src. The returned Document must be
// closed; see Edit for the scoped form.
func Open(store Store, src string, opts ...Option) (*Document, error) {
	data, err := store.Read(src)
	if err != nil {
		return nil, err
	}

	d := &Document{store: store, src: src, dst: src}
	for _, opt := range opts {
		opt(d)
	}

	headerText, body := split(data)
	header, err := decodeHeader(headerText)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}

	d.original = header
	d.header = header.Clone()
	d.body = body
	return d, nil
}

// split scans data line by line. The first two delimiter lines open and
// close the header; every other line, later delimiters included, is body.
// Line terminators are kept on body lines.
func split(data []byte) (string, []string) {
	const (
		before = iota
		inside
		after
	)

	var header strings.Builder
	var body []string
	state := before

	for _, line := range strings.SplitAfter(string(data), "\n") {
		if line == "" {
			continue
		}
		if state != after && strings.TrimSpace(line) == Delimiter {
			state++
			continue
		}
		if state == inside {
			header.WriteString(line)
		} else {
			body = append(body, line)
		}
	}
	return header.String(), body
}

// Source returns the path the document was read from.
func (d *Document) Source() string { return d.src }

// Destination returns the path Close writes to.
func (d *Document) Destination() string { return d.dst }

// Header returns a copy of the current header.
func (d *Document) Header() Value { return d.header.Clone() }

// SetHeader replaces the header. The document counts as changed while the
// header differs from the one originally read, whatever was assigned before.
func (d *Document) SetHeader(v Value) {
	d.header = v.Clone()
	d.changed = !d.header.Equal(d.original)
}

// Changed reports whether Close will write.
func (d *Document) Changed() bool { return d.changed }

// Body returns a copy of the body lines, terminators included.
func (d *Document) Body() []string { return slices.Clone(d.body) }

// PathMeta resolves the date and slug encoded in the source filename. The
// result is computed once and cached.
func (d *Document) PathMeta() (pathmeta.Meta, bool, error) {
	if !d.metaDone {
		d.meta, d.metaOK, d.metaErr = pathmeta.FromPath(d.src)
		d.metaDone = true
	}
	return d.meta, d.metaOK, d.metaErr
}

// Bytes renders the document as it would be written: delimiter, header,
// delimiter, then the body verbatim.
func (d *Document) Bytes() ([]byte, error) {
	header, err := encodeHeader(d.header)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")
	buf.Write(header)
	buf.WriteString(Delimiter + "\n")
	for _, line := range d.body {
		buf.WriteString(line)
	}
	return buf.Bytes(), nil
}

// Close writes the document to its destination if the header changed and
// does nothing otherwise. A document can be closed only once.
func (d *Document) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true

	if !d.changed {
		return nil
	}
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := d.store.Write(d.dst, data); err != nil {
		return fmt.Errorf("frontmatter: write %s: %w", d.dst, err)
	}
	return nil
}

// Edit opens src, hands the document to fn, and closes it on every exit
// path, including a panic in fn. Errors from fn and Close are joined.
func Edit(store Store, src string, fn func(*Document) error, opts ...Option) (err error) {
	doc, err := Open(store, src, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, doc.Close())
	}()
	return fn(doc)
}
