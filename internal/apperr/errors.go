// Package apperr holds the error values shared by batch commands.
package apperr

import (
	"errors"
	"fmt"
)

// ErrSkipped marks a document that a batch run leaves untouched and moves
// past. Every other error aborts the run.
var ErrSkipped = errors.New("skipped")

var (
	ErrNoPathMeta  = fmt.Errorf("%w: unhandled path components", ErrSkipped)
	ErrNoCategory  = fmt.Errorf("%w: unhandled category", ErrSkipped)
	ErrNotMapping  = fmt.Errorf("%w: header is not a mapping", ErrSkipped)
	ErrLocked      = errors.New("locked by another run")
	ErrInvalidArgs = errors.New("invalid arguments")
)
