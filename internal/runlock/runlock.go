// Package runlock keeps two mutating runs from working on the same
// documents at once.
package runlock

import (
	"fmt"

	"github.com/gofrs/flock"

	"github.com/starford/fmkit/internal/apperr"
)

// Lock is an advisory file lock held for the duration of a run.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock at path without blocking. An empty path returns a
// no-op lock. A lock held elsewhere yields an error matching apperr.ErrLocked.
func Acquire(path string) (*Lock, error) {
	if path == "" {
		return &Lock{}, nil
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("runlock: %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("runlock: %s: %w", path, apperr.ErrLocked)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. It is safe to call on a no-op lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
