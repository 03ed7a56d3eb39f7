// Package lock keeps two ocpool processes from mutating the same workspace.
package lock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created in the workspace.
const FileName = ".ocpool.lock"

// ErrAlreadyRunning is returned when another process holds the workspace lock.
var ErrAlreadyRunning = errors.New("another ocpool process is running in this workspace")

// Lock is an exclusive advisory lock on a workspace.
type Lock struct {
	flock *flock.Flock
}

// Acquire takes the lock of workspace without blocking.
func Acquire(workspace string) (*Lock, error) {
	path := filepath.Join(workspace, FileName)
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (%s)", ErrAlreadyRunning, path)
	}
	return &Lock{flock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.flock.Path()
}

// Release drops the lock. The lock file is left in place.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	return l.flock.Unlock()
}
