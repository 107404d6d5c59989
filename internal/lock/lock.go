package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/NamanBalaji/updater/internal/logger"
)

// Lock is an advisory file lock that keeps two processes from downloading
// to the same destination.
type Lock struct {
	fl *flock.Flock
}

// Path is the lock file that guards destPath.
func Path(destPath string) string {
	return destPath + ".lock"
}

// Acquire tries to take the lock for destPath without blocking.
// ok is false when another process holds it.
func Acquire(destPath string) (l *Lock, ok bool, err error) {
	path := Path(destPath)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}

	if !locked {
		logger.Debugf("Lock %s is held by another process", path)
		return nil, false, nil
	}

	return &Lock{fl: fl}, true, nil
}

// Release unlocks and removes the lock file. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}

	path := l.fl.Path()

	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", path, err)
	}

	l.fl = nil

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Debugf("Failed to remove lock file %s: %v", path, err)
	}

	return nil
}
