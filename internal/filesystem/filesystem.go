package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OSFileSystem holds the file housekeeping shared by the download session and the installer.
type OSFileSystem struct{}

// NewOSFileSystem creates a new OS filesystem
func NewOSFileSystem() *OSFileSystem {
	return &OSFileSystem{}
}

// CreateFile creates (or truncates) a file, making its directory first.
func (fs *OSFileSystem) CreateFile(path string) (*os.File, error) {
	if err := fs.EnsureDirectory(filepath.Dir(path)); err != nil {
		return nil, err
	}

	return os.Create(path)
}

// EnsureDirectory ensures a directory exists
func (fs *OSFileSystem) EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0o755)
}

// FileExists checks if a file exists
func (fs *OSFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}

// FileSize returns the size of path, 0 if it does not exist.
func (fs *OSFileSystem) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// Remove deletes each path, files and directories alike. Missing paths are not an error.
func (fs *OSFileSystem) Remove(paths ...string) error {
	var errs []error

	for _, p := range paths {
		if p == "" {
			continue
		}

		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// CopyFile copies src to dst through a temporary sibling, so dst is either
// the old file or the complete copy.
func (fs *OSFileSystem) CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	tmp := dst + ".copy"

	out, err := fs.CreateFile(tmp)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}

	if closeErr := out.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("copy %s: %w", src, err)
	}

	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		os.Remove(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return 0, err
	}

	return n, nil
}
