// Package adapter provides the native filesystem primitives that every
// higher-level operation is built on. One implementation exists per
// platform family and is selected at build time; both return
// domain-level errors and accept plain UTF-8 paths.
package adapter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Ning0612/sympack/internal/domain"
)

// Adapter defines the native primitives used by the filesystem engine
// All implementations translate paths to the platform's native encoding
// internally and return domain-level errors for consistent error handling
type Adapter interface {
	// OpenFile opens path with os.OpenFile style flags
	// Returns domain.ErrNotFound if the file doesn't exist and O_CREATE is absent
	OpenFile(path string, flag int, perm fs.FileMode) (*os.File, error)

	// OpenDir starts enumerating path
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	OpenDir(path string) (DirHandle, error)

	// Mkdir creates a single directory
	// Returns domain.ErrAlreadyExists if something exists at path
	Mkdir(path string) error

	// RemoveFile deletes a file
	RemoveFile(path string) error

	// RemoveDir deletes an empty directory
	RemoveDir(path string) error

	// Rename moves src to dest, replacing dest when the platform allows it
	Rename(src, dest string) error

	// Symlink creates link pointing at target
	Symlink(target, link string) error

	// Readlink returns the target of the symbolic link at path
	Readlink(path string) (string, error)

	// Getwd returns the process working directory
	Getwd() (string, error)

	// Chdir changes the process working directory
	Chdir(path string) error
}

// DirHandle enumerates one directory. Entries "." and ".." are reported
// like any other name; the order is whatever the platform yields.
type DirHandle interface {
	// Next returns the next entry name, or ok=false when exhausted
	Next() (name string, ok bool, err error)

	// Close releases the handle; subsequent calls are no-ops
	Close() error
}

// defaultAdapter is the build-selected native implementation
var defaultAdapter Adapter = newNative()

// Default returns the native adapter for this platform
func Default() Adapter {
	return defaultAdapter
}

// mapError converts OS errors to domain errors, keeping the cause
func mapError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var kind error
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = domain.ErrNotFound
	case errors.Is(err, fs.ErrExist):
		kind = domain.ErrAlreadyExists
	case errors.Is(err, fs.ErrPermission):
		kind = domain.ErrPermissionDenied
	case isNotDirectory(err):
		kind = domain.ErrNotDirectory
	case isDirectory(err):
		kind = domain.ErrNotFile
	case errors.Is(err, domain.ErrEncoding):
		return err
	default:
		kind = domain.ErrIO
	}
	return fmt.Errorf("%w: %s %s: %w", kind, op, path, err)
}
