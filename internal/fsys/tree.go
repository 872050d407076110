package fsys

import (
	"errors"
	"fmt"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/pathutil"
)

// WalkFunc is called for every entry below the walk root. rel is the
// path relative to the root using '/' separators.
type WalkFunc func(path, rel string, isDir bool) error

// isSubdir reports whether path is a directory and not a link to one.
// Links are never descended into.
func isSubdir(path string) bool {
	return pathutil.IsDir(path) && !pathutil.IsSymlink(path)
}

// removeLink deletes the link at path, leaving its target alone
func removeLink(path string) error {
	err := RemoveFile(path)
	if err != nil && pathutil.IsDir(path) {
		// directory links are removed like directories on windows
		err = native.RemoveDir(path)
	}
	return err
}

// copyLink recreates the link at src as dest
func copyLink(src, dest string) error {
	target, err := native.Readlink(src)
	if err != nil {
		return err
	}
	if pathutil.Exists(dest) {
		if err := removeLink(dest); err != nil {
			return err
		}
	}
	return native.Symlink(target, dest)
}

// Walk visits every entry under root depth-first, directories before
// their children, skipping "." and "..". Links are reported as
// non-directories. The first error stops the walk.
func Walk(root string, fn WalkFunc) error {
	return walk(root, "", fn)
}

func walk(dir, rel string, fn WalkFunc) error {
	c, err := OpenDir(dir)
	if errors.Is(err, domain.ErrEmptyDir) {
		return nil
	}
	if err != nil {
		return err
	}
	defer c.Close()

	for ok := true; ok; ok = c.Seek() {
		if isDotEntry(c.Name()) {
			continue
		}
		path := c.Path()
		entryRel := c.Name()
		if rel != "" {
			entryRel = rel + "/" + c.Name()
		}

		isDir := isSubdir(path)
		if err := fn(path, entryRel, isDir); err != nil {
			return err
		}
		if isDir {
			if err := walk(path, entryRel, fn); err != nil {
				return err
			}
		}
	}
	return c.Err()
}

// CopyDir mirrors src into dest, creating dest if needed and
// overwriting files. Links below src are recreated, not followed. The
// first failure aborts and is reported as a
// *domain.PartialError; entries copied before it remain.
func CopyDir(src, dest string) error {
	if !pathutil.IsDir(src) {
		if pathutil.Exists(src) {
			return fmt.Errorf("%w: %s", domain.ErrNotDirectory, src)
		}
		return fmt.Errorf("%w: %s", domain.ErrNotFound, src)
	}

	var done int
	if path, err := copyDir(src, dest, &done); err != nil {
		return &domain.PartialError{Op: "copydir", Path: path, Completed: done, Err: err}
	}
	return nil
}

func copyDir(src, dest string, done *int) (string, error) {
	c, err := OpenDir(src)
	if errors.Is(err, domain.ErrEmptyDir) {
		c = nil
	} else if err != nil {
		return src, err
	}

	if err := MakeDir(dest, true); err != nil {
		if c != nil {
			c.Close()
		}
		return dest, err
	}
	if c == nil {
		return "", nil
	}
	defer c.Close()

	target := pathutil.AppendSlash(dest)
	for ok := true; ok; ok = c.Seek() {
		if isDotEntry(c.Name()) {
			continue
		}
		from, to := c.Path(), target+c.Name()
		if pathutil.IsSymlink(from) {
			if err := copyLink(from, to); err != nil {
				return from, err
			}
		} else if pathutil.IsDir(from) {
			if path, err := copyDir(from, to, done); err != nil {
				return path, err
			}
		} else if err := CopyFile(from, to, true); err != nil {
			return from, err
		}
		*done++
	}
	if err := c.Err(); err != nil {
		return src, err
	}
	return "", nil
}

// RemoveDir deletes path and everything below it. Links inside the tree
// are unlinked without touching what they point to, and a link passed as
// path is rejected with domain.ErrNotDirectory. The first failure aborts
// and is reported as a *domain.PartialError; entries removed before it
// stay removed.
func RemoveDir(path string) error {
	if !isSubdir(path) {
		if pathutil.Exists(path) {
			return fmt.Errorf("%w: %s", domain.ErrNotDirectory, path)
		}
		return fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}

	var done int
	if failed, err := removeDir(path, &done); err != nil {
		return &domain.PartialError{Op: "rmdir", Path: failed, Completed: done, Err: err}
	}
	return nil
}

func removeDir(dir string, done *int) (string, error) {
	c, err := OpenDir(dir)
	if err != nil && !errors.Is(err, domain.ErrEmptyDir) {
		return dir, err
	}

	if c != nil {
		for ok := true; ok; ok = c.Seek() {
			if isDotEntry(c.Name()) {
				continue
			}
			child := c.Path()
			if pathutil.IsSymlink(child) {
				if err := removeLink(child); err != nil {
					c.Close()
					return child, err
				}
			} else if pathutil.IsDir(child) {
				if failed, err := removeDir(child, done); err != nil {
					c.Close()
					return failed, err
				}
			} else if err := RemoveFile(child); err != nil {
				c.Close()
				return child, err
			}
			*done++
		}
		err := c.Err()
		c.Close()
		if err != nil {
			return dir, err
		}
	}

	if err := native.RemoveDir(dir); err != nil {
		return dir, err
	}
	return "", nil
}

// Rename moves src to dest. An existing dest is removed first, and
// recursively if it is a directory, when overwrite is true; otherwise it
// fails with domain.ErrAlreadyExists. A link at dest is replaced, never
// its target.
func Rename(src, dest string, overwrite bool) error {
	if !pathutil.Exists(src) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, src)
	}

	if pathutil.Exists(dest) {
		if !overwrite {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, dest)
		}
		var err error
		switch {
		case pathutil.IsSymlink(dest):
			err = removeLink(dest)
		case pathutil.IsDir(dest):
			err = RemoveDir(dest)
		default:
			err = RemoveFile(dest)
		}
		if err != nil {
			return err
		}
	}

	return native.Rename(src, dest)
}
