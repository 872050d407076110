package fsys

import (
	"fmt"

	"github.com/Ning0612/sympack/internal/adapter"
	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/pathutil"
)

// DirCursor is an open enumeration over one directory. It is live while
// it holds a current entry; once Seek returns false or Close is called
// it is exhausted and stays that way.
type DirCursor struct {
	dir    string
	name   string
	handle adapter.DirHandle
	err    error
}

// OpenDir returns a cursor positioned at the first entry of path.
// Returns domain.ErrNotFound if path doesn't exist and
// domain.ErrEmptyDir if there is nothing to enumerate.
func OpenDir(path string) (*DirCursor, error) {
	h, err := native.OpenDir(path)
	if err != nil {
		return nil, err
	}

	c := &DirCursor{dir: pathutil.AppendSlash(path), handle: h}
	if !c.Seek() {
		err := c.err
		c.Close()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDir, path)
	}
	return c, nil
}

// Name returns the current entry name
func (c *DirCursor) Name() string {
	return c.name
}

// Path returns the current entry's full path
func (c *DirCursor) Path() string {
	return c.dir + c.name
}

// Dir returns the enumerated directory with a trailing separator
func (c *DirCursor) Dir() string {
	return c.dir
}

// Seek advances to the next entry, returning false when exhausted,
// closed or failed. Err reports a failure.
func (c *DirCursor) Seek() bool {
	if c.handle == nil {
		return false
	}
	name, ok, err := c.handle.Next()
	if err != nil {
		c.err = err
	}
	if !ok || err != nil {
		c.name = ""
		return false
	}
	c.name = name
	return true
}

// Err returns the error that stopped enumeration, if any
func (c *DirCursor) Err() error {
	return c.err
}

// Close releases the handle. Calling Close again is a no-op.
func (c *DirCursor) Close() error {
	if c.handle == nil {
		return nil
	}
	err := c.handle.Close()
	c.handle = nil
	c.name = ""
	return err
}

// isDotEntry reports whether name is "." or ".."
func isDotEntry(name string) bool {
	return name == "." || name == ".."
}
