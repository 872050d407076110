//go:build !windows

package adapter

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// dirBatch is how many entries are fetched per ReadDir call
const dirBatch = 64

type native struct{}

func newNative() Adapter {
	return native{}
}

func (native) OpenFile(path string, flag int, perm fs.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, mapError("open", path, err)
	}
	return f, nil
}

func (native) OpenDir(path string) (DirHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mapError("opendir", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mapError("opendir", path, err)
	}
	if !info.IsDir() {
		f.Close()
		return nil, mapError("opendir", path, unix.ENOTDIR)
	}
	// readdir(3) reports the two dot entries; os.File.ReadDir drops them
	return &unixDir{f: f, pending: []string{".", ".."}}, nil
}

func (native) Mkdir(path string) error {
	return mapError("mkdir", path, unix.Mkdir(path, 0o755))
}

func (native) RemoveFile(path string) error {
	return mapError("unlink", path, unix.Unlink(path))
}

func (native) RemoveDir(path string) error {
	return mapError("rmdir", path, unix.Rmdir(path))
}

func (native) Rename(src, dest string) error {
	return mapError("rename", src, unix.Rename(src, dest))
}

func (native) Symlink(target, link string) error {
	return mapError("symlink", link, unix.Symlink(target, link))
}

func (native) Readlink(path string) (string, error) {
	for size := 256; ; size *= 2 {
		buf := make([]byte, size)
		n, err := unix.Readlink(path, buf)
		if err != nil {
			return "", mapError("readlink", path, err)
		}
		if n < size {
			return string(buf[:n]), nil
		}
	}
}

func (native) Getwd() (string, error) {
	wd, err := unix.Getwd()
	if err != nil {
		return "", mapError("getcwd", ".", err)
	}
	return wd, nil
}

func (native) Chdir(path string) error {
	return mapError("chdir", path, unix.Chdir(path))
}

type unixDir struct {
	f       *os.File
	pending []string
	done    bool
}

func (d *unixDir) Next() (string, bool, error) {
	for len(d.pending) == 0 {
		if d.done || d.f == nil {
			return "", false, nil
		}
		entries, err := d.f.ReadDir(dirBatch)
		for _, e := range entries {
			d.pending = append(d.pending, e.Name())
		}
		if errors.Is(err, io.EOF) {
			d.done = true
		} else if err != nil {
			return "", false, mapError("readdir", d.f.Name(), err)
		}
	}
	name := d.pending[0]
	d.pending = d.pending[1:]
	return name, true, nil
}

func (d *unixDir) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	d.pending = nil
	return mapError("closedir", "", err)
}

func isNotDirectory(err error) bool {
	return errors.Is(err, unix.ENOTDIR)
}

func isDirectory(err error) bool {
	return errors.Is(err, unix.EISDIR)
}
