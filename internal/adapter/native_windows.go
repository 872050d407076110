//go:build windows

package adapter

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"

	"github.com/Ning0612/sympack/internal/textenc"
)

type native struct{}

func newNative() Adapter {
	return native{}
}

// wide converts a UTF-8 path to a NUL terminated UTF-16 pointer
func wide(path string) (*uint16, error) {
	buf, err := textenc.UTF16FromString(path)
	if err != nil {
		return nil, err
	}
	return &buf[0], nil
}

func (native) OpenFile(path string, flag int, perm fs.FileMode) (*os.File, error) {
	p, err := wide(path)
	if err != nil {
		return nil, mapError("open", path, err)
	}

	var access uint32
	switch flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_RDONLY:
		access = windows.GENERIC_READ
	case os.O_WRONLY:
		access = windows.GENERIC_WRITE
	case os.O_RDWR:
		access = windows.GENERIC_READ | windows.GENERIC_WRITE
	}
	if flag&os.O_APPEND != 0 {
		access &^= windows.GENERIC_WRITE
		access |= windows.FILE_APPEND_DATA
	}

	var disposition uint32
	switch {
	case flag&(os.O_CREATE|os.O_EXCL) == (os.O_CREATE | os.O_EXCL):
		disposition = windows.CREATE_NEW
	case flag&(os.O_CREATE|os.O_TRUNC) == (os.O_CREATE | os.O_TRUNC):
		disposition = windows.CREATE_ALWAYS
	case flag&os.O_CREATE == os.O_CREATE:
		disposition = windows.OPEN_ALWAYS
	case flag&os.O_TRUNC == os.O_TRUNC:
		disposition = windows.TRUNCATE_EXISTING
	default:
		disposition = windows.OPEN_EXISTING
	}

	attrs := uint32(windows.FILE_ATTRIBUTE_NORMAL)
	if perm&0o200 == 0 {
		attrs = windows.FILE_ATTRIBUTE_READONLY
	}

	share := uint32(windows.FILE_SHARE_READ | windows.FILE_SHARE_WRITE | windows.FILE_SHARE_DELETE)
	h, err := windows.CreateFile(p, access, share, nil, disposition, attrs, 0)
	if err != nil {
		return nil, mapError("CreateFile", path, err)
	}
	return os.NewFile(uintptr(h), path), nil
}

func (native) OpenDir(path string) (DirHandle, error) {
	p, err := wide(path + `\*`)
	if err != nil {
		return nil, mapError("opendir", path, err)
	}
	d := &windowsDir{path: path}
	h, err := windows.FindFirstFile(p, &d.data)
	if err != nil {
		return nil, mapError("FindFirstFile", path, err)
	}
	d.handle = h
	d.primed = true
	return d, nil
}

func (native) Mkdir(path string) error {
	p, err := wide(path)
	if err != nil {
		return mapError("mkdir", path, err)
	}
	return mapError("CreateDirectory", path, windows.CreateDirectory(p, nil))
}

func (native) RemoveFile(path string) error {
	p, err := wide(path)
	if err != nil {
		return mapError("unlink", path, err)
	}
	return mapError("DeleteFile", path, windows.DeleteFile(p))
}

func (native) RemoveDir(path string) error {
	p, err := wide(path)
	if err != nil {
		return mapError("rmdir", path, err)
	}
	return mapError("RemoveDirectory", path, windows.RemoveDirectory(p))
}

func (native) Rename(src, dest string) error {
	from, err := wide(src)
	if err != nil {
		return mapError("rename", src, err)
	}
	to, err := wide(dest)
	if err != nil {
		return mapError("rename", dest, err)
	}
	flags := uint32(windows.MOVEFILE_COPY_ALLOWED | windows.MOVEFILE_REPLACE_EXISTING)
	return mapError("MoveFileEx", src, windows.MoveFileEx(from, to, flags))
}

// allowUnprivilegedCreate lets developer-mode accounts create links
const allowUnprivilegedCreate = 0x2

func (native) Symlink(target, link string) error {
	from, err := wide(link)
	if err != nil {
		return mapError("symlink", link, err)
	}
	to, err := wide(filepath.FromSlash(target))
	if err != nil {
		return mapError("symlink", target, err)
	}

	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(link), target)
	}
	flags := uint32(allowUnprivilegedCreate)
	if info, err := os.Stat(resolved); err == nil && info.IsDir() {
		flags |= windows.SYMBOLIC_LINK_FLAG_DIRECTORY
	}
	return mapError("CreateSymbolicLink", link, windows.CreateSymbolicLink(from, to, flags))
}

func (native) Readlink(path string) (string, error) {
	// reparse data decoding is left to the os package
	target, err := os.Readlink(path)
	if err != nil {
		return "", mapError("readlink", path, err)
	}
	return target, nil
}

func (native) Getwd() (string, error) {
	buf := make([]uint16, windows.MAX_PATH)
	for {
		n, err := windows.GetCurrentDirectory(uint32(len(buf)), &buf[0])
		if err != nil {
			return "", mapError("GetCurrentDirectory", ".", err)
		}
		// a short buffer makes n the required size, terminator included
		if int(n) < len(buf) {
			return textenc.StringFromUTF16(buf[:n]), nil
		}
		buf = make([]uint16, n)
	}
}

func (native) Chdir(path string) error {
	p, err := wide(path)
	if err != nil {
		return mapError("chdir", path, err)
	}
	return mapError("SetCurrentDirectory", path, windows.SetCurrentDirectory(p))
}

type windowsDir struct {
	path   string
	handle windows.Handle
	data   windows.Win32finddata
	primed bool
	closed bool
}

func (d *windowsDir) Next() (string, bool, error) {
	if d.closed {
		return "", false, nil
	}
	if d.primed {
		d.primed = false
		return textenc.StringFromUTF16(d.data.FileName[:]), true, nil
	}
	if err := windows.FindNextFile(d.handle, &d.data); err != nil {
		if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			return "", false, nil
		}
		return "", false, mapError("FindNextFile", d.path, err)
	}
	return textenc.StringFromUTF16(d.data.FileName[:]), true, nil
}

func (d *windowsDir) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return mapError("FindClose", d.path, windows.FindClose(d.handle))
}

func isNotDirectory(err error) bool {
	return errors.Is(err, windows.ERROR_DIRECTORY)
}

func isDirectory(err error) bool {
	return false
}
