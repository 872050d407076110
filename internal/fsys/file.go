// Package fsys implements file and directory operations on top of the
// native adapter: fopen-style opening with automatic parent creation,
// copy, recursive copy/remove/rename, and a directory cursor.
package fsys

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Ning0612/sympack/internal/adapter"
	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/pathutil"
)

// native is the platform adapter all operations go through
var native = adapter.Default()

// copyBufferSize is the chunk size used by CopyFile
const copyBufferSize = 32 * 1024

// ParseMode converts an fopen mode string ("r", "wb", "a+", ...) into
// os.OpenFile flags. 'b' and 't' are accepted and ignored, 'x' adds O_EXCL.
func ParseMode(mode string) (flag int, creates bool, err error) {
	if mode == "" {
		return 0, false, fmt.Errorf("empty open mode")
	}
	plus := strings.ContainsRune(mode[1:], '+')
	for _, c := range mode[1:] {
		if !strings.ContainsRune("+btx", c) {
			return 0, false, fmt.Errorf("invalid open mode %q", mode)
		}
	}

	switch mode[0] {
	case 'r':
		flag = os.O_RDONLY
		if plus {
			flag = os.O_RDWR
		}
	case 'w':
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if plus {
			flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		}
		creates = true
	case 'a':
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		if plus {
			flag = os.O_RDWR | os.O_CREATE | os.O_APPEND
		}
		creates = true
	default:
		return 0, false, fmt.Errorf("invalid open mode %q", mode)
	}

	if strings.ContainsRune(mode[1:], 'x') {
		flag |= os.O_EXCL
	}
	return flag, creates, nil
}

// Open opens path with an fopen-style mode. Modes that create the file
// first create every missing parent directory.
func Open(path, mode string) (*os.File, error) {
	flag, creates, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}

	if creates {
		if parent := pathutil.ParentDir(path, false); parent != "" {
			if err := MakeDir(parent, true); err != nil {
				return nil, err
			}
		}
	}

	return native.OpenFile(path, flag, 0o644)
}

// CopyFile streams src into dest. When overwrite is false and dest
// exists, dest is left untouched and domain.ErrAlreadyExists is returned.
// A failed copy may leave a partially written dest.
func CopyFile(src, dest string, overwrite bool) error {
	if !overwrite && pathutil.Exists(dest) {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, dest)
	}
	if pathutil.IsDir(src) {
		return fmt.Errorf("%w: %s", domain.ErrNotFile, src)
	}

	in, err := Open(src, "rb")
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := Open(dest, "wb")
	if err != nil {
		return err
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		return errors.Join(domain.ErrIO, fmt.Errorf("copy %s to %s: %w", src, dest, err))
	}
	if err := out.Close(); err != nil {
		return errors.Join(domain.ErrIO, fmt.Errorf("close %s: %w", dest, err))
	}
	return nil
}

// RemoveFile deletes a single file
func RemoveFile(path string) error {
	return native.RemoveFile(path)
}

// MakeDir creates path. With recursive set every missing ancestor is
// created first, walking the path one component at a time. An existing
// directory counts as success; an existing non-directory component
// fails with domain.ErrNotDirectory.
func MakeDir(path string, recursive bool) error {
	path = pathutil.RemoveSlash(path)
	if path == "" {
		return nil
	}

	if recursive {
		for i := 1; i < len(path); i++ {
			if !pathutil.IsSeparator(path[i]) || pathutil.IsSeparator(path[i-1]) {
				continue
			}
			if err := mkdirOne(path[:i]); err != nil {
				return err
			}
		}
	}
	return mkdirOne(path)
}

func mkdirOne(dir string) error {
	if pathutil.IsDir(dir) {
		return nil
	}
	if isVolume(dir) {
		return nil
	}
	if pathutil.Exists(dir) {
		return fmt.Errorf("%w: %s", domain.ErrNotDirectory, dir)
	}
	err := native.Mkdir(dir)
	if errors.Is(err, domain.ErrAlreadyExists) && pathutil.IsDir(dir) {
		return nil
	}
	return err
}

// isVolume reports whether dir is a bare drive designator such as "C:"
func isVolume(dir string) bool {
	return len(dir) == 2 && dir[1] == ':'
}

// ReadFile returns the whole content of path
func ReadFile(path string) ([]byte, error) {
	f, err := Open(path, "rb")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Join(domain.ErrIO, fmt.Errorf("read %s: %w", path, err))
	}
	return data, nil
}

// WriteFile replaces path with data, creating parent directories
func WriteFile(path string, data []byte) error {
	f, err := Open(path, "wb")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Join(domain.ErrIO, fmt.Errorf("write %s: %w", path, err))
	}
	if err := f.Close(); err != nil {
		return errors.Join(domain.ErrIO, fmt.Errorf("close %s: %w", path, err))
	}
	return nil
}
