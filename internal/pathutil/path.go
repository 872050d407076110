// Package pathutil decomposes UTF-8 paths. Both '/' and '\' are treated
// as separators regardless of platform.
package pathutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ning0612/sympack/internal/domain"
)

// Separator is the separator appended by AppendSlash
const Separator = string(filepath.Separator)

// IsSeparator reports whether c is '/' or '\'
func IsSeparator(c byte) bool {
	return c == '/' || c == '\\'
}

// lastSeparator returns the index of the last separator at or before end, or -1
func lastSeparator(path string, end int) int {
	for i := end; i >= 0; i-- {
		if IsSeparator(path[i]) {
			return i
		}
	}
	return -1
}

// extensionDot returns the index of the extension marker in the final
// segment, or -1. A dot qualifies when it is not the last character,
// is not followed by another dot, and does not start the segment.
func extensionDot(path string) int {
	start := lastSeparator(path, len(path)-1) + 1
	for i := len(path) - 1; i > start; i-- {
		if path[i] != '.' {
			continue
		}
		if i == len(path)-1 || path[i+1] == '.' {
			continue
		}
		return i
	}
	return -1
}

// Basename returns the text after the last separator
func Basename(path string) string {
	if path == "" {
		return ""
	}
	return path[lastSeparator(path, len(path)-1)+1:]
}

// Stem returns the basename without its extension
func Stem(path string) string {
	if path == "" {
		return ""
	}
	start := lastSeparator(path, len(path)-1) + 1
	if dot := extensionDot(path); dot >= 0 {
		return path[start:dot]
	}
	return path[start:]
}

// Ext returns the extension including its dot, or "" if there is none
func Ext(path string) string {
	if dot := extensionDot(path); dot >= 0 {
		return path[dot:]
	}
	return ""
}

// ParentDir returns the text before the last separator. When resolve is
// true the path is completed first. A path whose only separator is the
// leading one has no parent.
func ParentDir(path string, resolve bool) string {
	if resolve {
		path = Complete(path)
	}
	if path == "" {
		return ""
	}
	if p := lastSeparator(path, len(path)-1); p > 0 {
		return path[:p]
	}
	return ""
}

// Complete returns the absolute, symlink-resolved form of path. When the
// path cannot be resolved the absolute form is returned, and when even
// that fails the input is returned unchanged.
func Complete(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs
	}
	return resolved
}

// AppendSlash ensures path ends with a separator
func AppendSlash(path string) string {
	if path != "" && IsSeparator(path[len(path)-1]) {
		return path
	}
	return path + Separator
}

// RemoveSlash strips every trailing separator
func RemoveSlash(path string) string {
	return strings.TrimRight(path, `/\`)
}

// Join concatenates dir and name with exactly one separator between them
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return AppendSlash(dir) + strings.TrimLeft(name, `/\`)
}

// ToSlash rewrites every '\' as '/'
func ToSlash(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// IsFile reports whether path names an existing regular file
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// IsDir reports whether path names an existing directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsSymlink reports whether path itself is a symbolic link
func IsSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&fs.ModeSymlink != 0
}

// Exists reports whether anything exists at path
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Stat returns a metadata snapshot of path, following symlinks.
// Returns domain.ErrNotFound if the path does not exist.
func Stat(path string) (*domain.PathStat, error) {
	st, err := platformStat(path)
	if err != nil {
		return nil, mapError(err)
	}
	st.Path = path
	return st, nil
}

// mapError converts OS errors to domain errors
func mapError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return domain.ErrPermissionDenied
	default:
		return errors.Join(domain.ErrIO, err)
	}
}
