//go:build windows

package pathutil

import (
	"io/fs"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/textenc"
)

func platformStat(path string) (*domain.PathStat, error) {
	wide, err := textenc.UTF16FromString(path)
	if err != nil {
		return nil, err
	}

	var data windows.Win32FileAttributeData
	if err := windows.GetFileAttributesEx(&wide[0], windows.GetFileExInfoStandard, (*byte)(unsafe.Pointer(&data))); err != nil {
		return nil, &fs.PathError{Op: "GetFileAttributesEx", Path: path, Err: err}
	}

	// os.Stat resolves symlinks and reparse points into a portable mode
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	return &domain.PathStat{
		Mode:       info.Mode(),
		Links:      1,
		Size:       int64(data.FileSizeHigh)<<32 | int64(data.FileSizeLow),
		AccessTime: time.Unix(0, data.LastAccessTime.Nanoseconds()),
		ModTime:    time.Unix(0, data.LastWriteTime.Nanoseconds()),
		ChangeTime: time.Unix(0, data.CreationTime.Nanoseconds()),
	}, nil
}
