package domain

import (
	"io/fs"
	"time"
)

// FileType represents the type of a filesystem entry
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
	FileTypeSymlink
	FileTypeOther
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "file"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// FileTypeFromMode classifies an fs.FileMode
func FileTypeFromMode(mode fs.FileMode) FileType {
	switch {
	case mode.IsRegular():
		return FileTypeRegular
	case mode.IsDir():
		return FileTypeDirectory
	case mode&fs.ModeSymlink != 0:
		return FileTypeSymlink
	default:
		return FileTypeOther
	}
}

// PathStat is the platform-neutral metadata record for a path.
// Fields the platform cannot supply are left zero.
type PathStat struct {
	// Path is the path that was queried
	Path string

	Device uint64
	Inode  uint64
	Mode   fs.FileMode
	Links  uint64
	UID    uint32
	GID    uint32
	RDev   uint64

	// Size in bytes
	Size int64

	AccessTime time.Time
	ModTime    time.Time
	ChangeTime time.Time
}

// Type returns the entry type derived from Mode
func (s PathStat) Type() FileType {
	return FileTypeFromMode(s.Mode)
}

// IsDir returns true if this is a directory
func (s PathStat) IsDir() bool {
	return s.Mode.IsDir()
}

// IsFile returns true if this is a regular file
func (s PathStat) IsFile() bool {
	return s.Mode.IsRegular()
}
