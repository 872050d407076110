//go:build linux || darwin

package pathutil

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Ning0612/sympack/internal/domain"
)

func platformStat(path string) (*domain.PathStat, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	return &domain.PathStat{
		Device:     uint64(st.Dev),
		Inode:      uint64(st.Ino),
		Mode:       fileMode(uint32(st.Mode)),
		Links:      uint64(st.Nlink),
		UID:        st.Uid,
		GID:        st.Gid,
		RDev:       uint64(st.Rdev),
		Size:       st.Size,
		AccessTime: time.Unix(st.Atim.Unix()),
		ModTime:    time.Unix(st.Mtim.Unix()),
		ChangeTime: time.Unix(st.Ctim.Unix()),
	}, nil
}
