//go:build !linux && !darwin && !windows

package pathutil

import (
	"os"

	"github.com/Ning0612/sympack/internal/domain"
)

func platformStat(path string) (*domain.PathStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &domain.PathStat{
		Mode:    info.Mode(),
		Links:   1,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}
