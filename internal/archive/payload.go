package archive

import (
	"fmt"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/fsys"
)

// PayloadOf reports how many trailing bytes of filename form an archive
func PayloadOf(filename string) (int64, error) {
	r, err := OpenReader(filename)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return r.PayloadSize(), nil
}

// RemoveEmbeddedPayload cuts the archive off the end of filename, leaving
// only the bytes that preceded it. A standalone archive is left alone and
// reported as ErrNotEmbedded.
func RemoveEmbeddedPayload(filename string) error {
	r, err := OpenReader(filename)
	if err != nil {
		return err
	}
	prefix := r.Size() - r.PayloadSize()
	if err := r.Close(); err != nil {
		return err
	}
	if prefix == 0 {
		return fmt.Errorf("%w: %s", ErrNotEmbedded, filename)
	}

	f, err := fsys.Open(filename, "r+b")
	if err != nil {
		return err
	}
	if err := f.Truncate(prefix); err != nil {
		f.Close()
		return fmt.Errorf("%w: truncate %s: %w", domain.ErrIO, filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrIO, filename, err)
	}
	return nil
}
