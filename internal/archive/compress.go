package archive

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"

	"github.com/Ning0612/sympack/internal/domain"
)

// deflaters holds one writer pool per compression level 1-9
var deflaters [10]sync.Pool

// inflaters recycles decompressors between entries
var inflaters sync.Pool

// deflate compresses data at level (1-9)
func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	w, ok := deflaters[level].Get().(*flate.Writer)
	if ok {
		w.Reset(&buf)
	} else {
		var err error
		if w, err = flate.NewWriter(&buf, level); err != nil {
			return nil, err
		}
	}
	defer deflaters[level].Put(w)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// inflate decompresses src into dst, which must hold exactly size bytes
func inflate(dst, src []byte) error {
	r := bytes.NewReader(src)
	fr, ok := inflaters.Get().(io.ReadCloser)
	if ok {
		if err := fr.(flate.Resetter).Reset(r, nil); err != nil {
			return err
		}
	} else {
		fr = flate.NewReader(r)
	}
	defer inflaters.Put(fr)

	if _, err := io.ReadFull(fr, dst); err != nil {
		return fmt.Errorf("%w: inflate: %w", domain.ErrArchiveFormat, err)
	}
	// anything left over means the header understated the size
	var probe [1]byte
	if n, _ := fr.Read(probe[:]); n > 0 {
		return ErrSizeMismatch
	}
	return nil
}
