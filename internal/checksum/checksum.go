package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/progress"
)

// Algorithm represents the hashing algorithm to use
type Algorithm string

const (
	// CRC32 is the IEEE polynomial used by ZIP entries
	CRC32 Algorithm = "crc32"
	// MD5 algorithm (faster but less secure, suitable for content comparison)
	MD5 Algorithm = "md5"
	// SHA256 algorithm (recommended default for archive digests)
	SHA256 Algorithm = "sha256"
)

var (
	// ErrUnsupported is returned for an unknown algorithm
	ErrUnsupported = errors.New("unsupported algorithm")

	// ErrTooLarge is returned when input exceeds Options.MaxSize
	ErrTooLarge = errors.New("input exceeds maximum size")

	// ErrMismatch is returned by Verify when digests differ
	ErrMismatch = errors.New("checksum mismatch")
)

// Options configures the checksum calculator
type Options struct {
	// MaxSize: inputs larger than this are rejected (0 = unlimited).
	// Default: 4GB, the largest archive without ZIP64
	MaxSize int64

	// BufferSize: size of buffer for streaming reads
	// Default: 32KB
	BufferSize int
}

// DefaultOptions returns the recommended default options
func DefaultOptions() Options {
	return Options{
		MaxSize:    4 << 30,   // 4GB
		BufferSize: 32 * 1024, // 32KB
	}
}

// Calculator computes digests of archives and payloads
type Calculator interface {
	// Calculate computes checksum from an io.Reader
	Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error)
}

// DefaultCalculator implements Calculator with streaming support
type DefaultCalculator struct {
	opts Options
}

// NewCalculator creates a new calculator with the given options
func NewCalculator(opts Options) *DefaultCalculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &DefaultCalculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *DefaultCalculator {
	return NewCalculator(DefaultOptions())
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case CRC32:
		return crc32.NewIEEE(), nil
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, algo)
	}
}

// Calculate implements the Calculator interface
func (c *DefaultCalculator) Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	if c.opts.MaxSize > 0 {
		reader = io.LimitReader(reader, c.opts.MaxSize+1)
	}

	buffer := make([]byte, c.opts.BufferSize)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := reader.Read(buffer)
		if n > 0 {
			total += int64(n)
			if c.opts.MaxSize > 0 && total > c.opts.MaxSize {
				return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.opts.MaxSize)
			}
			h.Write(buffer[:n])
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// CalculateFile digests the file at path, reporting bytes read to reporter
// (which may be nil)
func (c *DefaultCalculator) CalculateFile(ctx context.Context, path string, algo Algorithm, reporter progress.Reporter) (string, error) {
	f, err := fsys.Open(path, "rb")
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if reporter != nil {
		if st, err := f.Stat(); err == nil {
			reporter.Start(path, st.Size())
		}
		r = progress.NewProgressReader(f, reporter)
	}

	sum, err := c.Calculate(ctx, r, algo)
	if reporter != nil {
		if err != nil {
			reporter.Error(err)
		} else {
			reporter.Complete()
		}
	}
	return sum, err
}

// Verify recomputes the digest of path and compares it with want
func (c *DefaultCalculator) Verify(ctx context.Context, path string, algo Algorithm, want string) error {
	got, err := c.CalculateFile(ctx, path, algo, nil)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: %s: got %s, want %s", ErrMismatch, path, got, want)
	}
	return nil
}

// IsSupported checks if the given algorithm is supported
func IsSupported(algo Algorithm) bool {
	_, err := newHash(algo)
	return err == nil
}
