package archive

import (
	"errors"
	"fmt"

	"github.com/Ning0612/sympack/internal/domain"
)

// Archive errors - 壓縮檔錯誤
// Format failures wrap domain.ErrArchiveFormat so callers can match
// either the specific or the general kind.
var (
	// ErrNoArchive indicates no end of central directory record was found
	ErrNoArchive = fmt.Errorf("%w: no zip structure found", domain.ErrArchiveFormat)

	// ErrNotEmbedded indicates an archive with no bytes in front of it
	ErrNotEmbedded = fmt.Errorf("%w: archive is not appended to another file", ErrNoArchive)

	// ErrPasswordMismatch indicates the password check byte did not match
	ErrPasswordMismatch = fmt.Errorf("%w: invalid password", domain.ErrArchiveFormat)

	// ErrPasswordRequired indicates an encrypted entry was read without a password
	ErrPasswordRequired = fmt.Errorf("%w: password required", domain.ErrArchiveFormat)

	// ErrChecksum indicates the CRC32 of the decompressed data does not match
	ErrChecksum = fmt.Errorf("%w: checksum error", domain.ErrArchiveFormat)

	// ErrSizeMismatch indicates the decompressed size does not match the header
	ErrSizeMismatch = fmt.Errorf("%w: uncompressed size mismatch", domain.ErrArchiveFormat)

	// ErrUnsupportedMethod indicates a compression method other than store or deflate
	ErrUnsupportedMethod = fmt.Errorf("%w: unsupported compression method", domain.ErrArchiveFormat)

	// ErrZip64 indicates an archive that needs ZIP64 extensions
	ErrZip64 = fmt.Errorf("%w: zip64 archives are not supported", domain.ErrArchiveFormat)

	// ErrEntryNotFound indicates no entry with the requested name
	ErrEntryNotFound = fmt.Errorf("%w: entry not found", domain.ErrNotFound)

	// ErrNoCurrentEntry indicates the cursor is past the last entry
	ErrNoCurrentEntry = errors.New("no current entry")

	// ErrInvalidLevel indicates a compression level outside 0-9
	ErrInvalidLevel = errors.New("compression level must be between 0 and 9")

	// ErrInvalidMode indicates an unknown writer mode string
	ErrInvalidMode = errors.New("invalid archive mode")

	// ErrNameTooLong indicates a name or comment longer than 65535 bytes
	ErrNameTooLong = errors.New("entry name or comment too long")

	// ErrBufferTooSmall indicates a content buffer shorter than the entry
	ErrBufferTooSmall = errors.New("destination buffer smaller than entry")
)
