package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"golang.org/x/text/encoding/charmap"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/pathutil"
)

// Reader reads a ZIP archive, including one appended after arbitrary
// leading bytes. It keeps a cursor on a current entry, positioned at the
// first entry after OpenReader.
type Reader struct {
	file *os.File
	name string
	size int64

	// base is added to recorded offsets to get file positions
	base     int64
	dirStart int64

	entries     []*fileHeader
	dataOffsets []int64
	current     int

	comment     string
	payloadSize int64
	closed      bool
}

// OpenReader opens filename as an archive. Returns ErrNoArchive when the
// file holds no end of central directory record.
func OpenReader(filename string) (*Reader, error) {
	f, err := fsys.Open(filename, "rb")
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrIO, filename, err)
	}

	r := &Reader{file: f, name: filename, size: info.Size()}
	if err := r.init(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) init() error {
	endPos, end, err := r.findEndRecord()
	if err != nil {
		return err
	}
	r.comment = string(end.comment)
	r.dirStart = endPos - int64(end.dirSize)
	r.base = r.dirStart - int64(end.dirOffset)

	dir := make([]byte, end.dirSize)
	if _, err := r.file.ReadAt(dir, r.dirStart); err != nil {
		return fmt.Errorf("%w: read central directory: %w", domain.ErrArchiveFormat, err)
	}

	r.entries = make([]*fileHeader, 0, end.totalEntries)
	for pos := 0; len(r.entries) < int(end.totalEntries); {
		h, n, err := decodeCentral(dir[pos:])
		if err != nil {
			return err
		}
		h.dirOffset = int64(end.dirOffset) + int64(pos)
		r.entries = append(r.entries, h)
		pos += n
	}

	return r.locateData()
}

// findEndRecord scans backwards through the last 64 KiB of the file for
// the end of central directory record. Candidates that fail to decode or
// whose offsets do not fit inside the file are skipped.
func (r *Reader) findEndRecord() (int64, *endRecord, error) {
	if r.size < endRecordLen {
		return 0, nil, ErrNoArchive
	}

	limit := min(int64(maxUint16+endRecordLen), r.size)
	tail := make([]byte, limit)
	if _, err := r.file.ReadAt(tail, r.size-limit); err != nil && err != io.EOF {
		return 0, nil, fmt.Errorf("%w: read %s: %w", domain.ErrIO, r.name, err)
	}

	for p := len(tail) - 4; p >= 0; p-- {
		if binary.LittleEndian.Uint32(tail[p:]) != endRecordSignature {
			continue
		}
		end, err := decodeEndRecord(tail[p:])
		if errors.Is(err, ErrZip64) {
			return 0, nil, err
		}
		if err != nil {
			continue
		}
		pos := r.size - limit + int64(p)
		dirStart := pos - int64(end.dirSize)
		if dirStart < 0 || dirStart-int64(end.dirOffset) < 0 {
			continue
		}
		return pos, end, nil
	}
	return 0, nil, ErrNoArchive
}

// locateData reads every local header to find where entry data starts
// and where the archive itself begins
func (r *Reader) locateData() error {
	r.dataOffsets = make([]int64, len(r.entries))
	zipStart := r.dirStart

	var buf [localHeaderLen]byte
	for i, h := range r.entries {
		pos := r.base + int64(h.localOffset)
		if _, err := r.file.ReadAt(buf[:], pos); err != nil {
			return fmt.Errorf("%w: read local header of %q: %w", domain.ErrArchiveFormat, h.name, err)
		}
		lh, err := decodeLocal(buf[:])
		if err != nil {
			return err
		}
		data := pos + localHeaderLen + int64(lh.nameLen) + int64(lh.extraLen)
		if data+int64(h.compressedSize) > r.dirStart {
			return fmt.Errorf("%w: entry %q overlaps the central directory", domain.ErrArchiveFormat, h.name)
		}
		r.dataOffsets[i] = data
		zipStart = min(zipStart, pos)
	}

	r.payloadSize = r.size - zipStart
	return nil
}

// Entries returns the number of entries in the archive
func (r *Reader) Entries() int {
	return len(r.entries)
}

// Comment returns the archive's global comment
func (r *Reader) Comment() string {
	return r.comment
}

// PayloadSize returns how many trailing bytes of the file belong to the
// archive. For a standalone archive this is the file size.
func (r *Reader) PayloadSize() int64 {
	return r.payloadSize
}

// Size returns the size of the underlying file
func (r *Reader) Size() int64 {
	return r.size
}

// LocateFirst moves the cursor to the first entry. Returns io.EOF for an
// empty archive.
func (r *Reader) LocateFirst() error {
	if r.closed {
		return domain.ErrClosed
	}
	r.current = 0
	if len(r.entries) == 0 {
		return io.EOF
	}
	return nil
}

// LocateNext advances the cursor. Returns io.EOF after the last entry.
func (r *Reader) LocateNext() error {
	if r.closed {
		return domain.ErrClosed
	}
	if r.current+1 >= len(r.entries) {
		r.current = len(r.entries)
		return io.EOF
	}
	r.current++
	return nil
}

// LocateName moves the cursor to the entry called name, compared
// case-sensitively after separator normalization. The cursor does not
// move when no entry matches.
func (r *Reader) LocateName(name string) error {
	if r.closed {
		return domain.ErrClosed
	}
	want := pathutil.ToSlash(name)
	for i, h := range r.entries {
		if r.entryName(h) == want {
			r.current = i
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// entryName decodes a stored name; names without the UTF-8 flag are
// taken to be code page 437
func (r *Reader) entryName(h *fileHeader) string {
	return decodeText(h.name, h.flags)
}

func decodeText(raw []byte, flags uint16) string {
	if flags&flagUTF8 != 0 || isASCII(raw) {
		return string(raw)
	}
	out, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}

func (r *Reader) currentHeader() (*fileHeader, error) {
	if r.closed {
		return nil, domain.ErrClosed
	}
	if r.current >= len(r.entries) {
		return nil, ErrNoCurrentEntry
	}
	return r.entries[r.current], nil
}

// Info describes the current entry. The name and comment are copied into
// the supplied buffers, truncated to their length; NameSize and
// CommentSize always report the full lengths, so a first call with empty
// buffers tells the caller how much to allocate for the second.
func (r *Reader) Info(name, comment []byte) (domain.EntryInfo, error) {
	h, err := r.currentHeader()
	if err != nil {
		return domain.EntryInfo{}, err
	}

	fullName := r.entryName(h)
	fullComment := decodeText(h.comment, h.flags)
	n := copy(name, fullName)
	c := copy(comment, fullComment)

	return domain.EntryInfo{
		Name:               string(name[:n]),
		NameSize:           len(fullName),
		Comment:            string(comment[:c]),
		CommentSize:        len(fullComment),
		ExtraSize:          len(h.extra),
		VersionMadeBy:      h.versionMadeBy,
		VersionNeeded:      h.versionNeeded,
		Flags:              h.flags,
		Method:             domain.CompressionMethod(h.method),
		ModTime:            ParseDosDateTime(h.modDate, h.modTime),
		CRC32:              h.crc32,
		CompressedSize:     uint64(h.compressedSize),
		Size:               uint64(h.size),
		DiskNumberStart:    h.diskStart,
		InternalAttributes: h.internalAttrs,
		ExternalAttributes: h.externalAttrs,
	}, nil
}

// Current describes the current entry with its full name and comment
func (r *Reader) Current() (domain.EntryInfo, error) {
	info, err := r.Info(nil, nil)
	if err != nil {
		return info, err
	}
	return r.Info(make([]byte, info.NameSize), make([]byte, info.CommentSize))
}

// Content decompresses the current entry into dest, which must be at
// least as long as the entry's uncompressed size. Encrypted entries need
// the password they were written with. The CRC32 is verified.
func (r *Reader) Content(dest []byte, password string) error {
	h, err := r.currentHeader()
	if err != nil {
		return err
	}
	if uint64(len(dest)) < uint64(h.size) {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, h.size, len(dest))
	}
	dest = dest[:h.size]

	raw := make([]byte, h.compressedSize)
	if _, err := r.file.ReadAt(raw, r.dataOffsets[r.current]); err != nil {
		return fmt.Errorf("%w: read entry %q: %w", domain.ErrIO, h.name, err)
	}

	if h.flags&flagEncrypted != 0 {
		if password == "" {
			return fmt.Errorf("%w: %s", ErrPasswordRequired, h.name)
		}
		if raw, err = openEntry(raw, password, checkByte(h)); err != nil {
			return err
		}
	}

	switch domain.CompressionMethod(h.method) {
	case domain.MethodStore:
		if len(raw) != len(dest) {
			return ErrSizeMismatch
		}
		copy(dest, raw)
	case domain.MethodDeflate:
		if err := inflate(dest, raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: method %d", ErrUnsupportedMethod, h.method)
	}

	if crc32.ChecksumIEEE(dest) != h.crc32 {
		return fmt.Errorf("%w: %s", ErrChecksum, h.name)
	}
	return nil
}

// ReadCurrent returns the decompressed content of the current entry
func (r *Reader) ReadCurrent(password string) ([]byte, error) {
	h, err := r.currentHeader()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, h.size)
	if err := r.Content(buf, password); err != nil {
		return nil, err
	}
	return buf, nil
}

// Pos returns a bookmark for the current entry
func (r *Reader) Pos() (domain.EntryPosition, error) {
	h, err := r.currentHeader()
	if err != nil {
		return domain.EntryPosition{}, err
	}
	return domain.EntryPosition{DirOffset: h.dirOffset, FileIndex: r.current}, nil
}

// Locate returns the cursor to a bookmark taken with Pos
func (r *Reader) Locate(pos domain.EntryPosition) error {
	if r.closed {
		return domain.ErrClosed
	}
	if pos.FileIndex < 0 || pos.FileIndex >= len(r.entries) || r.entries[pos.FileIndex].dirOffset != pos.DirOffset {
		return fmt.Errorf("%w: position %d@%d does not name an entry", domain.ErrArchiveFormat, pos.FileIndex, pos.DirOffset)
	}
	r.current = pos.FileIndex
	return nil
}

// Offset returns the central directory offset of the current entry, or 0
// when the cursor is past the end
func (r *Reader) Offset() int64 {
	if r.closed || r.current >= len(r.entries) {
		return 0
	}
	return r.entries[r.current].dirOffset
}

// Close releases the file. Calling Close again is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrIO, r.name, err)
	}
	return nil
}
