package archive

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"time"

	"github.com/Ning0612/sympack/internal/domain"
	"github.com/Ning0612/sympack/internal/fsys"
	"github.com/Ning0612/sympack/internal/pathutil"
)

// WriteMode selects how OpenWriter treats an existing file
type WriteMode int

const (
	// ModeCreate truncates the file and writes a new archive ("w")
	ModeCreate WriteMode = iota

	// ModeCreateAfter keeps existing bytes and writes a new archive after
	// them, recording absolute offsets ("w+"). Used to embed an archive
	// into an executable.
	ModeCreateAfter

	// ModeAppend adds entries to an existing archive ("a")
	ModeAppend
)

func (m WriteMode) String() string {
	switch m {
	case ModeCreate:
		return "w"
	case ModeCreateAfter:
		return "w+"
	case ModeAppend:
		return "a"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(m))
	}
}

// ParseWriteMode maps "w", "w+" and "a" to a WriteMode
func ParseWriteMode(s string) (WriteMode, error) {
	switch s {
	case "w", "":
		return ModeCreate, nil
	case "w+":
		return ModeCreateAfter, nil
	case "a":
		return ModeAppend, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Writer appends entries to a ZIP archive. Entries are written one at a
// time; the central directory is written by Close.
type Writer struct {
	file    *os.File
	name    string
	mode    WriteMode
	level   int
	base    int64
	offset  int64
	entries []*fileHeader
	comment []byte
	closed  bool

	// now supplies entry timestamps
	now func() time.Time
}

// OpenWriter opens filename for writing with a compression level of 0-9.
// Level 0 stores entries uncompressed.
func OpenWriter(filename string, mode WriteMode, level int) (*Writer, error) {
	if level < 0 || level > 9 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	w := &Writer{name: filename, mode: mode, level: level, now: time.Now}
	var err error

	switch mode {
	case ModeCreate:
		w.file, err = fsys.Open(filename, "wb")
		if err != nil {
			return nil, err
		}

	case ModeCreateAfter:
		w.file, err = fsys.Open(filename, "ab")
		if err != nil {
			return nil, err
		}
		if w.offset, err = w.file.Seek(0, io.SeekEnd); err != nil {
			w.file.Close()
			return nil, fmt.Errorf("%w: seek %s: %w", domain.ErrIO, filename, err)
		}

	case ModeAppend:
		if err := w.loadExisting(); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}

	return w, nil
}

// loadExisting reads the central directory of an existing archive and
// positions the writer where that directory started
func (w *Writer) loadExisting() error {
	r, err := OpenReader(w.name)
	if err != nil {
		return err
	}
	w.entries = r.entries
	w.comment = []byte(r.comment)
	w.base = r.base
	w.offset = r.dirStart
	r.Close()

	w.file, err = fsys.Open(w.name, "r+b")
	if err != nil {
		return err
	}
	if _, err := w.file.Seek(w.offset, io.SeekStart); err != nil {
		w.file.Close()
		return fmt.Errorf("%w: seek %s: %w", domain.ErrIO, w.name, err)
	}
	return nil
}

// Entries returns the number of entries written so far, including any
// carried over from an existing archive
func (w *Writer) Entries() int {
	return len(w.entries)
}

// Append writes data as a new entry. Separators in name are normalized to
// '/'. A non-empty password encrypts the entry with the traditional
// PKWARE cipher.
func (w *Writer) Append(data []byte, name, password, comment string) error {
	if w.closed {
		return domain.ErrClosed
	}
	name = pathutil.ToSlash(name)
	if name == "" {
		return fmt.Errorf("%w: empty entry name", domain.ErrArchiveFormat)
	}
	if len(name) > maxUint16 || len(comment) > maxUint16 {
		return ErrNameTooLong
	}
	if int64(len(data)) > maxUint32 {
		return ErrZip64
	}
	if len(w.entries) >= maxUint16 {
		return ErrZip64
	}

	date, tm := DosDateTime(w.now())
	h := &fileHeader{
		versionMadeBy: versionMadeBy,
		versionNeeded: versionNeeded,
		flags:         flagUTF8,
		method:        uint16(domain.MethodStore),
		modTime:       tm,
		modDate:       date,
		crc32:         crc32.ChecksumIEEE(data),
		size:          uint32(len(data)),
		name:          []byte(name),
		comment:       []byte(comment),
	}

	payload, owned := data, false
	if w.level > 0 && len(data) > 0 {
		compressed, err := deflate(data, w.level)
		if err != nil {
			return fmt.Errorf("%w: deflate %s: %w", domain.ErrIO, name, err)
		}
		if len(compressed) < len(data) {
			payload, owned = compressed, true
			h.method = uint16(domain.MethodDeflate)
		}
	}

	var encHeader []byte
	if password != "" {
		if !owned {
			payload = append([]byte(nil), payload...)
		}
		var err error
		if encHeader, err = sealEntry(payload, password, checkByte(h)); err != nil {
			return err
		}
		h.flags |= flagEncrypted
	}

	compressedSize := int64(len(encHeader) + len(payload))
	if compressedSize > maxUint32 {
		return ErrZip64
	}
	h.compressedSize = uint32(compressedSize)

	rel := w.offset - w.base
	if rel > maxUint32 {
		return ErrZip64
	}
	h.localOffset = uint32(rel)

	local := h.encodeLocal()
	for _, chunk := range [][]byte{local, encHeader, payload} {
		if err := w.write(chunk); err != nil {
			return err
		}
	}
	w.entries = append(w.entries, h)
	return nil
}

// AppendFile reads src fully into memory and appends it as name
func (w *Writer) AppendFile(src, name, password, comment string) error {
	if w.closed {
		return domain.ErrClosed
	}
	data, err := fsys.ReadFile(src)
	if err != nil {
		return err
	}
	return w.Append(data, name, password, comment)
}

func (w *Writer) write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	n, err := w.file.Write(p)
	w.offset += int64(n)
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", domain.ErrIO, w.name, err)
	}
	return nil
}

// Close writes the central directory and end record, then releases the
// file. An empty comment keeps the comment of an archive opened with
// ModeAppend. Calling Close again is a no-op.
func (w *Writer) Close(comment string) error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.finish(comment)
	if cerr := w.file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: close %s: %w", domain.ErrIO, w.name, cerr)
	}
	return err
}

func (w *Writer) finish(comment string) error {
	if len(comment) > maxUint16 {
		return ErrNameTooLong
	}
	if comment != "" {
		w.comment = []byte(comment)
	}

	dirStart := w.offset
	for _, h := range w.entries {
		h.dirOffset = w.offset - w.base
		if err := w.write(h.encodeCentral()); err != nil {
			return err
		}
	}

	dirOffset := dirStart - w.base
	if dirOffset > maxUint32 {
		return ErrZip64
	}
	end := &endRecord{
		diskEntries:  uint16(len(w.entries)),
		totalEntries: uint16(len(w.entries)),
		dirSize:      uint32(w.offset - dirStart),
		dirOffset:    uint32(dirOffset),
		comment:      w.comment,
	}
	if err := w.write(end.encode()); err != nil {
		return err
	}

	// the rewritten directory may be shorter than the one it replaced
	if w.mode == ModeAppend {
		if err := w.file.Truncate(w.offset); err != nil {
			return fmt.Errorf("%w: truncate %s: %w", domain.ErrIO, w.name, err)
		}
	}
	return nil
}
