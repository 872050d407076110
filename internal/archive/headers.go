package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/Ning0612/sympack/internal/domain"
)

// Record signatures ("PK" followed by the record type)
const (
	localHeaderSignature    uint32 = 0x04034b50
	centralHeaderSignature  uint32 = 0x02014b50
	endRecordSignature      uint32 = 0x06054b50
	dataDescriptorSignature uint32 = 0x08074b50
)

// Fixed record lengths, excluding variable-length trailers
const (
	localHeaderLen   = 30
	centralHeaderLen = 46
	endRecordLen     = 22
)

const (
	versionMadeBy uint16 = 36
	versionNeeded uint16 = 20

	flagEncrypted      uint16 = 1 << 0
	flagDataDescriptor uint16 = 1 << 3
	flagUTF8           uint16 = 1 << 11

	maxUint16 = 1<<16 - 1
	maxUint32 = 1<<32 - 1
)

// fileHeader is one central directory record
type fileHeader struct {
	versionMadeBy  uint16
	versionNeeded  uint16
	flags          uint16
	method         uint16
	modTime        uint16
	modDate        uint16
	crc32          uint32
	compressedSize uint32
	size           uint32
	diskStart      uint16
	internalAttrs  uint16
	externalAttrs  uint32
	localOffset    uint32
	name           []byte
	extra          []byte
	comment        []byte

	// dirOffset is where this record sits, in the archive's offset space
	dirOffset int64
}

// recordLen is the encoded length of the central record
func (h *fileHeader) recordLen() int {
	return centralHeaderLen + len(h.name) + len(h.extra) + len(h.comment)
}

// encodeLocal builds the local file header for h
func (h *fileHeader) encodeLocal() []byte {
	buf := make([]byte, localHeaderLen+len(h.name))
	le := binary.LittleEndian
	le.PutUint32(buf[0:], localHeaderSignature)
	le.PutUint16(buf[4:], h.versionNeeded)
	le.PutUint16(buf[6:], h.flags)
	le.PutUint16(buf[8:], h.method)
	le.PutUint16(buf[10:], h.modTime)
	le.PutUint16(buf[12:], h.modDate)
	le.PutUint32(buf[14:], h.crc32)
	le.PutUint32(buf[18:], h.compressedSize)
	le.PutUint32(buf[22:], h.size)
	le.PutUint16(buf[26:], uint16(len(h.name)))
	le.PutUint16(buf[28:], 0)
	copy(buf[localHeaderLen:], h.name)
	return buf
}

// encodeCentral builds the central directory record for h
func (h *fileHeader) encodeCentral() []byte {
	buf := make([]byte, h.recordLen())
	le := binary.LittleEndian
	le.PutUint32(buf[0:], centralHeaderSignature)
	le.PutUint16(buf[4:], h.versionMadeBy)
	le.PutUint16(buf[6:], h.versionNeeded)
	le.PutUint16(buf[8:], h.flags)
	le.PutUint16(buf[10:], h.method)
	le.PutUint16(buf[12:], h.modTime)
	le.PutUint16(buf[14:], h.modDate)
	le.PutUint32(buf[16:], h.crc32)
	le.PutUint32(buf[20:], h.compressedSize)
	le.PutUint32(buf[24:], h.size)
	le.PutUint16(buf[28:], uint16(len(h.name)))
	le.PutUint16(buf[30:], uint16(len(h.extra)))
	le.PutUint16(buf[32:], uint16(len(h.comment)))
	le.PutUint16(buf[34:], h.diskStart)
	le.PutUint16(buf[36:], h.internalAttrs)
	le.PutUint32(buf[38:], h.externalAttrs)
	le.PutUint32(buf[42:], h.localOffset)
	n := centralHeaderLen
	n += copy(buf[n:], h.name)
	n += copy(buf[n:], h.extra)
	copy(buf[n:], h.comment)
	return buf
}

// decodeCentral parses one central record at the start of buf and
// returns it with the number of bytes consumed
func decodeCentral(buf []byte) (*fileHeader, int, error) {
	if len(buf) < centralHeaderLen {
		return nil, 0, fmt.Errorf("%w: truncated central directory", domain.ErrArchiveFormat)
	}
	le := binary.LittleEndian
	if le.Uint32(buf) != centralHeaderSignature {
		return nil, 0, fmt.Errorf("%w: bad central directory signature", domain.ErrArchiveFormat)
	}

	h := &fileHeader{
		versionMadeBy:  le.Uint16(buf[4:]),
		versionNeeded:  le.Uint16(buf[6:]),
		flags:          le.Uint16(buf[8:]),
		method:         le.Uint16(buf[10:]),
		modTime:        le.Uint16(buf[12:]),
		modDate:        le.Uint16(buf[14:]),
		crc32:          le.Uint32(buf[16:]),
		compressedSize: le.Uint32(buf[20:]),
		size:           le.Uint32(buf[24:]),
		diskStart:      le.Uint16(buf[34:]),
		internalAttrs:  le.Uint16(buf[36:]),
		externalAttrs:  le.Uint32(buf[38:]),
		localOffset:    le.Uint32(buf[42:]),
	}
	nameLen := int(le.Uint16(buf[28:]))
	extraLen := int(le.Uint16(buf[30:]))
	commentLen := int(le.Uint16(buf[32:]))

	total := centralHeaderLen + nameLen + extraLen + commentLen
	if len(buf) < total {
		return nil, 0, fmt.Errorf("%w: truncated central directory entry", domain.ErrArchiveFormat)
	}
	n := centralHeaderLen
	h.name = append([]byte(nil), buf[n:n+nameLen]...)
	n += nameLen
	h.extra = append([]byte(nil), buf[n:n+extraLen]...)
	n += extraLen
	h.comment = append([]byte(nil), buf[n:n+commentLen]...)

	if h.compressedSize == maxUint32 || h.size == maxUint32 || h.localOffset == maxUint32 {
		return nil, 0, ErrZip64
	}
	return h, total, nil
}

// endRecord is the end of central directory record
type endRecord struct {
	diskNumber   uint16
	dirDisk      uint16
	diskEntries  uint16
	totalEntries uint16
	dirSize      uint32
	dirOffset    uint32
	comment      []byte
}

func (e *endRecord) encode() []byte {
	buf := make([]byte, endRecordLen+len(e.comment))
	le := binary.LittleEndian
	le.PutUint32(buf[0:], endRecordSignature)
	le.PutUint16(buf[4:], e.diskNumber)
	le.PutUint16(buf[6:], e.dirDisk)
	le.PutUint16(buf[8:], e.diskEntries)
	le.PutUint16(buf[10:], e.totalEntries)
	le.PutUint32(buf[12:], e.dirSize)
	le.PutUint32(buf[16:], e.dirOffset)
	le.PutUint16(buf[20:], uint16(len(e.comment)))
	copy(buf[endRecordLen:], e.comment)
	return buf
}

// decodeEndRecord parses an end record; buf starts at the signature and
// runs to the end of the file
func decodeEndRecord(buf []byte) (*endRecord, error) {
	if len(buf) < endRecordLen {
		return nil, fmt.Errorf("%w: truncated end record", domain.ErrArchiveFormat)
	}
	le := binary.LittleEndian
	e := &endRecord{
		diskNumber:   le.Uint16(buf[4:]),
		dirDisk:      le.Uint16(buf[6:]),
		diskEntries:  le.Uint16(buf[8:]),
		totalEntries: le.Uint16(buf[10:]),
		dirSize:      le.Uint32(buf[12:]),
		dirOffset:    le.Uint32(buf[16:]),
	}
	commentLen := int(le.Uint16(buf[20:]))
	if len(buf) < endRecordLen+commentLen {
		return nil, fmt.Errorf("%w: end record comment runs past end of file", domain.ErrArchiveFormat)
	}
	e.comment = append([]byte(nil), buf[endRecordLen:endRecordLen+commentLen]...)

	if e.totalEntries == maxUint16 || e.dirSize == maxUint32 || e.dirOffset == maxUint32 {
		return nil, ErrZip64
	}
	if e.diskNumber != 0 || e.dirDisk != 0 || e.diskEntries != e.totalEntries {
		return nil, fmt.Errorf("%w: multi-disk archives are not supported", domain.ErrArchiveFormat)
	}
	return e, nil
}

// localHeader holds the variable lengths read from a local file header
type localHeader struct {
	nameLen  int
	extraLen int
}

func decodeLocal(buf []byte) (localHeader, error) {
	le := binary.LittleEndian
	if len(buf) < localHeaderLen || le.Uint32(buf) != localHeaderSignature {
		return localHeader{}, fmt.Errorf("%w: bad local header signature", domain.ErrArchiveFormat)
	}
	return localHeader{
		nameLen:  int(le.Uint16(buf[26:])),
		extraLen: int(le.Uint16(buf[28:])),
	}, nil
}
