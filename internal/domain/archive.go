package domain

import "time"

// CompressionMethod is the ZIP method identifier
type CompressionMethod uint16

const (
	MethodStore   CompressionMethod = 0
	MethodDeflate CompressionMethod = 8
)

func (m CompressionMethod) String() string {
	switch m {
	case MethodStore:
		return "store"
	case MethodDeflate:
		return "deflate"
	default:
		return "unknown"
	}
}

// EntryInfo describes one archive entry as recorded in the central directory
type EntryInfo struct {
	// Name is the entry name; when the caller supplied a smaller buffer
	// only the first bytes are present, NameSize holds the full length
	Name     string
	NameSize int

	// Comment follows the same truncation rule as Name
	Comment     string
	CommentSize int

	ExtraSize int

	VersionMadeBy  uint16
	VersionNeeded  uint16
	Flags          uint16
	Method         CompressionMethod
	ModTime        time.Time
	CRC32          uint32
	CompressedSize uint64
	Size           uint64

	DiskNumberStart    uint16
	InternalAttributes uint16
	ExternalAttributes uint32
}

// IsEncrypted reports whether general purpose bit 0 is set
func (e EntryInfo) IsEncrypted() bool {
	return e.Flags&0x1 != 0
}

// IsUTF8 reports whether general purpose bit 11 is set
func (e EntryInfo) IsUTF8() bool {
	return e.Flags&0x800 != 0
}

// IsDir reports whether the entry names a directory
func (e EntryInfo) IsDir() bool {
	n := len(e.Name)
	return n > 0 && (e.Name[n-1] == '/' || e.Name[n-1] == '\\')
}

// EntryPosition is an opaque bookmark into a reader's central directory
type EntryPosition struct {
	DirOffset int64
	FileIndex int
}

// OperationKind names an archive operation recorded in history
type OperationKind string

const (
	OpCompress OperationKind = "compress"
	OpExtract  OperationKind = "extract"
	OpEmbed    OperationKind = "embed"
	OpStrip    OperationKind = "strip"
)

// OperationStatus represents the outcome of an archive operation
type OperationStatus string

const (
	StatusSuccess OperationStatus = "success"
	StatusFailed  OperationStatus = "failed"
	StatusPartial OperationStatus = "partial"
)

// OperationResult is what the service reports after running an operation
type OperationResult struct {
	Kind      OperationKind
	Source    string
	Target    string
	Entries   int
	Bytes     int64
	Digest    string
	StartTime time.Time
	EndTime   time.Time
	Errors    []error
}

// Duration returns the time spent on the operation
func (r OperationResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// Success reports whether the operation finished without errors
func (r OperationResult) Success() bool {
	return len(r.Errors) == 0
}
