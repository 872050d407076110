package domain

import (
	"errors"
	"fmt"
)

// Filesystem errors - 檔案系統層錯誤
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates the destination exists and overwrite was not requested
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrEmptyDir indicates a directory with nothing to enumerate
	ErrEmptyDir = errors.New("directory is empty")

	// ErrIO indicates a read, write or seek failure
	ErrIO = errors.New("i/o error")

	// ErrClosed indicates use of a handle after Close
	ErrClosed = errors.New("handle already closed")

	// ErrPartialOperation indicates a recursive operation stopped midway
	ErrPartialOperation = errors.New("operation partially completed")
)

// Encoding errors - 編碼錯誤
var (
	// ErrEncoding indicates malformed UTF-8 or UTF-16 input
	ErrEncoding = errors.New("invalid text encoding")
)

// Archive errors - 壓縮檔錯誤
var (
	// ErrArchiveFormat indicates a malformed or unsupported ZIP archive
	ErrArchiveFormat = errors.New("invalid archive format")

	// ErrInsecurePath indicates an entry name that escapes the extraction root
	ErrInsecurePath = errors.New("insecure entry path")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")

	// ErrOperationInProgress indicates another process holds the operation lock
	ErrOperationInProgress = errors.New("operation already in progress")
)

// PartialError reports a recursive operation that failed after
// some entries had already been processed. Earlier effects persist.
type PartialError struct {
	Op        string
	Path      string
	Completed int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s %s: %d entries done before failure: %v", e.Op, e.Path, e.Completed, e.Err)
}

// Unwrap exposes both ErrPartialOperation and the underlying cause
func (e *PartialError) Unwrap() []error {
	return []error{ErrPartialOperation, e.Err}
}
