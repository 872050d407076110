package main

import (
	"errors"
	"fmt"

	"github.com/Ning0612/sympack/internal/domain"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2 // bad flags or configuration
	ExitBusy    = 3 // the target is locked by another process
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps an error returned by a command to a process exit code
func exitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, domain.ErrOperationInProgress):
		return ExitBusy
	case errors.Is(err, domain.ErrConfigNotFound), errors.Is(err, domain.ErrConfigInvalid):
		return ExitConfig
	default:
		return ExitFailure
	}
}
