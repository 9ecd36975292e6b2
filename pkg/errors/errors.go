// Package errors defines bdx's error taxonomy and its mapping onto process
// exit codes, in place of an HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrParseQuery           = errors.New("query parse error")
	ErrSchemaVersionMismatch = errors.New("schema version mismatch")
	ErrFileError            = errors.New("file error")
	ErrIndexError           = errors.New("index error")
	ErrLockContention       = errors.New("lock contention")
	ErrCancelled            = errors.New("cancelled")
	ErrUsage                = errors.New("usage error")
)

// AppError carries the sentinel it wraps plus a one-line, user-facing
// message. ParseQuery errors additionally carry a rune-offset Position for a
// caret.
type AppError struct {
	Err      error
	Message  string
	Position int // -1 when not applicable
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, Position: -1}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{Err: sentinel, Message: fmt.Sprintf(format, args...), Position: -1}
}

// NewParseError builds a ParseQuery AppError with a caret position.
func NewParseError(message string, position int) *AppError {
	return &AppError{Err: ErrParseQuery, Message: message, Position: position}
}

// ExitCode maps an error to the process exit codes described in the CLI
// surface: 0 success, 1 query-parse error, 2 usage error, 3 I/O or index
// error, 4 no-results (reserved, never produced here).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case errors.Is(err, ErrParseQuery):
		return 1
	case errors.Is(err, ErrUsage):
		return 2
	case errors.Is(err, ErrSchemaVersionMismatch),
		errors.Is(err, ErrFileError),
		errors.Is(err, ErrIndexError),
		errors.Is(err, ErrLockContention),
		errors.Is(err, ErrCancelled):
		return 3
	default:
		return 3
	}
}
