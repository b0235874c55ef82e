// Package fs provides a read-only FUSE view of a postprocessing archive.
//
// This file contains error types and error handling utilities.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"pparchive/internal/catalog"
	"pparchive/internal/logging"
	"pparchive/internal/poll"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrPathNotFound indicates a virtual path doesn't exist
	ErrPathNotFound = errors.New("virtual path not found")

	// ErrReadOnly indicates attempt to modify read-only filesystem
	ErrReadOnly = errors.New("filesystem is read-only")
)

// Error wraps filesystem errors with the operation and affected path.
type Error struct {
	Op   string // Operation that failed (e.g., "lookup", "readdir")
	Path string // Affected path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

// ToFuseError converts an error to the syscall error FUSE expects.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	var fsErr *Error
	if errors.As(err, &fsErr) {
		errLogger.Trace("Converting FSError to FUSE error: %v", fsErr)
	} else {
		errLogger.Trace("Converting standard error to FUSE error: %v", err)
	}

	switch {
	case errors.Is(err, ErrPathNotFound), errors.Is(err, catalog.ErrNoLayout), errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, ErrReadOnly):
		return syscall.EROFS
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, poll.ErrExhausted), errors.Is(err, poll.ErrTimeout):
		return syscall.ETIMEDOUT
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return syscall.EINTR
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return syscall.EIO
	}
}

// NewFSError creates a new FSError with the given operation, path, and underlying error
func NewFSError(op string, path string, err error) *Error {
	fsErr := &Error{
		Op:   op,
		Path: path,
		Err:  err,
	}
	errLogger.Debug("Created new FSError: %v", fsErr)
	return fsErr
}

// Common operation names for consistent logging and error reporting
const (
	OpLookup   = "lookup"   // Looking up a path
	OpReadDir  = "readdir"  // Reading directory contents
	OpOpen     = "open"     // Opening a file
	OpRead     = "read"     // Reading from a file
	OpGetattr  = "getattr"  // Getting file attributes
	OpGetxattr = "getxattr" // Reading residency or source attributes
	OpStage    = "stage"    // Recalling a file from tape
)
