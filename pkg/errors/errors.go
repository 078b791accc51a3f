package errors

import (
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrValidation
	ErrFetchFailed
	ErrPartialCommit
	ErrConflict
	ErrInternal
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

// NewValidation marks malformed or unaligned scheduling input.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
	}
}

// NewFetchFailed marks a failed read of rules, exceptions or bookings.
// Nothing was changed on the backend, so a full retry is safe.
func NewFetchFailed(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrFetchFailed,
		Message: fmt.Sprintf("failed to fetch %s", resource),
		Err:     err,
	}
}

func NewConflict(message string, err error) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

// PartialCommitError reports a replace that deleted the old rows but
// failed before all new rows were created. The persisted schedule now
// matches neither the old nor the intended state; callers must re-fetch
// before allowing further edits.
type PartialCommitError struct {
	Deleted int
	Created int
	Wanted  int
	Err     error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("partial schedule commit: deleted %d rows, created %d of %d: %v",
		e.Deleted, e.Created, e.Wanted, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}
