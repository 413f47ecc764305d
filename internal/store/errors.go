package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeValidation marks malformed input or missing required fields.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeConstraint marks an explicit id that is already taken.
	ErrCodeConstraint ErrorCode = "CONSTRAINT"

	// ErrCodeStorage marks an underlying I/O or transaction failure.
	ErrCodeStorage ErrorCode = "STORAGE"
)

// Error is returned by every Stories operation that fails.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed: open, save, getAll, delete, count.
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsConstraint reports whether err is a constraint error.
func IsConstraint(err error) bool {
	return hasCode(err, ErrCodeConstraint)
}

// IsStorage reports whether err is a storage error.
func IsStorage(err error) bool {
	return hasCode(err, ErrCodeStorage)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func validationError(op, msg string, cause error) *Error {
	return &Error{Code: ErrCodeValidation, Op: op, Message: msg, Err: cause}
}

func constraintError(op, msg string, cause error) *Error {
	return &Error{Code: ErrCodeConstraint, Op: op, Message: msg, Err: cause}
}

func storageError(op, msg string, cause error) *Error {
	return &Error{Code: ErrCodeStorage, Op: op, Message: msg, Err: cause}
}
