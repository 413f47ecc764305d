package media

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayload means the bytes cannot back a display reference.
	ErrInvalidPayload = errors.New("payload is not a valid binary blob")

	// ErrUnknownHandle means the handle was never issued or has been released.
	ErrUnknownHandle = errors.New("unknown or released media handle")
)

// ReferenceError reports a failed CreateReference. It is non-fatal: callers
// substitute a placeholder and carry on with the remaining items.
type ReferenceError struct {
	Reason string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("create reference: %s", e.Reason)
}

func (e *ReferenceError) Unwrap() error {
	return ErrInvalidPayload
}

// IsReferenceError reports whether err is a ReferenceError.
func IsReferenceError(err error) bool {
	var re *ReferenceError
	return errors.As(err, &re)
}
