package cli

import (
	"errors"

	"github.com/roach88/taleweaver/internal/feed"
	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/store"
)

// Error codes reported in CLI responses.
const (
	CodeValidation = "E_VALIDATION"
	CodeConstraint = "E_CONSTRAINT"
	CodeStorage    = "E_STORAGE"
	CodeRemote     = "E_REMOTE"
	CodeInput      = "E_INPUT"
	CodeInternal   = "E_INTERNAL"
)

// errorCode classifies err for CLIError.Code.
func errorCode(err error) string {
	switch {
	case store.IsValidation(err), errors.Is(err, feed.ErrDescriptionAndPhoto):
		return CodeValidation
	case store.IsConstraint(err):
		return CodeConstraint
	case store.IsStorage(err):
		return CodeStorage
	case remote.IsAPIError(err), errors.Is(err, remote.ErrUnauthenticated):
		return CodeRemote
	default:
		return CodeInternal
	}
}

// fail reports err through out and returns the ExitError the command
// should exit with. Storage failures are command errors; everything else
// is an operation failure.
func fail(out *OutputFormatter, message string, err error) error {
	code := errorCode(err)
	if writeErr := out.Error(code, message+": "+err.Error(), nil); writeErr != nil {
		return writeErr
	}
	exit := ExitFailure
	if code == CodeStorage {
		exit = ExitCommandError
	}
	return WrapExitError(exit, message, err)
}
