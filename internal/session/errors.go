package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/formsession/internal/validation"
)

var (
	// ErrClosed is returned by every operation on a closed session.
	ErrClosed = errors.New("session closed")

	// ErrUnsavedChanges is returned (wrapped together with the flush error)
	// by Close when the final flush fails. The session stays open so the
	// host can confirm before calling Close again with WithDiscard.
	ErrUnsavedChanges = errors.New("unsaved changes")

	// ErrNilGateway is returned by New without a gateway.
	ErrNilGateway = errors.New("session requires a gateway")
)

// PersistErrorCode categorizes persistence failures.
type PersistErrorCode string

const (
	// ErrCodeTransientPersist indicates the gateway call failed. The pending
	// change set is preserved and the write can be retried.
	ErrCodeTransientPersist PersistErrorCode = "TRANSIENT_PERSIST"
)

// PersistError reports a failed gateway write. Every failure, a gateway
// panic included, is normalized into this type.
type PersistError struct {
	// Code identifies the error category.
	Code PersistErrorCode

	// DocumentID identifies the document that failed to persist.
	DocumentID string

	// Revision is the revision that was shipped.
	Revision int64

	// Reason is the flush trigger ("debounce", "save_now", ...).
	Reason string

	// Panicked is set when the gateway panicked instead of returning.
	Panicked bool

	// Err is the gateway error.
	Err error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("%s: persist document %s at revision %d: %v", e.Code, e.DocumentID, e.Revision, e.Err)
}

// Unwrap returns the gateway error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err is, or wraps, a PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

// FinalizeError is returned by Finalize while validation findings exist.
type FinalizeError struct {
	Errors []validation.Error
}

// Error implements the error interface.
func (e *FinalizeError) Error() string {
	return fmt.Sprintf("FINALIZE_BLOCKED: %d validation error(s): %s",
		len(e.Errors), strings.Join(validation.Keys(e.Errors), ", "))
}

// IsFinalizeBlocked reports whether err is, or wraps, a FinalizeError.
func IsFinalizeBlocked(err error) bool {
	var fe *FinalizeError
	return errors.As(err, &fe)
}
