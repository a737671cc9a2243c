package document

import (
	"errors"
	"fmt"
)

// MutationErrorCode categorizes rejected mutations.
type MutationErrorCode string

const (
	// ErrCodeMalformedMutation indicates the mutation is structurally invalid
	// (missing payload, unknown kind).
	ErrCodeMalformedMutation MutationErrorCode = "MALFORMED_MUTATION"

	// ErrCodeUnknownField indicates the mutation references a field ID that
	// does not exist in the document.
	ErrCodeUnknownField MutationErrorCode = "UNKNOWN_FIELD"

	// ErrCodeDuplicateField indicates an add_field would reuse an existing ID.
	ErrCodeDuplicateField MutationErrorCode = "DUPLICATE_FIELD"

	// ErrCodeOutOfRange indicates a reorder index outside the field list.
	ErrCodeOutOfRange MutationErrorCode = "OUT_OF_RANGE"
)

// MutationError reports a mutation the store refused to apply.
// The store state is unchanged when Apply returns a MutationError.
type MutationError struct {
	Code    MutationErrorCode
	Kind    Kind
	FieldID string
	Message string
}

// Error implements the error interface.
func (e *MutationError) Error() string {
	if e.FieldID != "" {
		return fmt.Sprintf("%s: %s (kind=%s, field=%s)", e.Code, e.Message, e.Kind, e.FieldID)
	}
	return fmt.Sprintf("%s: %s (kind=%s)", e.Code, e.Message, e.Kind)
}

// IsMutationError reports whether err is, or wraps, a MutationError.
func IsMutationError(err error) bool {
	var me *MutationError
	return errors.As(err, &me)
}

// IsUnknownField reports whether err is a MutationError for a missing field.
func IsUnknownField(err error) bool {
	var me *MutationError
	if errors.As(err, &me) {
		return me.Code == ErrCodeUnknownField
	}
	return false
}

func malformed(kind Kind, format string, args ...any) *MutationError {
	return &MutationError{
		Code:    ErrCodeMalformedMutation,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func unknownField(kind Kind, id string) *MutationError {
	return &MutationError{
		Code:    ErrCodeUnknownField,
		Kind:    kind,
		FieldID: id,
		Message: "field not found",
	}
}
