package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")
	ErrExternalService   = errors.New("external service unavailable")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrVersionConflict   = errors.New("version conflict")
	ErrAlreadyRated      = errors.New("already rated")
	ErrForbidden         = errors.New("forbidden")

	// ErrProofRejected is a validation failure: the classifier judged the proof image invalid.
	ErrProofRejected = fmt.Errorf("%w: proof rejected", ErrValidation)
)

// Validationf builds an ErrValidation with a field-specific message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
