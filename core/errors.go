package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// PreconditionError indicates that a state transition was attempted on a row
// that is not in the required state (already approved, not locked, already
// published...). It is a business-rule violation, reported to the caller.
type PreconditionError struct {
	Reason string
}

func NewPreconditionError(reason string) error {
	return &PreconditionError{Reason: reason}
}

func (err PreconditionError) Error() string {
	return err.Reason
}

func IsPrecondition(err error) bool {
	_, ok := errors.Cause(err).(*PreconditionError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
