// Package apperrors holds the error kinds shared across domains.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports a bad or missing input. It is returned before any
// side effect takes place.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation creates a ValidationError for field.
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ErrNotFound is wrapped by every domain "not found" sentinel so transports can
// detect it without knowing each domain.
var ErrNotFound = errors.New("not found")

// ErrConflict is wrapped by domain errors that describe a business-rule
// conflict (stock, points, state machine).
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller does not own the resource.
var ErrForbidden = errors.New("forbidden")

// NotFound builds a sentinel that matches both itself and ErrNotFound.
func NotFound(msg string) error {
	return &kindError{msg: msg, kind: ErrNotFound}
}

// Conflict builds a sentinel that matches both itself and ErrConflict.
func Conflict(msg string) error {
	return &kindError{msg: msg, kind: ErrConflict}
}

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// ErrUnauthorized is wrapped by authentication failures.
var ErrUnauthorized = errors.New("unauthorized")

// Unauthorized builds a sentinel that matches both itself and ErrUnauthorized.
func Unauthorized(msg string) error {
	return &kindError{msg: msg, kind: ErrUnauthorized}
}
