// Package domainerrors provides coded errors for the service layer.
//
// Services return these so transports can map failures to responses without
// string matching. Stores return pkg/platform/sentinel errors instead;
// services translate them into coded errors at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks malformed or missing input; the caller must fix
	// the request before retrying.
	CodeValidation Code = "validation"
	// CodeInvariantViolation marks a model constructor or transition guard
	// rejecting an illegal aggregate state. Services usually re-code these
	// as validation or invalid_state before returning them to callers.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeConflict marks a uniqueness collision (duplicate business key).
	CodeConflict Code = "conflict"
	// CodeNotFound marks a lookup that resolved nothing.
	CodeNotFound Code = "not_found"
	// CodeInvalidState marks an operation illegal for the current status.
	CodeInvalidState Code = "invalid_state"
	// CodeForbidden marks an actor not allowed to perform the operation.
	CodeForbidden Code = "forbidden"
	// CodeUnavailable marks a transient infrastructure failure; the caller
	// may retry the full operation.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks an unexpected failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a coded error with the given message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf returns a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message while keeping the cause
// reachable through errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
