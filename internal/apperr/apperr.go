/**
 * @description
 * Typed application errors.
 * Every failure crossing a service boundary carries a machine-readable code
 * and a human-readable message; handlers translate these into HTTP responses.
 *
 * @dependencies
 * - standard "errors"
 * - standard "fmt"
 */

package apperr

import (
	"errors"
	"fmt"
)

// Error codes exposed to API consumers.
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeUpstream      = "UPSTREAM_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeConflict      = "CONFLICT"
	CodePersistence   = "PERSISTENCE_ERROR"
)

// Error is a typed error with a stable code and an optional wrapped cause.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a typed error wrapping a cause.
func Wrap(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Configuration(message string) *Error {
	return New(CodeConfiguration, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func Upstream(message string, err error) *Error {
	return Wrap(CodeUpstream, message, err)
}

func Validation(message string, err error) *Error {
	return Wrap(CodeValidation, message, err)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func Persistence(message string, err error) *Error {
	return Wrap(CodePersistence, message, err)
}

// Code extracts the error code from an error chain.
// Returns "" for untyped errors.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Message extracts the human-readable message from an error chain.
// Falls back to err.Error() for untyped errors.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
