// Package errors defines the classified error type shared by every sandbox
// component. Each failure carries one Code so the API layer can map it to a
// status without inspecting messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure
type Code string

const (
	CodeValidation Code = "validation"
	CodeNotFound   Code = "not_found"
	CodeTimeout    Code = "timeout"
	CodeConflict   Code = "conflict"
	CodeInternal   Code = "internal"
)

// Error is a classified error with an optional underlying cause
type Error struct {
	Code       Code
	Message    string
	Underlying error
}

// New creates a classified error
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a classified error with a formatted message
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. Wrapping nil returns nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Underlying: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error by code, so sentinel comparisons work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// Sentinels for errors.Is checks against a category
var (
	ErrValidation = &Error{Code: CodeValidation}
	ErrNotFound   = &Error{Code: CodeNotFound}
	ErrTimeout    = &Error{Code: CodeTimeout}
	ErrConflict   = &Error{Code: CodeConflict}
	ErrInternal   = &Error{Code: CodeInternal}
)

// Validation creates a validation error
func Validation(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// NotFound creates a not-found error
func NotFound(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// Timeout creates a timeout error
func Timeout(format string, args ...any) *Error {
	return Newf(CodeTimeout, format, args...)
}

// Conflict creates a conflict error
func Conflict(format string, args ...any) *Error {
	return Newf(CodeConflict, format, args...)
}

// Internal wraps an unexpected failure
func Internal(err error, message string) *Error {
	if err == nil {
		return New(CodeInternal, message)
	}
	return Wrap(err, CodeInternal, message)
}

// CodeOf returns the code of the first classified error in the chain.
// Unclassified errors are internal.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether err is classified with code
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a code to its response status
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
