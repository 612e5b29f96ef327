// Package errors defines the coded errors shared by the engine, the HTTP API
// and the CLI.
//
// Every error that crosses a package boundary carries a [Code]. Callers
// branch on codes, never on message text:
//
//	if errors.IsNotFound(err) {
//	    return http.StatusNotFound
//	}
//
// Codes group by prefix: INVALID_* for rejected input, *_NOT_FOUND for
// missing tenants, pages and instances, NETWORK_ERROR, TIMEOUT and
// STORAGE_ERROR for persistence failures, and INTERNAL_ERROR for bugs.
package errors

import (
	"errors"
	"fmt"
	"slices"
)

// Code is a machine-readable error class.
type Code string

const (
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidSlug    Code = "INVALID_SLUG"
	ErrCodeInvalidTenant  Code = "INVALID_TENANT"
	ErrCodeInvalidVariant Code = "INVALID_VARIANT"
	ErrCodeInvalidPath    Code = "INVALID_PATH"

	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeTenantNotFound   Code = "TENANT_NOT_FOUND"
	ErrCodePageNotFound     Code = "PAGE_NOT_FOUND"
	ErrCodeInstanceNotFound Code = "INSTANCE_NOT_FOUND"

	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"
	ErrCodeStorage Code = "STORAGE_ERROR"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

var (
	invalidCodes  = []Code{ErrCodeInvalidInput, ErrCodeInvalidSlug, ErrCodeInvalidTenant, ErrCodeInvalidVariant, ErrCodeInvalidPath}
	notFoundCodes = []Code{ErrCodeNotFound, ErrCodeTenantNotFound, ErrCodePageNotFound, ErrCodeInstanceNotFound}
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error with code and a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// Is reports whether any coded error in err's chain has code.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode returns the code of the outermost coded error in err's chain, or
// "" when there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost coded error without its
// code prefix, or err.Error() for uncoded errors.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsNotFound reports whether err's code is one of the *_NOT_FOUND codes.
func IsNotFound(err error) bool { return slices.Contains(notFoundCodes, GetCode(err)) }

// IsInvalid reports whether err's code is one of the INVALID_* codes.
func IsInvalid(err error) bool { return slices.Contains(invalidCodes, GetCode(err)) }
