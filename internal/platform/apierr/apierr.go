package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes for the failure taxonomy. Every expected service failure maps to
// exactly one of these; anything else is a plumbing error wrapped with %w.
const (
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeMalformedInput = "malformed_input"
	CodeConflict       = "conflict"
	CodeStoreFailure   = "store_failure"
)

type Error struct {
	Status int
	Code   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Unauthorized(reason string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Reason: reason}
}

func NotFound(reason string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Reason: reason}
}

func Malformed(reason string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeMalformedInput, Reason: reason}
}

func Conflict(reason string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeConflict, Reason: reason}
}

func StoreFailure(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeStoreFailure, Err: err}
}

// From extracts the *Error from err's chain, or wraps err as a store
// failure so handlers always have a status to report.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return StoreFailure(err)
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
