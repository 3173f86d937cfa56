// Package dErrors defines the coded error type shared by every module.
//
// Services return these so transports can translate business outcomes into
// protocol responses without string matching. Stores return sentinel errors
// (pkg/platform/sentinel) instead; services translate at that boundary.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers. The string form is the wire code.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
)

// DomainError carries a code, a human-readable message, and optional
// structured details (for example the next eligible donation date on an
// eligibility conflict) so the caller can render specific guidance.
type DomainError struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New creates a DomainError with the given code and message.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Wrap annotates err with a code and message while preserving the cause
// for errors.Is/As inspection.
func Wrap(err error, code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, cause: err}
}

// WithDetail attaches a structured detail and returns the error for chaining.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HasCode reports whether err is (or wraps) a DomainError with the code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
