// Package errors provides structured error types for the scmenrich pipeline.
//
// Every failure the pipeline reports for a single record or asset carries a
// machine-readable [Code], so the run summary can group failures and the CLI
// can decide how loudly to report them:
//
//   - NETWORK_ERROR, API_ERROR, NOT_FOUND: transient or upstream failures for
//     one record; a later run may succeed.
//   - CONTRACT_VIOLATION: the metadata API answered with a shape we do not
//     understand. Fatal for that record and always logged at error level.
//   - TRANSFORM_FAILED: an image could not be decoded or cropped.
//   - INVALID_INPUT, INVALID_CONFIG: bad records or configuration.
//   - STORE_ERROR: the asset store or content graph rejected a write.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "not a GitHub URL: %s", raw)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // skip record
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for the failure classes of the pipeline.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Upstream errors
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeAPI      Code = "API_ERROR"
	ErrCodeNotFound Code = "NOT_FOUND"

	// ErrCodeContract marks a response whose shape does not match what the
	// client expects. It indicates an upstream schema change.
	ErrCodeContract Code = "CONTRACT_VIOLATION"

	// Asset errors
	ErrCodeTransform Code = "TRANSFORM_FAILED"
	ErrCodeStore     Code = "STORE_ERROR"

	// ErrCodeDegraded is never returned as a failure. It labels warnings about
	// records enriched without API credentials.
	ErrCodeDegraded Code = "DEGRADED"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns ErrCodeInternal for errors that carry no code.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsContractViolation reports whether err signals an unexpected upstream
// response shape. Callers log these at error level.
func IsContractViolation(err error) bool {
	return Is(err, ErrCodeContract)
}
