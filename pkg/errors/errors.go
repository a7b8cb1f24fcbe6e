// Package errors provides structured error types for elkbridge.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The engine codes map one-to-one onto the failure classes of a layout
// exchange:
//   - PROCESS_LAUNCH_FAILED: runtime or distribution unresolvable, pipes failed
//   - CONNECTION_FAILED: I/O error mid-exchange (broken pipe, closed stream)
//   - ENGINE_FAILURE: the engine produced no response line
//   - ENGINE_ERROR: the engine responded but reported an error on stderr
//   - MALFORMED_RESPONSE: the response line is not a valid layout document
//   - VALIDATION_FAILED: the caller's graph failed schema validation
//
// # Usage
//
//	err := errors.New(errors.ErrCodeEngineError, "elk server error: %s", line)
//	if errors.Is(err, errors.ErrCodeEngineError) {
//	    // Handle engine-side rejection
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeConnection, origErr, "elk server connection failed")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Engine lifecycle and conversation errors
	ErrCodeProcessLaunch     Code = "PROCESS_LAUNCH_FAILED"
	ErrCodeConnection        Code = "CONNECTION_FAILED"
	ErrCodeEngineFailure     Code = "ENGINE_FAILURE"
	ErrCodeEngineError       Code = "ENGINE_ERROR"
	ErrCodeMalformedResponse Code = "MALFORMED_RESPONSE"
	ErrCodeTimeout           Code = "TIMEOUT"

	// Input validation errors
	ErrCodeValidation    Code = "VALIDATION_FAILED"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"

	// Provisioning errors
	ErrCodeRuntimeNotFound Code = "RUNTIME_NOT_FOUND"
	ErrCodeProvision       Code = "PROVISION_FAILED"
	ErrCodeNetwork         Code = "NETWORK_ERROR"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"

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
// Only the outermost *Error is consulted, so a launch failure caused by a
// missing runtime reports ErrCodeProcessLaunch, not ErrCodeRuntimeNotFound.
// Use [Has] to search the whole chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Has reports whether any *Error in err's chain carries code.
func Has(err error, code Code) bool {
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

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// As is errors.As from the standard library, re-exported so callers that
// import this package as "errors" keep access to it.
func As(err error, target any) bool {
	return errors.As(err, target)
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

// Retryable reports whether the caller may reasonably retry the operation
// that produced err with a fresh engine process. The library itself never
// retries; this only informs callers.
func Retryable(err error) bool {
	switch GetCode(err) {
	case ErrCodeConnection, ErrCodeEngineFailure, ErrCodeTimeout:
		return true
	}
	return false
}
