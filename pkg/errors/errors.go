// Package errors provides structured error types for partplan.
//
// Every failure the layout engine, the CSV collaborator and the HTTP API
// report carries a machine-readable [Code], so callers can branch on the
// failure kind without matching strings:
//
//   - NOT_FOUND: an operation referenced a partition (or resource) that does not exist
//   - MISALIGNED_OFFSET: a caller-supplied offset is not a multiple of its alignment unit
//   - UNSATISFIABLE: a capacity or location change cannot be honoured even after eviction
//   - OUT_OF_RANGE: a request falls outside what the device can address
//   - INVALID_*: input validation failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeNotFound, "partition %q not found", name)
//	if errors.Is(err, errors.ErrCodeNotFound) {
//	    // Handle missing partition
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "line %d", n)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Layout engine failures
	ErrCodeNotFound         Code = "NOT_FOUND"
	ErrCodeMisalignedOffset Code = "MISALIGNED_OFFSET"
	ErrCodeUnsatisfiable    Code = "UNSATISFIABLE"
	ErrCodeOutOfRange       Code = "OUT_OF_RANGE"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidSize   Code = "INVALID_SIZE"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidName   Code = "INVALID_NAME"
	ErrCodeInvalidFlags  Code = "INVALID_FLAGS"

	// Lookup errors outside the engine
	ErrCodeUnknownPreset Code = "UNKNOWN_PRESET"

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
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// IsValidation reports whether err is one of the INVALID_* input errors or a
// misaligned offset, i.e. a failure caused by the caller's input rather than
// by the state of the table.
func IsValidation(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidSize, ErrCodeInvalidFormat,
		ErrCodeInvalidName, ErrCodeInvalidFlags, ErrCodeMisalignedOffset:
		return true
	}
	return false
}
