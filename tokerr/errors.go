// Package tokerr defines the failure taxonomy for json-tokfuzz.
//
// Every error produced by the tokenizer engine, the conformance driver, or
// the CLI maps to exactly one FailureClass. The class decides the exit code
// and separates engine outcomes (the input was rejected) from protocol
// violations (the engine contradicted its own token contract).
package tokerr

import (
	"errors"
	"fmt"
)

// FailureClass is a stable failure category.
type FailureClass string

const (
	InvalidGrammar    FailureClass = "INVALID_GRAMMAR"
	InvalidUTF8       FailureClass = "INVALID_UTF8"
	InvalidEscape     FailureClass = "INVALID_ESCAPE"
	InvalidControl    FailureClass = "INVALID_CONTROL"
	UnexpectedEOF     FailureClass = "UNEXPECTED_EOF"
	BoundExceeded     FailureClass = "BOUND_EXCEEDED"
	InvalidArgument   FailureClass = "INVALID_ARGUMENT"
	ProtocolViolation FailureClass = "PROTOCOL_VIOLATION"
	CLIUsage          FailureClass = "CLI_USAGE"
	InternalIO        FailureClass = "INTERNAL_IO"
	InternalError     FailureClass = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for this failure class.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case ProtocolViolation:
		return 3
	case InternalIO, InternalError:
		return 10
	default:
		return 2
	}
}

// Error is the structured error type for all json-tokfuzz failures.
type Error struct {
	Class   FailureClass
	Offset  int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var s string
	if e.Offset >= 0 {
		s = fmt.Sprintf("tokerr: %s at byte %d: %s", e.Class, e.Offset, e.Message)
	} else {
		s = fmt.Sprintf("tokerr: %s: %s", e.Class, e.Message)
	}
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class and message.
func New(class FailureClass, offset int, message string) *Error {
	return &Error{Class: class, Offset: offset, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, offset int, message string, cause error) *Error {
	return &Error{Class: class, Offset: offset, Message: message, Cause: cause}
}

// Violation reports a broken token-stream contract. Violations carry no
// offset: they describe the engine's bookkeeping, not a position in the
// input.
func Violation(message string) *Error {
	return &Error{Class: ProtocolViolation, Offset: -1, Message: "internal error: " + message}
}

// ClassOf returns the class of the first *Error in err's chain, or
// InternalError when err carries none.
func ClassOf(err error) FailureClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return InternalError
}

// IsViolation reports whether err is a protocol violation.
func IsViolation(err error) bool {
	return err != nil && ClassOf(err) == ProtocolViolation
}
