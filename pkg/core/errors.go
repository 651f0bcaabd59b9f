package core

import (
	"errors"
	"fmt"
)

// ErrorDomain identifies errors produced by this library.
const ErrorDomain = "vision.tasks"

// Code is the numeric error code attached to every TaskError.
type Code int

const (
	// CodeInvalidArgument covers malformed options at construction and
	// wrong-mode entry point invocations.
	CodeInvalidArgument Code = 3
	// CodeEngineFailure covers any failure surfaced by the inference engine
	// during a detection call, propagated without reinterpretation.
	CodeEngineFailure Code = 13
)

// String returns the stable identifier for the code.
func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeEngineFailure:
		return "ENGINE_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// TaskError is the single error type surfaced to callers. It carries a stable
// domain identifier, a numeric code, and a human-readable message.
type TaskError struct {
	Domain  string
	Code    Code
	Message string
	cause   error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TaskError) Unwrap() error {
	return e.cause
}

// InvalidArgumentf builds an INVALID_ARGUMENT error with a formatted message.
func InvalidArgumentf(format string, args ...any) *TaskError {
	return &TaskError{
		Domain:  ErrorDomain,
		Code:    CodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// EngineFailure wraps an error reported by the inference engine. The engine's
// message is attached verbatim.
func EngineFailure(err error) *TaskError {
	return &TaskError{
		Domain:  ErrorDomain,
		Code:    CodeEngineFailure,
		Message: fmt.Sprintf("inference engine error: %v", err),
		cause:   err,
	}
}

// IsInvalidArgument reports whether err is a TaskError with CodeInvalidArgument.
func IsInvalidArgument(err error) bool {
	return hasCode(err, CodeInvalidArgument)
}

// IsEngineFailure reports whether err is a TaskError with CodeEngineFailure.
func IsEngineFailure(err error) bool {
	return hasCode(err, CodeEngineFailure)
}

func hasCode(err error, code Code) bool {
	var te *TaskError
	return errors.As(err, &te) && te.Code == code
}
