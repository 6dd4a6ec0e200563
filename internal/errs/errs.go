package errs

import (
	"errors"
)

// Code is an application error code.
type Code string

const (
	InvalidArgument   Code = "invalid_argument"
	NotFound          Code = "not_found"
	Unavailable       Code = "unavailable"
	Exhausted         Code = "exhausted"
	ObservationFailed Code = "observation_failed"
	Internal          Code = "internal"
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// Coder is implemented by errors that carry a code. *Error implements it,
// as do the poll and locate error types.
type Coder interface {
	ErrorCode() Code
}

// ErrorCode returns the error's code.
func (e *Error) ErrorCode() Code {
	if e == nil {
		return ""
	}
	return e.Code
}

// CodeOf returns the code of the outermost coded error in the chain,
// defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coder Coder
	if errors.As(err, &coder) {
		if c := coder.ErrorCode(); c != "" {
			return c
		}
	}
	return Internal
}

// MessageOf returns a short message suitable for CLI output.
// Untyped errors collapse to "internal error".
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// ExitCode maps an error code to a process exit status.
func ExitCode(code Code) int {
	switch code {
	case InvalidArgument:
		return 2
	case NotFound:
		return 3
	case Unavailable:
		return 4
	case Exhausted:
		return 5
	case ObservationFailed:
		return 6
	default:
		return 1
	}
}
