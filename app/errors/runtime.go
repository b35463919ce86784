package errors

import (
	"errors"
	"fmt"
	"io"
)

// RuntimeError is an error shown to the user, with an optional hint about how
// to resolve it.
type RuntimeError struct {
	msg   string
	cause error
	hint  string
}

// NewRuntimeError returns a new RuntimeError. cause and hint are optional.
func NewRuntimeError(msg string, cause error, hint string) *RuntimeError {
	return &RuntimeError{msg: msg, cause: cause, hint: hint}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap allows errors.Is and errors.As to work.
func (e *RuntimeError) Unwrap() error {
	return e.cause
}

// Hint returns the resolution hint, if any.
func (e *RuntimeError) Hint() string {
	return e.hint
}

// Errorf writes err to w in a user-friendly format, including a hint if one
// is available.
func Errorf(w io.Writer, err error) {
	if err == nil {
		return
	}

	fmt.Fprintf(w, "Error: %s\n", err)

	var rerr *RuntimeError
	if errors.As(err, &rerr) && rerr.hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", rerr.hint)
	}
	var serr *StructuredError
	if errors.As(err, &serr) {
		if hint, ok := serr.metadata["hint"]; ok {
			fmt.Fprintf(w, "Hint: %v\n", hint)
		}
	}
}
