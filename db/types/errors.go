package types

import (
	"fmt"
)

// ConnectionError is returned when the database can't be reached.
type ConnectionError struct {
	Target string
	Err    error
}

// Error returns a string representation of the error.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed connecting to %s: %s", e.Target, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// LockError is returned when the migration lock can't be acquired or released.
type LockError struct {
	Key string
	Msg string
	Err error
}

// Error returns a string representation of the error.
func (e *LockError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	return fmt.Sprintf("migration lock %s: %s", e.Key, msg)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LockError) Unwrap() error {
	return e.Err
}
