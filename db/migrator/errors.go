package migrator

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingReverseScript is reported for migrations that can't be reverted.
	ErrMissingReverseScript = errors.New("no reverse script")
	// ErrStatusOnly is returned by Select when the step is 0, in which case
	// no plan exists and a status view should be shown instead.
	ErrStatusOnly = errors.New("a step of 0 doesn't select any migrations")
)

// DiscoveryError is returned when the migrations directory can't be read.
type DiscoveryError struct {
	Dir string
	Err error
}

// Error returns a string representation of the error.
func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed reading migrations directory '%s': %s", e.Dir, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// DuplicateMigrationError is returned when two forward scripts resolve to the
// same migration name.
type DuplicateMigrationError struct {
	Name  Name
	Paths []string
}

// Error returns a string representation of the error.
func (e *DuplicateMigrationError) Error() string {
	return fmt.Sprintf("duplicate migration '%s' defined by %q", e.Name, e.Paths)
}

// PersistenceError is returned when the history can't be read or written.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

// Error returns a string representation of the error.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s history file '%s': %s", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ExecutionError is returned when a migration script fails to run.
type ExecutionError struct {
	Name      Name
	Direction Direction
	Err       error
}

// Error returns a string representation of the error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed running migration %s (%s): %s", e.Name, e.Direction, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// CommitError is returned when the database transaction couldn't be committed
// after the history was already saved. The history may then disagree with the
// actual schema state.
type CommitError struct {
	Name Name
	Err  error
	// Restored is true if the previous history was saved again successfully.
	Restored bool
}

// Error returns a string representation of the error.
func (e *CommitError) Error() string {
	msg := fmt.Sprintf("failed committing migration %s: %s", e.Name, e.Err)
	if !e.Restored {
		msg += "; history file no longer matches the database"
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CommitError) Unwrap() error {
	return e.Err
}
