package errors

import (
	"errors"
	"maps"
)

// StructuredError is an error with an optional cause and metadata fields,
// which Log renders as slog attributes.
type StructuredError struct {
	err      error
	metadata map[string]any
	cause    error
}

// Error implements the error interface.
func (e StructuredError) Error() string {
	return e.err.Error()
}

// Unwrap allows errors.Is and errors.As to match both the error and its cause.
func (e StructuredError) Unwrap() []error {
	var errs []error
	if e.err != nil {
		errs = append(errs, e.err)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// Cause returns the cause of this error, if any.
func (e StructuredError) Cause() error {
	return e.cause
}

// Metadata returns a copy of the metadata fields.
func (e StructuredError) Metadata() map[string]any {
	return maps.Clone(e.metadata)
}

// NewWith returns a StructuredError with the given message and metadata
// key/value pairs.
func NewWith(msg string, fields ...any) *StructuredError {
	return With(errors.New(msg), fields...)
}

// NewWithCause returns a StructuredError with the given message, cause and
// metadata key/value pairs.
func NewWithCause(msg string, cause error, fields ...any) *StructuredError {
	return WithCause(errors.New(msg), cause, fields...)
}

// With adds metadata to err. If err is already a StructuredError, its fields
// are merged, and the new values win.
func With(err error, fields ...any) *StructuredError {
	if se, ok := err.(*StructuredError); ok { //nolint:errorlint // Only the outermost error is merged.
		return se.merge(se.cause, fields)
	}
	return &StructuredError{err: err, metadata: toMetadata(fields)}
}

// WithCause is like With, but also sets the cause.
func WithCause(err, cause error, fields ...any) *StructuredError {
	if se, ok := err.(*StructuredError); ok { //nolint:errorlint // Only the outermost error is merged.
		return se.merge(cause, fields)
	}
	return &StructuredError{err: err, metadata: toMetadata(fields), cause: cause}
}

func (e *StructuredError) merge(cause error, fields []any) *StructuredError {
	md := toMetadata(fields)
	combined := make(map[string]any, len(e.metadata)+len(md))
	maps.Copy(combined, e.metadata)
	maps.Copy(combined, md)

	return &StructuredError{err: e.err, metadata: combined, cause: cause}
}

// toMetadata converts key/value pairs to a map. It panics on an odd number of
// fields or a non-string key, like slog does for malformed attributes.
func toMetadata(fields []any) map[string]any {
	if len(fields)%2 != 0 {
		panic("an even number of fields is required")
	}

	md := make(map[string]any, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			panic("keys must be strings")
		}
		md[key] = fields[i+1]
	}

	return md
}
