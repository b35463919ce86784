package migrator

import (
	"errors"
	"log/slog"
	"time"
)

// ExecutorOption is a function that allows configuring the Executor.
type ExecutorOption func(*Executor) error

// WithLogger sets the logger used by the Executor.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) error {
		e.logger = logger.With("component", "migrator")
		return nil
	}
}

// WithReporter sets a function that is called with the result of each
// migration as soon as it completes.
func WithReporter(fn func(Result)) ExecutorOption {
	return func(e *Executor) error {
		e.reporter = fn
		return nil
	}
}

// WithTimeNow sets the function used to retrieve the current time.
func WithTimeNow(timeNowFn func() time.Time) ExecutorOption {
	return func(e *Executor) error {
		if timeNowFn == nil {
			return errors.New("time function is required")
		}
		e.timeNow = timeNowFn
		return nil
	}
}

// DefaultExecutorOptions returns the default Executor options.
func DefaultExecutorOptions() []ExecutorOption {
	return []ExecutorOption{
		WithLogger(slog.Default()),
		WithTimeNow(time.Now),
	}
}
