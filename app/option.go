package app

import (
	"context"
	"io"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	cfg "go.hackfix.me/migrain/app/config"
	actx "go.hackfix.me/migrain/app/context"
)

// Option is a function that allows configuring the application.
type Option func(*App)

// WithConfig sets the configuration object. If it's not set, the
// configuration is loaded from the path given on the command line.
func WithConfig(cfg *cfg.Config) Option {
	return func(app *App) {
		app.ctx.Config = cfg
	}
}

// WithContext sets the main context.
func WithContext(ctx context.Context) Option {
	return func(app *App) {
		app.ctx.Ctx = ctx
	}
}

// WithEnv sets the process environment used by the application.
func WithEnv(env actx.Environment) Option {
	return func(app *App) {
		app.ctx.Env = env
	}
}

// WithFDs sets the file descriptors used by the application.
func WithFDs(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(app *App) {
		app.ctx.Stdin = stdin
		app.ctx.Stdout = stdout
		app.ctx.Stderr = stderr
	}
}

// WithFS sets the filesystem used by the application.
func WithFS(fs vfs.FileSystem) Option {
	return func(app *App) {
		app.ctx.FS = fs
	}
}

// WithLogger makes the application log to stderr in a human-readable format.
// Colors are used if stderr is a terminal. isStdoutTTY enables colored
// progress output.
func WithLogger(isStdoutTTY, isStderrTTY bool) Option {
	return func(app *App) {
		app.term = &terminal{stdoutTTY: isStdoutTTY, stderrTTY: isStderrTTY}
	}
}

// WithTimeNow sets the function used to retrieve the current system time.
func WithTimeNow(timeNowFn func() time.Time) Option {
	return func(app *App) {
		app.ctx.TimeNow = timeNowFn
	}
}
