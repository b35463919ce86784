package context

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"

	"go.hackfix.me/migrain/app/config"
)

// Context contains common objects used by the application. It is passed around
// the application to avoid direct dependencies on external systems, and make
// testing easier.
type Context struct {
	Ctx     context.Context // global context
	FS      vfs.FileSystem  // filesystem
	Env     Environment     // process environment
	Logger  *slog.Logger    // global logger
	TimeNow func() time.Time
	Config  *config.Config

	// Standard streams
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// StdoutTTY is true if stdout is a terminal, which enables colored output.
	StdoutTTY bool

	// Metadata
	Version *VersionInfo
}

// Environment reads and changes process environment variables. Tests replace
// it with an in-memory map.
type Environment interface {
	Get(key string) string
	Set(key, val string) error
}
