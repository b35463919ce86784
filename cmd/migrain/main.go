package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"go.hackfix.me/migrain/app"
	aerrors "go.hackfix.me/migrain/app/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stderr := colorable.NewColorable(os.Stderr)
	a, err := app.New("migrain",
		app.WithContext(ctx),
		app.WithTimeNow(time.Now),
		app.WithEnv(osEnv{}),
		app.WithFDs(os.Stdin, colorable.NewColorable(os.Stdout), stderr),
		app.WithFS(osfs.New()),
		app.WithLogger(
			isatty.IsTerminal(os.Stdout.Fd()),
			isatty.IsTerminal(os.Stderr.Fd()),
		),
	)
	if err != nil {
		aerrors.Errorf(stderr, err)
		os.Exit(1)
	}
	if err = a.Run(os.Args[1:]); err != nil {
		aerrors.Errorf(stderr, err)
		cancel()
		os.Exit(1) //nolint:gocritic // The context was canceled above.
	}
}

type osEnv struct{}

func (e osEnv) Get(key string) string {
	return os.Getenv(key)
}

func (e osEnv) Set(key, val string) error {
	return os.Setenv(key, val)
}
