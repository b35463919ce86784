package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/migrain/app/config"
	actx "go.hackfix.me/migrain/app/context"
	"go.hackfix.me/migrain/cli"
)

// App is the migrain application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// term is set by WithLogger. The logger is created once all options were
	// applied, so that it writes to the final stderr.
	term *terminal
	// logLevel is set from the --log-level flag on every run.
	logLevel *slog.LevelVar
}

type terminal struct {
	stdoutTTY, stderrTTY bool
}

// New initializes a new application. Without options, it uses an in-memory
// filesystem and the default slog logger.
func New(name string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	app := &App{
		name: name,
		ctx: &actx.Context{
			Ctx:     context.Background(),
			FS:      memoryfs.New(),
			Logger:  slog.Default(),
			TimeNow: time.Now,
			Version: version,
		},
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.term != nil {
		app.setupLogger()
	}

	var kopts []kong.Option
	if app.ctx.Stdout != nil && app.ctx.Stderr != nil {
		kopts = append(kopts, kong.Writers(app.ctx.Stdout, app.ctx.Stderr))
	}
	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version)
	app.cli, err = cli.New(DefaultConfigFile(app.name), ver, kopts...)
	if err != nil {
		return nil, err
	}

	return app, nil
}

func (app *App) setupLogger() {
	app.logLevel = &slog.LevelVar{}
	app.logLevel.Set(slog.LevelInfo)

	logger := slog.New(
		tint.NewHandler(app.ctx.Stderr, &tint.Options{
			Level:      app.logLevel,
			NoColor:    !app.term.stderrTTY,
			TimeFormat: "2006-01-02 15:04:05.000",
		}),
	)
	app.ctx.Logger = logger
	app.ctx.StdoutTTY = app.term.stdoutTTY
	slog.SetDefault(logger)
}

// DefaultConfigFile returns the path of the configuration file in the user's
// XDG configuration directory.
func DefaultConfigFile(name string) string {
	return filepath.Join(xdg.ConfigHome, name, "config.json")
}

// Run parses the command line arguments, applies the configuration file and
// runs the migrate command.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
	}

	if err := app.loadConfig(); err != nil {
		return err
	}
	app.cli.ApplyConfig(app.ctx.Config)

	return app.cli.Execute(app.ctx)
}

// loadConfig reads the configuration file given on the command line, unless a
// configuration was set with WithConfig.
func (app *App) loadConfig() error {
	if app.ctx.Config != nil {
		return nil
	}

	cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	if err := cfg.Load(); err != nil {
		return err
	}
	app.ctx.Config = cfg
	app.ctx.Logger.Debug("loaded configuration", "path", cfg.Path())

	return nil
}
