package cli

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"go.hackfix.me/migrain/app/config"
	actx "go.hackfix.me/migrain/app/context"
)

// CLI is the command line interface of migrain.
type CLI struct {
	Migrate `embed:""`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: The configuration file only provides defaults for flags that
	// weren't set, so kong.ConfigFlag isn't used.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the migrain configuration file.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong *kong.Kong
	kctx *kong.Context
}

// New initializes the command-line interface.
func New(configFilePath, version string, opts ...kong.Option) (*CLI, error) {
	c := &CLI{}
	kopts := append([]kong.Option{
		kong.Name("migrain"),
		kong.Description("Apply and roll back SQL migrations.\n\n" +
			"A positive --step applies that many pending migrations, a negative --step rolls back\n" +
			"that many applied migrations, and a --step of 0 shows the status of all migrations."),
		kong.UsageOnError(),
		kong.DefaultEnvars("MIGRAIN"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"version":    version,
		},
	}, opts...)

	kparser, err := kong.New(c, kopts...)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx)
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// ApplyConfig applies configuration values to the CLI, but only if they weren't
// already set, and then fills in the remaining defaults.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	m := &c.Migrate
	if m.Driver == "" && cfg.Database.Driver.Valid {
		m.Driver = cfg.Database.Driver.V
	}
	if m.Host == "" && cfg.Database.Host.Valid {
		m.Host = cfg.Database.Host.V
	}
	if m.Port == 0 && cfg.Database.Port.Valid {
		m.Port = cfg.Database.Port.V
	}
	if m.Name == "" && cfg.Database.Name.Valid {
		m.Name = cfg.Database.Name.V
	}
	if m.User == "" && cfg.Database.User.Valid {
		m.User = cfg.Database.User.V
	}
	if m.Ext == "" && cfg.Migration.Extension.Valid {
		m.Ext = cfg.Migration.Extension.V
	}
	if m.LockTimeout == nil && cfg.Migration.LockTimeout.Valid {
		timeout := cfg.Migration.LockTimeout.V
		m.LockTimeout = &timeout
	}

	m.setDefaults()
}
