package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nrednav/cuid2"

	actx "go.hackfix.me/migrain/app/context"
	aerrors "go.hackfix.me/migrain/app/errors"
	"go.hackfix.me/migrain/db"
	"go.hackfix.me/migrain/db/migrator"
)

const (
	defaultHost        = "127.0.0.1"
	defaultExt         = "sql"
	defaultLockTimeout = 10 * time.Second
)

// Migrate applies, rolls back or shows the status of migrations.
type Migrate struct {
	//nolint:lll // Long struct tags are unavoidable.
	Path        string         `kong:"required,help='Path to the history JSON file. Migration scripts are read from its directory.'"`
	Name        string         `kong:"help='Database name. For SQLite, the database file path.'"`
	User        string         `kong:"help='Database user.'"`
	Host        string         `kong:"help='Database host. Default: 127.0.0.1'"`
	Port        uint16         `kong:"help='Database port. Default: the driver default.'"`
	Driver      string         `kong:"help='Database driver: mysql, postgres or sqlite. Default: mysql'"`
	Step        int            `kong:"default='0',help='Number of migrations to apply (> 0), roll back (< 0, e.g. --step=-1), or 0 to show the status.'"`
	Ext         string         `kong:"help='File extension of migration scripts. Default: sql'"`
	DryRun      bool           `kong:"help='Show which migrations would run, without running them.'"`
	NoLock      bool           `kong:"help='Skip acquiring the advisory migration lock.'"`
	LockTimeout *time.Duration `kong:"help='How long to wait for the migration lock. 0 fails at once if the lock is held. Default: 10s'"`
}

func (c *Migrate) setDefaults() {
	if c.Driver == "" {
		c.Driver = string(db.DriverMySQL)
	}
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.Ext == "" {
		c.Ext = defaultExt
	}
	if c.LockTimeout == nil {
		timeout := defaultLockTimeout
		c.LockTimeout = &timeout
	}
}

// validate checks the flags that are required, after configuration defaults
// were applied.
func (c *Migrate) validate() (db.Driver, error) {
	c.setDefaults()

	driver, err := db.DriverFromString(c.Driver)
	if err != nil {
		return "", aerrors.NewRuntimeError(err.Error(), nil, "")
	}
	if c.Name == "" {
		return "", aerrors.NewRuntimeError("--name is required", nil,
			"Set it with --name, MIGRAIN_NAME or in the configuration file.")
	}
	if c.LockTimeout != nil && *c.LockTimeout < 0 {
		return "", aerrors.NewRuntimeError(
			fmt.Sprintf("invalid lock timeout %s", *c.LockTimeout), nil,
			"The lock timeout must not be negative. Use 0 to fail at once if the lock is held.")
	}
	if c.User == "" && driver.NeedsPassword() {
		return "", aerrors.NewRuntimeError("--user is required", nil,
			"Set it with --user, MIGRAIN_USER or in the configuration file.")
	}

	return driver, nil
}

// Run the migrate command.
func (c *Migrate) Run(appCtx *actx.Context) error {
	driver, err := c.validate()
	if err != nil {
		return err
	}

	runID := cuid2.Generate()
	logger := appCtx.Logger.With("run_id", runID)
	dir := filepath.Dir(c.Path)

	catalog, err := migrator.Scan(appCtx.FS, dir, migrator.WithExtension(c.Ext))
	if err != nil {
		var derr *migrator.DiscoveryError
		if errors.As(err, &derr) {
			return aerrors.NewRuntimeError(fmt.Sprintf("directory not found: %s", dir), err,
				"The migrations directory is the directory of the --path history file.")
		}
		return err
	}
	logger.Debug("scanned migrations", "dir", dir, "count", catalog.Len())

	store := migrator.NewFileHistory(appCtx.FS, c.Path)
	rep := newReporter(appCtx.Stdout, appCtx.StdoutTTY)

	if c.Step == 0 {
		return c.status(catalog, store, appCtx)
	}

	if c.DryRun {
		hist, lerr := store.Load()
		if lerr != nil {
			return lerr
		}
		plan, serr := migrator.Select(catalog, hist, c.Step)
		if serr != nil {
			return serr
		}
		rep.plan(plan)
		return rep.err
	}

	dbCfg := db.Config{
		Driver: driver, Host: c.Host, Port: c.Port, Name: c.Name, User: c.User,
	}
	if driver.NeedsPassword() {
		if dbCfg.Password, err = readPassword(appCtx); err != nil {
			return err
		}
	}

	d, err := db.Open(appCtx.Ctx, dbCfg, logger)
	if err != nil {
		return aerrors.NewRuntimeError("connection failed", err, "")
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			logger.Warn("failed closing database connection", "error", cerr)
		}
	}()

	if !c.NoLock {
		absPath, aerr := filepath.Abs(c.Path)
		if aerr != nil {
			absPath = c.Path
		}
		lock, lerr := d.Lock(appCtx.Ctx, db.LockKey(absPath), *c.LockTimeout)
		if lerr != nil {
			return aerrors.NewRuntimeError("failed acquiring migration lock", lerr,
				"Another migration may be running. Use --no-lock to skip the lock.")
		}
		defer func() {
			// Release even if the main context was canceled.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if rerr := lock.Release(ctx); rerr != nil {
				logger.Warn("failed releasing migration lock", "error", rerr)
			}
		}()
	}

	return c.migrate(appCtx, d, catalog, store, rep, logger)
}

func (c *Migrate) status(catalog *migrator.Catalog, store migrator.HistoryStore, appCtx *actx.Context) error {
	hist, err := store.Load()
	if err != nil {
		return err
	}

	entries := migrator.Status(catalog, hist)
	for _, e := range entries {
		if e.Orphaned {
			appCtx.Logger.Warn("applied migration is missing from the migrations directory",
				"migration", e.Name)
		}
	}

	if err = renderStatus(entries, appCtx.Stdout); err != nil {
		return aerrors.NewRuntimeError("failed rendering status table", err, "")
	}

	return nil
}

// migrate computes the plan and runs it. It must be called while holding the
// migration lock.
func (c *Migrate) migrate(
	appCtx *actx.Context, d migrator.TxBeginner, catalog *migrator.Catalog,
	store migrator.HistoryStore, rep *reporter, logger *slog.Logger,
) error {
	hist, err := store.Load()
	if err != nil {
		return err
	}

	plan, err := migrator.Select(catalog, hist, c.Step)
	if err != nil {
		return err
	}
	if plan.Empty() {
		rep.printf("Nothing to do.\n")
		logger.Info("no migrations selected", "direction", plan.Direction)
		return rep.err
	}

	exec, err := migrator.NewExecutor(d, store, catalog,
		migrator.WithLogger(logger),
		migrator.WithTimeNow(appCtx.TimeNow),
		migrator.WithReporter(rep.result),
	)
	if err != nil {
		return err
	}

	results, err := exec.Run(appCtx.Ctx, plan)
	rep.summary(results)
	if err != nil {
		var (
			cerr *migrator.CommitError
			perr *migrator.PersistenceError
		)
		switch {
		case errors.As(err, &cerr):
			aerrors.Log(logger, aerrors.NewWithCause("history may not match the database schema", err,
				"migration", cerr.Name, "history_restored", cerr.Restored, "history_file", c.Path))
		case errors.As(err, &perr):
			aerrors.Log(logger, aerrors.NewWithCause("failed updating history; migration was rolled back", err,
				"history_file", perr.Path))
		}
		return aerrors.NewRuntimeError("migration failed", err,
			"Fix the failing migration and run the same command again to continue.")
	}

	logger.Info("migrations finished", "direction", plan.Direction, "count", len(results))

	return rep.err
}
