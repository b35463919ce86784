package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// TxBeginner starts database transactions. It's implemented by *sql.DB and
// *sql.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Executor runs migration plans one migration at a time, stopping at the first
// failure.
type Executor struct {
	db       TxBeginner
	store    HistoryStore
	catalog  *Catalog
	logger   *slog.Logger
	reporter func(Result)
	timeNow  func() time.Time
}

// NewExecutor returns a new Executor. Only the store is allowed to write the
// history.
func NewExecutor(db TxBeginner, store HistoryStore, catalog *Catalog, opts ...ExecutorOption) (*Executor, error) {
	if db == nil {
		return nil, errors.New("database connection is required")
	}
	if store == nil {
		return nil, errors.New("history store is required")
	}
	if catalog == nil {
		return nil, errors.New("migration catalog is required")
	}

	e := &Executor{db: db, store: store, catalog: catalog}

	opts = append(DefaultExecutorOptions(), opts...)
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Run executes the plan in order. It stops at the first failed migration, and
// returns its error along with the results of every migration attempted so
// far. Skipped migrations don't stop the run.
func (e *Executor) Run(ctx context.Context, plan Plan) ([]Result, error) {
	results := make([]Result, 0, len(plan.Names))
	e.logger.Debug("running migration plan",
		"direction", plan.Direction, "count", len(plan.Names))

	for _, name := range plan.Names {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("migration run interrupted: %w", err)
		}

		res := e.Step(ctx, name, plan.Direction)
		results = append(results, res)
		if e.reporter != nil {
			e.reporter(res)
		}

		if res.Status == StatusFailed {
			return results, res.Err
		}
	}

	return results, nil
}

// Step runs a single migration in its own transaction. The history is
// reloaded from the store, updated and saved before the transaction is
// committed. If saving the history fails, the transaction is rolled back.
func (e *Executor) Step(ctx context.Context, name Name, dir Direction) Result {
	logger := e.logger.With("migration", name, "direction", dir)
	start := e.timeNow()
	res := Result{Name: name, Direction: dir}
	done := func(status ResultStatus, err error) Result {
		res.Status = status
		res.Err = err
		res.Duration = e.timeNow().Sub(start)
		return res
	}

	script, err := e.catalog.Script(name, dir)
	if err != nil {
		if errors.Is(err, ErrMissingReverseScript) {
			logger.Warn("skipping migration without reverse script")
			return done(StatusSkipped, err)
		}
		return done(StatusFailed, &ExecutionError{Name: name, Direction: dir, Err: err})
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return done(StatusFailed, &ExecutionError{
			Name: name, Direction: dir, Err: fmt.Errorf("failed starting transaction: %w", err),
		})
	}

	logger.Debug("executing migration script")
	if strings.TrimSpace(script) != "" {
		if _, err = tx.ExecContext(ctx, script); err != nil {
			e.rollback(tx, logger)
			return done(StatusFailed, &ExecutionError{Name: name, Direction: dir, Err: err})
		}
	}

	prev, err := e.store.Load()
	if err != nil {
		e.rollback(tx, logger)
		return done(StatusFailed, err)
	}

	next := prev
	switch dir {
	case Forward:
		if !prev.Contains(name) {
			next = prev.Append(name)
		}
	case Reverse:
		next = prev.Remove(name)
	}

	if err = e.store.Save(next); err != nil {
		e.rollback(tx, logger)
		return done(StatusFailed, err)
	}

	if err = tx.Commit(); err != nil {
		cerr := &CommitError{Name: name, Err: err}
		if rerr := e.store.Save(prev); rerr != nil {
			logger.Error("failed restoring history after commit failure", "error", rerr)
		} else {
			cerr.Restored = true
		}
		return done(StatusFailed, cerr)
	}

	logger.Debug("migration committed")

	return done(StatusCommitted, nil)
}

func (e *Executor) rollback(tx *sql.Tx, logger *slog.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Error("failed rolling back transaction", "error", err)
	}
}
