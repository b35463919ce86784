package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"go.hackfix.me/migrain/db/queries"
	"go.hackfix.me/migrain/db/types"
)

const lockPollInterval = 500 * time.Millisecond

// Lock is an advisory lock held for the duration of a migration run, which
// prevents two processes from applying the same migrations concurrently.
type Lock struct {
	key    string
	driver Driver
	conn   *sql.Conn
	logger *slog.Logger
}

// LockKey returns the lock name for the given history file path. MySQL limits
// lock names to 64 characters, so the path is hashed.
func LockKey(historyPath string) string {
	sum := blake2b.Sum256([]byte(historyPath))
	return "migrain_" + base58.Encode(sum[:16])
}

// Lock acquires the advisory lock with the given key, waiting up to timeout
// for other holders to release it. The lock is bound to a dedicated
// connection, which is returned to the pool on Release. SQLite databases
// don't support advisory locks, so a no-op lock is returned for them.
func (d *DB) Lock(ctx context.Context, key string, timeout time.Duration) (*Lock, error) {
	if timeout < 0 {
		return nil, &types.LockError{Key: key, Msg: fmt.Sprintf("invalid negative timeout %s", timeout)}
	}

	l := &Lock{key: key, driver: d.cfg.Driver, logger: d.logger.With("lock", key)}
	if d.cfg.Driver == DriverSQLite {
		l.logger.Debug("advisory locks are unsupported by SQLite; skipping")
		return l, nil
	}

	conn, err := d.Conn(ctx)
	if err != nil {
		return nil, &types.LockError{Key: key, Msg: "failed reserving connection", Err: err}
	}

	l.logger.Debug("acquiring migration lock", "timeout", timeout)

	var acquired bool
	switch d.cfg.Driver {
	case DriverMySQL:
		acquired, err = queries.MySQLGetLock(ctx, conn, key, timeout)
	case DriverPostgres:
		acquired, err = pollLock(ctx, timeout, func() (bool, error) {
			return queries.PostgresTryLock(ctx, conn, key)
		})
	default:
		err = fmt.Errorf("unsupported driver '%s'", d.cfg.Driver)
	}

	if err != nil {
		_ = conn.Close()
		return nil, &types.LockError{Key: key, Msg: "failed acquiring lock", Err: err}
	}
	if !acquired {
		_ = conn.Close()
		return nil, &types.LockError{
			Key: key, Msg: fmt.Sprintf("still held by another process after %s", timeout),
		}
	}

	l.conn = conn
	l.logger.Debug("acquired migration lock")

	return l, nil
}

// Release releases the lock and its connection.
func (l *Lock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}

	var err error
	switch l.driver {
	case DriverMySQL:
		err = queries.MySQLReleaseLock(ctx, l.conn, l.key)
	case DriverPostgres:
		err = queries.PostgresUnlock(ctx, l.conn, l.key)
	}

	if cerr := l.conn.Close(); cerr != nil && err == nil {
		err = cerr
	}
	l.conn = nil

	if err != nil {
		return &types.LockError{Key: l.key, Msg: "failed releasing lock", Err: err}
	}
	l.logger.Debug("released migration lock")

	return nil
}

// pollLock calls tryFn until it returns true, an error, or timeout expires.
func pollLock(ctx context.Context, timeout time.Duration, tryFn func() (bool, error)) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := tryFn()
		if err != nil || ok {
			return ok, err
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}
