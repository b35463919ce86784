package queries

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.hackfix.me/migrain/db/types"
)

// MySQLGetLock acquires a named MySQL user lock, waiting up to timeout. It
// returns false if the lock is held by another session when the timeout
// expires.
func MySQLGetLock(ctx context.Context, d types.Querier, key string, timeout time.Duration) (bool, error) {
	var res sql.Null[int64]
	err := d.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, key, lockWaitSeconds(timeout)).Scan(&res)
	if err != nil {
		return false, err
	}
	if !res.Valid {
		return false, errors.New("GET_LOCK returned NULL")
	}

	return res.V == 1, nil
}

// lockWaitSeconds converts timeout to the whole seconds GET_LOCK accepts,
// rounding up so that a sub-second timeout still waits. A negative timeout
// would make GET_LOCK wait forever, so it's treated as 0.
func lockWaitSeconds(timeout time.Duration) int64 {
	if timeout <= 0 {
		return 0
	}
	return int64(math.Ceil(timeout.Seconds()))
}

// MySQLReleaseLock releases a named MySQL user lock held by this session.
func MySQLReleaseLock(ctx context.Context, d types.Querier, key string) error {
	var res sql.Null[int64]
	err := d.QueryRowContext(ctx, `SELECT RELEASE_LOCK(?)`, key).Scan(&res)
	if err != nil {
		return err
	}
	if !res.Valid || res.V != 1 {
		return errors.New("lock wasn't held by this session")
	}

	return nil
}

// PostgresTryLock tries to acquire a session-level advisory lock without
// waiting.
func PostgresTryLock(ctx context.Context, d types.Querier, key string) (bool, error) {
	var ok bool
	err := d.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&ok)
	return ok, err
}

// PostgresUnlock releases a session-level advisory lock.
func PostgresUnlock(ctx context.Context, d types.Querier, key string) error {
	var ok bool
	err := d.QueryRowContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, key).Scan(&ok)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("lock wasn't held by this session")
	}

	return nil
}
