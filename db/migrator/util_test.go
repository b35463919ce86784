package migrator_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/migrain/db/migrator"
)

const migrationsDir = "/migrations"

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

// newTestFS returns an in-memory filesystem containing the given files,
// relative to migrationsDir.
func newTestFS(t *testing.T, files map[string]string) vfs.FileSystem {
	t.Helper()

	fs := memoryfs.New()
	require.NoError(t, fs.MkdirAll(migrationsDir, 0o755))
	for name, data := range files {
		require.NoError(t, vfs.WriteFile(fs, filepath.Join(migrationsDir, name), []byte(data), 0o644))
	}

	return fs
}

func newTestCatalog(t *testing.T, files map[string]string) (vfs.FileSystem, *migrator.Catalog) {
	t.Helper()

	fs := newTestFS(t, files)
	catalog, err := migrator.Scan(fs, migrationsDir)
	require.NoError(t, err)

	return fs, catalog
}

// newTestDB returns a unique in-memory SQLite database. params are appended
// to the DSN, e.g. "_pragma=foreign_keys(1)".
func newTestDB(t *testing.T, params ...string) *sql.DB {
	t.Helper()

	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	dsn := fmt.Sprintf("file:migrator-%x?mode=memory&cache=shared", rndName)
	for _, p := range params {
		dsn += "&" + p
	}
	d, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	d.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func tableExists(t *testing.T, d *sql.DB, name string) bool {
	t.Helper()

	var count int
	err := d.QueryRowContext(context.Background(),
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	require.NoError(t, err)

	return count > 0
}

// memHistory is a HistoryStore kept in memory, with injectable failures.
type memHistory struct {
	hist    migrator.History
	loads   int
	saves   int
	loadErr error
	saveErr error
	// failSaveAt makes the nth call to Save fail with saveErr. 0 fails every call.
	failSaveAt int
}

var _ migrator.HistoryStore = (*memHistory)(nil)

func (m *memHistory) Load() (migrator.History, error) {
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append(migrator.History{}, m.hist...), nil
}

func (m *memHistory) Save(h migrator.History) error {
	m.saves++
	if m.saveErr != nil && (m.failSaveAt == 0 || m.failSaveAt == m.saves) {
		return m.saveErr
	}
	m.hist = append(migrator.History{}, h...)
	return nil
}
