package app

import (
	"bytes"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/stretchr/testify/require"

	actx "go.hackfix.me/migrain/app/context"
)

const historyPath = "/db/migrations/history.json"

var timeNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func timeNowFn() time.Time {
	return timeNow
}

type testApp struct {
	*App
	fs             vfs.FileSystem
	stdout, stderr *bytes.Buffer
	env            *mockEnv
	// dbURI is the name of the SQLite database, passed with --name.
	dbURI string
	// db is kept open for the duration of the test, so that the in-memory
	// database survives between runs.
	db *sql.DB
}

// newTestApp returns an application with an in-memory filesystem containing
// the given migration files, and a unique in-memory SQLite database.
func newTestApp(t *testing.T, files map[string]string, stdin io.Reader) *testApp {
	t.Helper()

	rndName := make([]byte, 12)
	_, err := rand.Read(rndName)
	require.NoError(t, err)

	// Not using just :memory: to avoid 'no such table' issue.
	// See https://github.com/mattn/go-sqlite3#faq
	dbURI := fmt.Sprintf("file:migrain-%x?mode=memory&cache=shared", rndName)
	d, err := sql.Open("sqlite", dbURI)
	require.NoError(t, err)
	require.NoError(t, d.PingContext(t.Context()))
	t.Cleanup(func() { _ = d.Close() })

	fs := memoryfs.New()
	dir := filepath.Dir(historyPath)
	require.NoError(t, fs.MkdirAll(dir, 0o755))
	for name, data := range files {
		require.NoError(t, vfs.WriteFile(fs, filepath.Join(dir, name), []byte(data), 0o644))
	}

	if stdin == nil {
		stdin = strings.NewReader("")
	}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	env := &mockEnv{env: map[string]string{}}

	app, err := New("migrain",
		WithTimeNow(timeNowFn),
		WithEnv(env),
		WithContext(t.Context()),
		WithFDs(stdin, stdout, stderr),
		WithFS(fs),
		WithLogger(false, false),
	)
	require.NoError(t, err)

	return &testApp{
		App: app, fs: fs, stdout: stdout, stderr: stderr, env: env, dbURI: dbURI, db: d,
	}
}

// run executes the app with the given arguments. Output of previous runs is
// discarded.
func (ta *testApp) run(args ...string) error {
	ta.stdout.Reset()
	ta.stderr.Reset()
	return ta.Run(args)
}

// migrate runs the app against the test SQLite database.
func (ta *testApp) migrate(step int, extraArgs ...string) error {
	args := []string{
		"--path=" + historyPath, "--driver=sqlite", "--name=" + ta.dbURI, fmt.Sprintf("--step=%d", step),
	}
	return ta.run(append(args, extraArgs...)...)
}

func (ta *testApp) history(t *testing.T) string {
	t.Helper()

	data, err := vfs.ReadFile(ta.fs, historyPath)
	require.NoError(t, err)

	return string(data)
}

func (ta *testApp) tableExists(t *testing.T, name string) bool {
	t.Helper()

	var count int
	err := ta.db.QueryRowContext(t.Context(),
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	require.NoError(t, err)

	return count > 0
}

type mockEnv struct {
	mx  sync.RWMutex
	env map[string]string
}

var _ actx.Environment = (*mockEnv)(nil)

func (me *mockEnv) Get(key string) string {
	me.mx.RLock()
	defer me.mx.RUnlock()
	return me.env[key]
}

func (me *mockEnv) Set(key, val string) error {
	me.mx.Lock()
	defer me.mx.Unlock()
	me.env[key] = val
	return nil
}
