package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"
	"github.com/go-sql-driver/mysql"
	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/jackc/pgx/v5/stdlib"

	"go.hackfix.me/migrain/db/types"
)

// Driver is the type of database server migrations are run against.
type Driver string

// Supported database drivers.
const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// DriverFromString returns the Driver for the given name.
func DriverFromString(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(s)); d {
	case DriverMySQL, DriverPostgres, DriverSQLite:
		return d, nil
	case "pgx", "postgresql":
		return DriverPostgres, nil
	}

	return "", fmt.Errorf("unsupported database driver '%s'", s)
}

// sqlName returns the name the driver is registered with in database/sql.
func (d Driver) sqlName() string {
	switch d {
	case DriverPostgres:
		return "pgx"
	default:
		return string(d)
	}
}

// DefaultPort returns the default port of the database server.
func (d Driver) DefaultPort() uint16 {
	switch d {
	case DriverMySQL:
		return 3306
	case DriverPostgres:
		return 5432
	default:
		return 0
	}
}

// NeedsPassword returns true if connecting requires a password.
func (d Driver) NeedsPassword() bool {
	return d != DriverSQLite
}

// Config holds the database connection parameters.
type Config struct {
	Driver   Driver
	Host     string
	Port     uint16
	Name     string
	User     string
	Password string //nolint:gosec // Not a hardcoded credential.
}

// DSN returns the data source name passed to the driver.
func (c Config) DSN() string {
	port := c.Port
	if port == 0 {
		port = c.Driver.DefaultPort()
	}
	addr := net.JoinHostPort(c.Host, strconv.Itoa(int(port)))

	switch c.Driver {
	case DriverMySQL:
		mcfg := mysql.NewConfig()
		mcfg.User = c.User
		mcfg.Passwd = c.Password
		mcfg.Net = "tcp"
		mcfg.Addr = addr
		mcfg.DBName = c.Name
		// Migration scripts usually contain several statements.
		mcfg.MultiStatements = true
		mcfg.ParseTime = true
		return mcfg.FormatDSN()
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   addr,
			Path:   "/" + c.Name,
		}
		return u.String()
	default:
		return c.Name
	}
}

// String returns a representation of the connection without the password.
func (c Config) String() string {
	if c.Driver == DriverSQLite {
		return fmt.Sprintf("%s:%s", c.Driver, c.Name)
	}
	return fmt.Sprintf("%s://%s@%s/%s", c.Driver, c.User, c.Host, c.Name)
}

// DB wraps sql.DB with the configuration it was opened with.
type DB struct {
	*sql.DB
	cfg    Config
	logger *slog.Logger
}

// Open connects to the database and verifies the connection. Any failure is
// returned as a *types.ConnectionError.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	var d *DB
	if strings.Contains(cfg.Name, "mode=memory") || strings.Contains(cfg.Name, ":memory:") {
		defer func() {
			if d != nil {
				// See https://github.com/mattn/go-sqlite3#faq
				d.SetMaxIdleConns(10)
				d.SetConnMaxLifetime(time.Duration(math.Inf(1)))
			}
		}()
	}

	logger = logger.With("component", "db", "database", cfg.String())

	sqlDB, err := sql.Open(cfg.Driver.sqlName(), cfg.DSN())
	if err != nil {
		return nil, &types.ConnectionError{Target: cfg.String(), Err: err}
	}

	// One connection for the advisory lock, and one for migrations.
	sqlDB.SetMaxOpenConns(2)

	if err = sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, &types.ConnectionError{Target: cfg.String(), Err: err}
	}

	d = &DB{DB: sqlDB, cfg: cfg, logger: logger}
	logger.Debug("connected to database")

	return d, nil
}

// Driver returns the database driver.
func (d *DB) Driver() Driver {
	return d.cfg.Driver
}
