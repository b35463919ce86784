package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// Config represents the application configuration, backed by a filesystem for
// persistence. All values are optional defaults, which are overridden by
// command-line flags.
type Config struct {
	Database  Database
	Migration Migration

	fs   vfs.FileSystem
	path string
}

// NewConfig creates a new Config instance with the specified filesystem
// and configuration file path.
func NewConfig(fs vfs.FileSystem, path string) *Config {
	return &Config{fs: fs, path: path}
}

// Load reads and parses the configuration file from the filesystem.
// If the file doesn't exist, it initializes with an empty configuration.
func (c *Config) Load() error {
	configJSON, err := vfs.ReadFile(c.fs, c.path)
	if err != nil && !vfs.IsErrNotExist(err) {
		return fmt.Errorf("failed reading configuration file: %w", err)
	}

	// Ensure that unmarshalling JSON doesn't fail if the file doesn't exist or is empty.
	if len(configJSON) == 0 {
		configJSON = []byte("{}")
	}

	if err = json.Unmarshal(configJSON, c); err != nil {
		return fmt.Errorf("failed parsing configuration file: %w", err)
	}

	return nil
}

// Path returns the filesystem path where the configuration is stored.
func (c *Config) Path() string {
	return c.path
}

// Save writes the current configuration to the filesystem as JSON.
func (c *Config) Save() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed creating configuration directory: %w", err)
	}
	configJSON, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed serializing configuration data: %w", err)
	}
	if err = vfs.WriteFile(c.fs, c.path, configJSON, 0o644); err != nil {
		return fmt.Errorf("failed writing configuration file: %w", err)
	}

	return nil
}

// Database defines the default database connection parameters.
type Database struct {
	// Driver is the database driver: mysql, postgres or sqlite.
	Driver sql.Null[string] `json:"driver"`
	Host   sql.Null[string] `json:"host"`
	Port   sql.Null[uint16] `json:"port"`
	Name   sql.Null[string] `json:"name"`
	User   sql.Null[string] `json:"user"`
}

// Migration defines options for running migrations.
type Migration struct {
	// Extension is the file extension of migration scripts, e.g. "sql".
	Extension sql.Null[string] `json:"extension"`
	// LockTimeout is how long to wait for another process to release the
	// migration lock. It serializes from/to time.Duration string values.
	LockTimeout sql.Null[time.Duration] `json:"lock_timeout"`
}

type cfgWrapper struct {
	Database  dbCfgWrapper  `json:"database"`
	Migration migCfgWrapper `json:"migration"`
}
type dbCfgWrapper struct {
	Driver string `json:"driver,omitempty"`
	Host   string `json:"host,omitempty"`
	Port   uint16 `json:"port,omitempty"`
	Name   string `json:"name,omitempty"`
	User   string `json:"user,omitempty"`
}
type migCfgWrapper struct {
	Extension   string `json:"extension,omitempty"`
	LockTimeout string `json:"lock_timeout,omitempty"`
}

// MarshalJSON implements custom JSON marshaling to convert sql.Null values
// to their underlying types, omitting invalid/null fields from the output.
func (c Config) MarshalJSON() ([]byte, error) {
	w := cfgWrapper{}

	if c.Database.Driver.Valid {
		w.Database.Driver = c.Database.Driver.V
	}
	if c.Database.Host.Valid {
		w.Database.Host = c.Database.Host.V
	}
	if c.Database.Port.Valid {
		w.Database.Port = c.Database.Port.V
	}
	if c.Database.Name.Valid {
		w.Database.Name = c.Database.Name.V
	}
	if c.Database.User.Valid {
		w.Database.User = c.Database.User.V
	}

	if c.Migration.Extension.Valid {
		w.Migration.Extension = c.Migration.Extension.V
	}
	if c.Migration.LockTimeout.Valid {
		w.Migration.LockTimeout = c.Migration.LockTimeout.V.String()
	}

	//nolint:wrapcheck // This is fine.
	return json.Marshal(w)
}

// UnmarshalJSON implements custom JSON unmarshaling to convert plain values
// into sql.Null types and parse duration strings into time.Duration values.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w cfgWrapper
	if err := json.Unmarshal(data, &w); err != nil {
		//nolint:wrapcheck // This is fine.
		return err
	}

	if w.Database.Driver != "" {
		c.Database.Driver = sql.Null[string]{V: w.Database.Driver, Valid: true}
	}
	if w.Database.Host != "" {
		c.Database.Host = sql.Null[string]{V: w.Database.Host, Valid: true}
	}
	if w.Database.Port > 0 {
		c.Database.Port = sql.Null[uint16]{V: w.Database.Port, Valid: true}
	}
	if w.Database.Name != "" {
		c.Database.Name = sql.Null[string]{V: w.Database.Name, Valid: true}
	}
	if w.Database.User != "" {
		c.Database.User = sql.Null[string]{V: w.Database.User, Valid: true}
	}

	if w.Migration.Extension != "" {
		c.Migration.Extension = sql.Null[string]{V: w.Migration.Extension, Valid: true}
	}
	if w.Migration.LockTimeout != "" {
		dur, err := time.ParseDuration(w.Migration.LockTimeout)
		if err != nil {
			return fmt.Errorf("failed parsing migration lock timeout: %w", err)
		}
		if dur < 0 {
			return fmt.Errorf("migration lock timeout must not be negative: %s", dur)
		}
		c.Migration.LockTimeout = sql.Null[time.Duration]{V: dur, Valid: true}
	}

	return nil
}
