package migrator

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

// AnyExtension makes the catalog accept forward scripts with any extension.
const AnyExtension = "*"

const (
	upInfix   = ".up."
	downInfix = ".down."
)

// Catalog is the name-ordered set of available migrations. It's immutable
// after Scan returns.
type Catalog struct {
	fs         vfs.FileSystem
	dir        string
	names      []Name
	migrations map[Name]*Migration
}

// CatalogOption configures how migrations are discovered.
type CatalogOption func(*catalogConfig)

type catalogConfig struct {
	ext string
}

// WithExtension sets the file extension of migration scripts. The default is
// "sql". AnyExtension matches every extension.
func WithExtension(ext string) CatalogOption {
	return func(c *catalogConfig) {
		c.ext = strings.TrimPrefix(ext, ".")
	}
}

// Scan discovers migrations in dir. Forward scripts are named
// {name}.up.{ext}, and reverse scripts {name}.down.{ext}. A missing reverse
// script only disables rolling back that migration.
func Scan(fs vfs.FileSystem, dir string, opts ...CatalogOption) (*Catalog, error) {
	cfg := &catalogConfig{ext: "sql"}
	for _, opt := range opts {
		opt(cfg)
	}

	fi, err := fs.Stat(dir)
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Err: err}
	}
	if !fi.IsDir() {
		return nil, &DiscoveryError{Dir: dir, Err: errors.New("not a directory")}
	}

	entries, err := vfs.ReadDir(fs, dir)
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Err: err}
	}

	files := make(map[string]struct{}, len(entries))
	fnames := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files[e.Name()] = struct{}{}
		fnames = append(fnames, e.Name())
	}
	slices.Sort(fnames)

	c := &Catalog{fs: fs, dir: dir, migrations: make(map[Name]*Migration)}
	for _, fname := range fnames {
		name, ext, ok := parseForward(fname, cfg.ext)
		if !ok {
			continue
		}

		upPath := filepath.Join(dir, fname)
		if m, exists := c.migrations[name]; exists {
			return nil, &DuplicateMigrationError{Name: name, Paths: []string{m.UpPath, upPath}}
		}

		m := &Migration{Name: name, UpPath: upPath}
		downName := name + downInfix + ext
		if _, ok := files[downName]; ok {
			m.DownPath = filepath.Join(dir, downName)
		}

		c.migrations[name] = m
		c.names = append(c.names, name)
	}

	// Names are already ordered unless the separator sorts after a character
	// that appears in another name, e.g. "a.up.sql" and "a-b.up.sql".
	slices.Sort(c.names)

	return c, nil
}

// parseForward extracts the migration name and extension from a forward
// script filename.
func parseForward(fname, wantExt string) (name, ext string, ok bool) {
	idx := strings.LastIndex(fname, upInfix)
	if idx <= 0 {
		return "", "", false
	}
	name, ext = fname[:idx], fname[idx+len(upInfix):]
	if ext == "" || strings.Contains(ext, ".") {
		return "", "", false
	}
	if wantExt != AnyExtension && ext != wantExt {
		return "", "", false
	}

	return name, ext, true
}

// Script returns the contents of the script that runs the named migration in
// the given direction. It returns ErrMissingReverseScript if the migration
// can't be reverted, or doesn't exist in the catalog.
func (c *Catalog) Script(name Name, dir Direction) (string, error) {
	m := c.migrations[name]
	if m == nil {
		if dir == Reverse {
			return "", fmt.Errorf("migration %s isn't in the catalog: %w", name, ErrMissingReverseScript)
		}
		return "", fmt.Errorf("migration %s isn't in the catalog", name)
	}

	path := m.UpPath
	if dir == Reverse {
		if !m.Reversible() {
			return "", ErrMissingReverseScript
		}
		path = m.DownPath
	}

	data, err := vfs.ReadFile(c.fs, path)
	if err != nil {
		return "", fmt.Errorf("failed reading migration script: %w", err)
	}

	return string(data), nil
}

// Dir returns the directory the catalog was scanned from.
func (c *Catalog) Dir() string {
	return c.dir
}

// Names returns all migration names in lexical order.
func (c *Catalog) Names() []Name {
	return slices.Clone(c.names)
}

// Get returns the migration with the given name, or nil if it doesn't exist.
func (c *Catalog) Get(name Name) *Migration {
	return c.migrations[name]
}

// Has returns true if the catalog contains a migration with the given name.
func (c *Catalog) Has(name Name) bool {
	_, ok := c.migrations[name]
	return ok
}

// Len returns the number of migrations.
func (c *Catalog) Len() int {
	return len(c.names)
}

// String implements fmt.Stringer.
func (c *Catalog) String() string {
	return fmt.Sprintf("%d migrations in %s", len(c.names), c.dir)
}
