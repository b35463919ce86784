package migrator

import (
	"fmt"
	"slices"
	"time"
)

// Name identifies a migration. It's the base filename of the forward script
// without its suffix.
type Name = string

// Migration is a named pair of forward and reverse SQL scripts.
type Migration struct {
	Name     Name
	UpPath   string
	DownPath string
}

// Reversible returns true if the migration has a reverse script.
func (m *Migration) Reversible() bool {
	return m.DownPath != ""
}

// Direction is the direction in which migrations are run.
type Direction int

const (
	// Forward applies migrations.
	Forward Direction = iota + 1
	// Reverse reverts applied migrations.
	Reverse
)

// String returns the string representation of the direction.
func (d Direction) String() string {
	switch d {
	case Forward:
		return "up"
	case Reverse:
		return "down"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// History is the ordered list of applied migrations, in application order.
// Its methods never modify the receiver.
type History []Name

// Contains returns true if the migration was applied.
func (h History) Contains(name Name) bool {
	return slices.Contains(h, name)
}

// Append returns a copy of the history with name added at the end.
func (h History) Append(name Name) History {
	return append(slices.Clone(h), name)
}

// Remove returns a copy of the history without any occurrence of name. The
// relative order of the remaining entries is preserved.
func (h History) Remove(name Name) History {
	out := make(History, 0, len(h))
	for _, n := range h {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// Equal returns true if both histories contain the same names in the same order.
func (h History) Equal(other History) bool {
	return slices.Equal(h, other)
}

// Plan is the ordered list of migrations selected to run.
type Plan struct {
	Direction Direction
	Names     []Name
}

// Empty returns true if there's nothing to run.
func (p Plan) Empty() bool {
	return len(p.Names) == 0
}

// ResultStatus is the outcome of running a single migration.
type ResultStatus int

const (
	// StatusCommitted means the migration and its history entry were committed.
	StatusCommitted ResultStatus = iota + 1
	// StatusFailed means the migration was rolled back and the run halted.
	StatusFailed
	// StatusSkipped means the migration couldn't be run, but the run continued.
	StatusSkipped
)

func (s ResultStatus) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("ResultStatus(%d)", int(s))
	}
}

// Result is the outcome of a single migration step.
type Result struct {
	Name      Name
	Direction Direction
	Status    ResultStatus
	// Err is the reason for a failed or skipped migration.
	Err      error
	Duration time.Duration
}

// StatusEntry describes the state of a single migration in the status view.
type StatusEntry struct {
	Name    Name
	Applied bool
	// Orphaned is set for applied migrations that no longer exist in the catalog.
	Orphaned bool
}

// Label returns the status label of the entry.
func (e StatusEntry) Label() string {
	switch {
	case e.Orphaned:
		return "orphaned"
	case e.Applied:
		return "applied"
	default:
		return "pending"
	}
}
