package migrator

// Status returns the state of every migration in the catalog, in catalog
// order, followed by applied migrations that are missing from the catalog,
// in history order.
func Status(catalog *Catalog, hist History) []StatusEntry {
	applied := make(map[Name]struct{}, len(hist))
	for _, name := range hist {
		applied[name] = struct{}{}
	}

	entries := make([]StatusEntry, 0, catalog.Len())
	for _, name := range catalog.names {
		_, ok := applied[name]
		entries = append(entries, StatusEntry{Name: name, Applied: ok})
	}

	seen := make(map[Name]struct{})
	for _, name := range hist {
		if catalog.Has(name) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, StatusEntry{Name: name, Applied: true, Orphaned: true})
	}

	return entries
}

// Select returns the migrations to run for the given step.
//
// A positive step selects up to step pending migrations in catalog order. A
// negative step selects up to -step applied migrations, most recently applied
// first. A step of 0 returns ErrStatusOnly.
func Select(catalog *Catalog, hist History, step int) (Plan, error) {
	switch {
	case step > 0:
		return Plan{Direction: Forward, Names: pending(catalog, hist, step)}, nil
	case step < 0:
		return Plan{Direction: Reverse, Names: latest(hist, -step)}, nil
	default:
		return Plan{}, ErrStatusOnly
	}
}

// pending returns up to limit catalog names that aren't in the history.
func pending(catalog *Catalog, hist History, limit int) []Name {
	applied := make(map[Name]struct{}, len(hist))
	for _, name := range hist {
		applied[name] = struct{}{}
	}

	names := []Name{}
	for _, name := range catalog.names {
		if len(names) == limit {
			break
		}
		if _, ok := applied[name]; !ok {
			names = append(names, name)
		}
	}

	return names
}

// latest returns up to limit history entries, most recent first.
func latest(hist History, limit int) []Name {
	names := make([]Name, 0, min(limit, len(hist)))
	for i := len(hist) - 1; i >= 0 && len(names) < limit; i-- {
		names = append(names, hist[i])
	}

	return names
}
