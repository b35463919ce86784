package migrator_test

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.hackfix.me/migrain/db/migrator"
)

func TestSelect(t *testing.T) {
	t.Parallel()

	_, catalog := newTestCatalog(t, map[string]string{
		"001_init.up.sql":    "SELECT 1;",
		"002_users.up.sql":   "SELECT 1;",
		"002_users.down.sql": "SELECT 1;",
		"003_posts.up.sql":   "SELECT 1;",
		"004_tags.up.sql":    "SELECT 1;",
	})

	tests := []struct {
		name     string
		hist     migrator.History
		step     int
		expDir   migrator.Direction
		expNames []string
		expErr   error
	}{
		{
			name:   "err/status_only",
			hist:   migrator.History{"001_init"},
			step:   0,
			expErr: migrator.ErrStatusOnly,
		},
		{
			name:     "ok/forward_one",
			hist:     migrator.History{},
			step:     1,
			expDir:   migrator.Forward,
			expNames: []string{"001_init"},
		},
		{
			name:     "ok/forward_more_than_pending",
			hist:     migrator.History{"001_init", "002_users"},
			step:     10,
			expDir:   migrator.Forward,
			expNames: []string{"003_posts", "004_tags"},
		},
		{
			name:     "ok/forward_catalog_order_not_history_order",
			hist:     migrator.History{"003_posts"},
			step:     3,
			expDir:   migrator.Forward,
			expNames: []string{"001_init", "002_users", "004_tags"},
		},
		{
			name:     "ok/forward_nothing_pending",
			hist:     migrator.History{"001_init", "002_users", "003_posts", "004_tags"},
			step:     1,
			expDir:   migrator.Forward,
			expNames: []string{},
		},
		{
			name:     "ok/reverse_one",
			hist:     migrator.History{"001_init", "002_users"},
			step:     -1,
			expDir:   migrator.Reverse,
			expNames: []string{"002_users"},
		},
		{
			name:     "ok/reverse_history_order",
			hist:     migrator.History{"003_posts", "001_init", "002_users"},
			step:     -2,
			expDir:   migrator.Reverse,
			expNames: []string{"002_users", "001_init"},
		},
		{
			name:     "ok/reverse_more_than_applied",
			hist:     migrator.History{"001_init", "002_users"},
			step:     -5,
			expDir:   migrator.Reverse,
			expNames: []string{"002_users", "001_init"},
		},
		{
			name:     "ok/reverse_orphaned",
			hist:     migrator.History{"001_init", "000_removed"},
			step:     -1,
			expDir:   migrator.Reverse,
			expNames: []string{"000_removed"},
		},
		{
			name:     "ok/reverse_empty_history",
			hist:     migrator.History{},
			step:     -1,
			expDir:   migrator.Reverse,
			expNames: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			plan, err := migrator.Select(catalog, tt.hist, tt.step)
			if tt.expErr != nil {
				require.ErrorIs(t, err, tt.expErr)
				assert.True(t, plan.Empty())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expDir, plan.Direction)
			assert.Equal(t, tt.expNames, plan.Names)
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	_, catalog := newTestCatalog(t, map[string]string{
		"001_init.up.sql":  "SELECT 1;",
		"002_users.up.sql": "SELECT 1;",
	})

	hist := migrator.History{"001_init", "000_removed"}
	entries := migrator.Status(catalog, hist)

	require.Len(t, entries, 3)
	assert.Equal(t, migrator.StatusEntry{Name: "001_init", Applied: true}, entries[0])
	assert.Equal(t, "applied", entries[0].Label())
	assert.Equal(t, migrator.StatusEntry{Name: "002_users"}, entries[1])
	assert.Equal(t, "pending", entries[1].Label())
	assert.Equal(t, migrator.StatusEntry{Name: "000_removed", Applied: true, Orphaned: true}, entries[2])
	assert.Equal(t, "orphaned", entries[2].Label())
	assert.Equal(t, migrator.History{"001_init", "000_removed"}, hist)
}

// TestSelectProperties checks the plan invariants against random catalogs and
// histories.
func TestSelectProperties(t *testing.T) {
	t.Parallel()

	rnd := rand.New(rand.NewPCG(1, 2))

	for i := range 50 {
		files := map[string]string{}
		all := []string{}
		for j := range rnd.IntN(12) {
			name := fmt.Sprintf("%03d_m%d", rnd.IntN(1000), j)
			files[name+".up.sql"] = "SELECT 1;"
			all = append(all, name)
		}
		_, catalog := newTestCatalog(t, files)
		names := catalog.Names()

		var hist migrator.History
		for _, idx := range rnd.Perm(len(all)) {
			if rnd.IntN(2) == 0 {
				hist = append(hist, all[idx])
			}
		}
		histCopy := slices.Clone(hist)

		t.Run(fmt.Sprintf("status/%d", i), func(t *testing.T) {
			entries := migrator.Status(catalog, hist)
			require.Len(t, entries, len(names))
			for k, e := range entries {
				assert.Equal(t, names[k], e.Name)
				assert.Equal(t, hist.Contains(e.Name), e.Applied)
			}
			assert.Equal(t, histCopy, hist)
			assert.Equal(t, names, catalog.Names())
		})

		step := rnd.IntN(15) + 1

		t.Run(fmt.Sprintf("forward/%d", i), func(t *testing.T) {
			plan, err := migrator.Select(catalog, hist, step)
			require.NoError(t, err)
			assert.Equal(t, migrator.Forward, plan.Direction)
			assert.LessOrEqual(t, len(plan.Names), step)
			prevIdx := -1
			for _, name := range plan.Names {
				assert.True(t, catalog.Has(name))
				assert.False(t, hist.Contains(name))
				idx := slices.Index(names, name)
				assert.Greater(t, idx, prevIdx)
				prevIdx = idx
			}

			again, err := migrator.Select(catalog, hist, step)
			require.NoError(t, err)
			assert.Equal(t, plan, again)
		})

		t.Run(fmt.Sprintf("reverse/%d", i), func(t *testing.T) {
			plan, err := migrator.Select(catalog, hist, -step)
			require.NoError(t, err)
			assert.Equal(t, migrator.Reverse, plan.Direction)
			assert.LessOrEqual(t, len(plan.Names), step)
			for k, name := range plan.Names {
				assert.True(t, hist.Contains(name))
				assert.Equal(t, hist[len(hist)-1-k], name)
			}
		})

		t.Run(fmt.Sprintf("idempotent/%d", i), func(t *testing.T) {
			full := hist
			plan, err := migrator.Select(catalog, full, catalog.Len()+1)
			require.NoError(t, err)
			for _, name := range plan.Names {
				full = full.Append(name)
			}
			again, err := migrator.Select(catalog, full, step)
			require.NoError(t, err)
			assert.Empty(t, again.Names)
		})
	}
}
