package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"go.hackfix.me/migrain/db/migrator"
)

// renderStatus writes the status of each migration as a two-column table,
// followed by a line with the totals per status.
func renderStatus(entries []migrator.StatusEntry, w io.Writer) error {
	data := make([][]string, len(entries))
	counts := map[string]int{}
	for i, e := range entries {
		data[i] = []string{e.Label(), e.Name}
		counts[e.Label()]++
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(
			tw.Rendition{
				Borders: tw.BorderNone,
				Symbols: tw.NewSymbols(tw.StyleASCII),
				Settings: tw.Settings{
					Lines: tw.Lines{
						ShowHeaderLine: tw.On,
						ShowFooterLine: tw.Off,
						ShowTop:        tw.Off,
						ShowBottom:     tw.Off,
					},
					Separators: tw.Separators{
						ShowHeader:     tw.On,
						ShowFooter:     tw.Off,
						BetweenRows:    tw.Off,
						BetweenColumns: tw.On,
					},
				},
			},
		)),
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)

	table.Header([]string{"Status", "Migration"})
	if err := table.Bulk(data); err != nil {
		return err //nolint:wrapcheck // This is wrapped by the caller.
	}
	if err := table.Render(); err != nil {
		return err //nolint:wrapcheck // This is wrapped by the caller.
	}

	summary := fmt.Sprintf("\n%d applied, %d pending", counts["applied"], counts["pending"])
	if n := counts["orphaned"]; n > 0 {
		summary += fmt.Sprintf(", %d orphaned", n)
	}
	_, err := fmt.Fprintln(w, summary)

	return err //nolint:wrapcheck // This is wrapped by the caller.
}
