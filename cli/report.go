package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"go.hackfix.me/migrain/db/migrator"
)

// reporter prints the progress of a migration run.
type reporter struct {
	w                       io.Writer
	ok, fail, skip, subject *color.Color
	// err is the first error encountered while writing.
	err error
}

func newReporter(w io.Writer, colored bool) *reporter {
	r := &reporter{
		w:       w,
		ok:      color.New(color.FgGreen),
		fail:    color.New(color.FgRed, color.Bold),
		skip:    color.New(color.FgYellow),
		subject: color.New(color.Bold),
	}
	for _, c := range []*color.Color{r.ok, r.fail, r.skip, r.subject} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return r
}

func verb(dir migrator.Direction) string {
	if dir == migrator.Reverse {
		return "Rolling back"
	}
	return "Applying"
}

// result prints the outcome of a single migration.
func (r *reporter) result(res migrator.Result) {
	var outcome string
	switch res.Status {
	case migrator.StatusCommitted:
		outcome = r.ok.Sprint("committed")
	case migrator.StatusSkipped:
		reason := "skipped"
		if errors.Is(res.Err, migrator.ErrMissingReverseScript) {
			reason = "skipped (no reverse script)"
		}
		outcome = r.skip.Sprint(reason)
	case migrator.StatusFailed:
		outcome = r.fail.Sprintf("failed: %s", failReason(res.Err))
	}

	r.printf("%s %s ... %s\n", verb(res.Direction), r.subject.Sprint(res.Name), outcome)
}

// plan prints the migrations that would run, without running them.
func (r *reporter) plan(p migrator.Plan) {
	if p.Empty() {
		r.printf("Nothing to do.\n")
		return
	}
	for _, name := range p.Names {
		r.printf("Would %s %s\n", verbLower(p.Direction), r.subject.Sprint(name))
	}
}

// summary prints the totals of a migration run.
func (r *reporter) summary(results []migrator.Result) {
	var committed, skipped, failed int
	for _, res := range results {
		switch res.Status {
		case migrator.StatusCommitted:
			committed++
		case migrator.StatusSkipped:
			skipped++
		case migrator.StatusFailed:
			failed++
		}
	}

	r.printf("%d committed, %d skipped, %d failed\n", committed, skipped, failed)
}

func (r *reporter) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(r.w, format, args...); err != nil && r.err == nil {
		r.err = fmt.Errorf("failed writing to stdout: %w", err)
	}
}

func verbLower(dir migrator.Direction) string {
	if dir == migrator.Reverse {
		return "roll back"
	}
	return "apply"
}

// failReason returns the innermost useful message of a migration failure.
func failReason(err error) string {
	var execErr *migrator.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Err.Error()
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
