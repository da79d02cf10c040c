// Package `report` presents the outcome of a run: a plain text summary for
// logs and mail, a styled summary for terminals, and Prometheus metrics.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/bu-isciii/tierarch/backend/internal/orchestrator"
	"github.com/shopspring/decimal"
)

const GiB = 1024 * 1024 * 1024

// `FormatGiB()` renders `n` bytes as GiB with two decimals, rounding half
// away from zero.
func FormatGiB(n int64) string {
	d := decimal.NewFromInt(n).Div(decimal.NewFromInt(GiB))
	return d.StringFixed(2) + " GiB"
}

func countServices(rep *orchestrator.Report) int {
	seen := make(map[string]bool)
	for _, e := range rep.Entries {
		seen[e.Service] = true
	}
	return len(seen)
}

// `WriteText()` writes a fixed-width summary with counts per stage and
// outcome, followed by the failed and user-skipped services per stage.
func WriteText(w io.Writer, rep *orchestrator.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "tierarch %s %s: %d services\n\n",
		rep.Direction, rep.Op, countServices(rep),
	)

	fmt.Fprintf(&b, "%-14s", "stage")
	for _, o := range orchestrator.Outcomes {
		fmt.Fprintf(&b, "%*s", len(o.String())+2, o.String())
	}
	b.WriteString("\n")
	for _, s := range orchestrator.Stages {
		fmt.Fprintf(&b, "%-14s", s)
		for _, o := range orchestrator.Outcomes {
			fmt.Fprintf(&b, "%*d", len(o.String())+2, rep.Count(s, o))
		}
		b.WriteString("\n")
	}

	for _, sec := range []struct {
		title   string
		outcome orchestrator.Outcome
	}{
		{"failed", orchestrator.Failed},
		{"skipped by user choice", orchestrator.SkippedByUserChoice},
	} {
		if !rep.Has(sec.outcome) {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", sec.title)
		for _, s := range orchestrator.Stages {
			ids := rep.Services(s, sec.outcome)
			if len(ids) == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %s: %s\n", s, strings.Join(ids, " "))
		}
	}

	fmt.Fprintf(&b, "\nbytes saved by compression: %s\n",
		FormatGiB(rep.BytesSaved),
	)
	if rep.Aborted {
		b.WriteString("run aborted by user\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
