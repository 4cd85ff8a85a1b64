// Package report renders parsed coverage and verdicts for humans and
// maps verdicts to process exit codes. It is the only core package that
// writes to an output stream.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/oxhq/covgate/internal/model"
)

// Process exit codes. A threshold failure is a normal, successfully
// computed outcome and is kept distinct from "could not evaluate".
const (
	ExitOK        = 0
	ExitThreshold = 1
	ExitError     = 2
)

// WriteReport writes the coverage table: the external tool's own text
// when the report carries it, otherwise the minimal in-house rendering.
func WriteReport(w io.Writer, rep *model.CoverageReport) {
	if rep.Raw != "" {
		fmt.Fprint(w, rep.Raw)
		if !strings.HasSuffix(rep.Raw, "\n") {
			fmt.Fprintln(w)
		}
		return
	}
	fmt.Fprint(w, RenderTable(rep))
}

// RenderTable produces a compact line/branch table from a parsed
// report. It is also used to render recorded runs, where the original
// tool output is no longer available.
func RenderTable(rep *model.CoverageReport) string {
	nameWidth := len("Unit")
	for _, u := range rep.Units {
		if len(u.Name) > nameWidth {
			nameWidth = len(u.Name)
		}
	}
	if rep.Total != nil && len(rep.Total.Name) > nameWidth {
		nameWidth = len(rep.Total.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %12s  %8s  %12s  %8s\n", nameWidth, "Unit", "Lines", "Cover", "Branches", "Cover")
	for _, u := range rep.Units {
		writeRow(&b, nameWidth, u)
	}
	if rep.Total != nil {
		writeRow(&b, nameWidth, *rep.Total)
	}
	return b.String()
}

func writeRow(b *strings.Builder, nameWidth int, u model.CoverageUnit) {
	fmt.Fprintf(b, "%-*s  %12s  %7.2f%%  %12s  %7.2f%%\n",
		nameWidth, u.Name,
		u.Lines.String(), u.Lines.Percent(),
		u.Branches.String(), u.Branches.Percent())
}

// WriteVerdict writes one line per failing metric, or a success line.
// Shortfalls are given in percentage points with the missed count for
// context.
func WriteVerdict(w io.Writer, v model.Verdict) {
	if v.Pass {
		fmt.Fprintln(w, "SUCCESS - all coverage requirements met")
		return
	}
	for _, f := range v.Failures {
		fmt.Fprintf(w, "%s coverage %.2f%% < required %.2f%% (short by %.2f points, %d uncovered)\n",
			f.Metric, f.Actual, f.Required, f.Shortfall, f.Missed)
	}
}

// ExitCode maps a verdict to the process exit status.
func ExitCode(v model.Verdict) int {
	if v.Pass {
		return ExitOK
	}
	return ExitThreshold
}
