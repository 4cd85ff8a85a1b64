// covgate gates a project's test coverage: it drives the instrumented
// test run, parses the coverage tool's summary report and fails the
// process when line or branch coverage falls below the configured
// minimums.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oxhq/covgate/internal/report"
)

// errThresholdNotMet marks the normal "ran and failed the check"
// outcome so main can map it to its own exit status, distinct from
// errors that prevented evaluation altogether.
var errThresholdNotMet = errors.New("coverage requirements not met")

var rootCmd = &cobra.Command{
	Use:           "covgate",
	Short:         "Test coverage gate for CI pipelines",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(diffCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor distinguishes a failed check (the gate did its job) from
// inputs that could not be evaluated at all.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return report.ExitOK
	case errors.Is(err, errThresholdNotMet):
		return report.ExitThreshold
	default:
		return report.ExitError
	}
}
