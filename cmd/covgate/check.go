package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oxhq/covgate/db"
	"github.com/oxhq/covgate/internal/config"
	"github.com/oxhq/covgate/internal/evaluator"
	"github.com/oxhq/covgate/internal/history"
	"github.com/oxhq/covgate/internal/invoke"
	"github.com/oxhq/covgate/internal/model"
	"github.com/oxhq/covgate/internal/parser"
	"github.com/oxhq/covgate/internal/report"
)

var (
	reportFile string
	saveRun    bool
)

var checkCmd = &cobra.Command{
	Use:   "check [project_dir]",
	Short: "Run the instrumented test suite and check coverage thresholds",
	Long: `Runs the project's tests with coverage instrumentation, merges the
raw profiles, generates the coverage summary report and checks overall
line and branch coverage against the configured minimums. With
--report-file a pre-captured report is checked instead of invoking the
toolchain.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectDir := "."
		if len(args) > 0 {
			projectDir = args[0]
		}
		return runCheck(cmd, projectDir)
	},
}

func init() {
	checkCmd.Flags().Float64("min-line-coverage", 1.0, "Minimum line coverage ratio, 0.0 to 1.0")
	checkCmd.Flags().Float64("min-branch-coverage", 1.0, "Minimum branch coverage ratio, 0.0 to 1.0")
	checkCmd.Flags().StringVar(&reportFile, "report-file", "", "Check a captured coverage report instead of running the toolchain")
	checkCmd.Flags().BoolVar(&saveRun, "save", false, "Record this run in the coverage history database")
}

func runCheck(cmd *cobra.Command, projectDir string) error {
	// Thresholds are validated before any toolchain or parsing work.
	thresholds, err := config.ThresholdsFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	text, err := reportText(cmd, projectDir)
	if err != nil {
		return err
	}

	rep, err := parser.Parse(text)
	if err != nil {
		return err
	}

	line, branch := rep.Overall()
	verdict := evaluator.Evaluate(line, branch, thresholds)

	report.WriteReport(os.Stdout, rep)
	if verdict.Pass {
		report.WriteVerdict(os.Stdout, verdict)
	} else {
		report.WriteVerdict(os.Stderr, verdict)
	}

	if saveRun {
		if err := record(projectDir, rep, verdict); err != nil {
			return err
		}
	}

	if !verdict.Pass {
		return errThresholdNotMet
	}
	return nil
}

// reportText obtains the raw coverage summary, either from a captured
// file or by driving the toolchain end to end.
func reportText(cmd *cobra.Command, projectDir string) (string, error) {
	if reportFile != "" {
		data, err := os.ReadFile(reportFile)
		if err != nil {
			return "", fmt.Errorf("reading report file: %w", err)
		}
		return string(data), nil
	}

	ctx := cmd.Context()
	if err := invoke.RunTests(ctx, projectDir); err != nil {
		return "", err
	}
	if err := invoke.MergeProfile(ctx, projectDir); err != nil {
		return "", err
	}
	objects, err := invoke.TestBinaries(ctx, projectDir)
	if err != nil {
		return "", err
	}
	return invoke.Report(ctx, projectDir, objects)
}

func record(projectDir string, rep *model.CoverageReport, verdict model.Verdict) error {
	cfg := config.Load()

	conn, err := db.Connect(cfg.DBPath, cfg.Debug)
	if err != nil {
		return err
	}

	key, err := projectKey(projectDir)
	if err != nil {
		return err
	}

	store := history.NewStore(conn)
	if _, err := store.Save(key, rep, verdict); err != nil {
		return err
	}
	return db.Prune(conn, key, cfg.RetentionRuns)
}

// projectKey normalizes the project directory so history lookups are
// stable regardless of how the path was spelled.
func projectKey(projectDir string) (string, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("resolving project dir: %w", err)
	}
	return abs, nil
}
