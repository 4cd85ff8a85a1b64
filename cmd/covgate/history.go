package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oxhq/covgate/db"
	"github.com/oxhq/covgate/internal/config"
	"github.com/oxhq/covgate/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [project_dir]",
	Short: "List recorded coverage runs for a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, key, err := openStore(args)
		if err != nil {
			return err
		}

		runs, err := store.Recent(key, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No recorded runs. Use 'covgate check --save' to record one.")
			return nil
		}

		fmt.Printf("%-19s  %-6s  %8s  %8s\n", "When", "Result", "Lines", "Branches")
		for _, run := range runs {
			result := "PASS"
			if !run.Passed {
				result = "FAIL"
			}
			linePct := percent(run.LinesCovered, run.LinesTotal)
			branchPct := percent(run.BranchesCovered, run.BranchesTotal)
			fmt.Printf("%-19s  %-6s  %7.2f%%  %7.2f%%\n",
				run.CreatedAt.Format("2006-01-02 15:04:05"), result, linePct, branchPct)
		}
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff [project_dir]",
	Short: "Show the coverage difference between the last two recorded runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, key, err := openStore(args)
		if err != nil {
			return err
		}

		prev, cur, err := store.LastTwo(key)
		if errors.Is(err, history.ErrNotEnoughRuns) {
			fmt.Println("Need at least two recorded runs to diff.")
			return nil
		}
		if err != nil {
			return err
		}

		text, err := history.Diff(prev, cur)
		if err != nil {
			return err
		}
		if text == "" {
			fmt.Println("Coverage unchanged between the last two runs.")
			return nil
		}
		fmt.Print(text)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Maximum number of runs to list")
}

func openStore(args []string) (*history.Store, string, error) {
	projectDir := "."
	if len(args) > 0 {
		projectDir = args[0]
	}
	key, err := projectKey(projectDir)
	if err != nil {
		return nil, "", err
	}

	cfg := config.Load()
	// Remote DSNs are handed straight to the driver; only local files
	// get the early existence check.
	if !strings.Contains(cfg.DBPath, "://") {
		if _, statErr := os.Stat(cfg.DBPath); statErr != nil {
			return nil, "", fmt.Errorf("no coverage history at %s: %w", cfg.DBPath, statErr)
		}
	}
	conn, err := db.Connect(cfg.DBPath, cfg.Debug)
	if err != nil {
		return nil, "", err
	}
	return history.NewStore(conn), key, nil
}

func percent(covered, total int64) float64 {
	if total == 0 {
		return 100.0
	}
	return float64(covered) / float64(total) * 100.0
}
