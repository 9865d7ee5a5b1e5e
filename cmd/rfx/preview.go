package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var previewPlanPath string

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what a plan would change, without writing",
	Long: `Validates a plan against the current workspace and prints a unified diff
per file. Preview never writes; running it twice yields the same report.
Files that changed since planning are reported as conflicts.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewPlanPath, "plan", "", "Plan file (default: .rfx/plan.json under the repo root)")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	plan, err := loadPlan(eng.Config().RepoRoot, previewPlanPath)
	if err != nil {
		return err
	}

	report, err := eng.Preview(context.Background(), plan)
	if err != nil {
		return err
	}

	for _, fp := range report.Files {
		fmt.Print(fp.Diff)
	}

	if !report.Clean() {
		fmt.Printf("\n%d conflict(s):\n", len(report.Conflicts))
		for _, c := range report.Conflicts {
			fmt.Printf("  %s: %s\n", c.File, c.Reason)
		}
		return fmt.Errorf("plan is stale; re-run 'rfx plan'")
	}

	fmt.Printf("\n%d file(s) would change. Run 'rfx apply' to commit.\n", len(report.Files))
	return nil
}
