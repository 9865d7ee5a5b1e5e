package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var applyPlanPath string

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a plan transactionally",
	Long: `Validates and commits a plan: every file is checked against the checksum
recorded at planning time, edits are applied in memory, and only then are
files written, in lexical order with atomic per-file replaces. Either every
file in the plan is committed or none are.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applyPlanPath, "plan", "", "Plan file (default: .rfx/plan.json under the repo root)")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	plan, err := loadPlan(eng.Config().RepoRoot, applyPlanPath)
	if err != nil {
		return err
	}

	result, err := eng.Apply(context.Background(), plan)
	if err != nil {
		return err
	}

	if !result.Applied {
		fmt.Printf("Nothing applied; %d conflict(s):\n", len(result.Conflicts))
		for _, c := range result.Conflicts {
			fmt.Printf("  %s: %s\n", c.File, c.Reason)
		}
		return fmt.Errorf("plan is stale; re-run 'rfx plan'")
	}

	fmt.Printf("Applied %d file(s):\n", len(result.FilesModified))
	for _, file := range result.FilesModified {
		fmt.Printf("  %s\n", file)
	}
	return nil
}
