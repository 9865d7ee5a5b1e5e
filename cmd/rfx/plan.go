package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"rfx/internal/edit"
	"rfx/internal/errors"

	"github.com/spf13/cobra"
)

var (
	planFile        string
	planSymbol      string
	planNewName     string
	planLine        int
	planColumn      int
	planStartLine   int
	planStartColumn int
	planEndLine     int
	planEndColumn   int
	planDestination string
	planOut         string
	planStdout      bool
)

var planCmd = &cobra.Command{
	Use:   "plan <rename|extract-function|extract-variable|inline-variable|move|delete>",
	Short: "Compute an edit plan for a refactoring",
	Long: `Computes a multi-file edit plan for one refactoring intent without touching
the workspace. The plan records a checksum of every file it was computed
against; preview and apply refuse to act once a file drifts.

Lines and columns are 1-indexed. Selection ranges are half-open: the end
position is the first position after the selection.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planFile, "file", "", "Repo-relative path of the primary target file")
	planCmd.Flags().StringVar(&planSymbol, "symbol", "", "Symbol name (rename, inline, move, delete)")
	planCmd.Flags().StringVar(&planNewName, "new-name", "", "Replacement name, or the extracted function/variable name")
	planCmd.Flags().IntVar(&planLine, "line", 0, "1-indexed line of the symbol occurrence")
	planCmd.Flags().IntVar(&planColumn, "column", 1, "1-indexed column of the symbol occurrence")
	planCmd.Flags().IntVar(&planStartLine, "start-line", 0, "1-indexed first line of the selection")
	planCmd.Flags().IntVar(&planStartColumn, "start-column", 1, "1-indexed start column of the selection")
	planCmd.Flags().IntVar(&planEndLine, "end-line", 0, "1-indexed end line of the selection (exclusive position)")
	planCmd.Flags().IntVar(&planEndColumn, "end-column", 1, "1-indexed end column of the selection, exclusive")
	planCmd.Flags().StringVar(&planDestination, "dest", "", "Destination file (move)")
	planCmd.Flags().StringVar(&planOut, "out", "", "Plan file to write (default: .rfx/plan.json under the repo root)")
	planCmd.Flags().BoolVar(&planStdout, "stdout", false, "Print the plan as JSON instead of writing a plan file")

	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	intent, err := intentFromFlags(args[0])
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.Plan(context.Background(), intent)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	if planStdout {
		fmt.Println(string(data))
		return nil
	}

	out := planOut
	if out == "" {
		out = filepath.Join(eng.Config().RepoRoot, ".rfx", "plan.json")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return err
	}

	fmt.Printf("Planned %s via %s: %d file(s)\n", intent.Describe(), result.Source, len(result.Plan.Files()))
	for _, file := range result.Plan.FilesSorted() {
		fmt.Printf("  %s (%d edits)\n", file, len(result.Plan.Edits(file)))
	}
	if len(result.AffectedFiles) > 0 {
		fmt.Printf("Reference expansion pulled in %d file(s)\n", len(result.AffectedFiles))
	}
	fmt.Printf("Plan written to %s\n", out)
	return nil
}

func intentFromFlags(kind string) (edit.Intent, error) {
	var pos *edit.Position
	if planLine > 0 {
		pos = &edit.Position{Line: planLine - 1, Character: planColumn - 1}
	}

	switch edit.IntentKind(kind) {
	case edit.IntentRename:
		return edit.NewRename(planFile, planSymbol, pos, planNewName), nil
	case edit.IntentExtractFunction, edit.IntentExtractVariable:
		if planStartLine < 1 || planEndLine < 1 {
			return edit.Intent{}, errors.New(errors.InvalidRange,
				"--start-line and --end-line are required for extract intents")
		}
		rng := edit.Range{
			Start: edit.Position{Line: planStartLine - 1, Character: planStartColumn - 1},
			End:   edit.Position{Line: planEndLine - 1, Character: planEndColumn - 1},
		}
		if edit.IntentKind(kind) == edit.IntentExtractFunction {
			return edit.NewExtractFunction(planFile, rng, planNewName), nil
		}
		return edit.NewExtractVariable(planFile, rng, planNewName), nil
	case edit.IntentInlineVariable:
		return edit.NewInlineVariable(planFile, planSymbol, pos), nil
	case edit.IntentMove:
		return edit.NewMove(planFile, planSymbol, planDestination), nil
	case edit.IntentDelete:
		return edit.NewDelete(planFile, planSymbol), nil
	default:
		return edit.Intent{}, fmt.Errorf("unknown refactoring kind %q", kind)
	}
}
