package main

import (
	"os"
	"path/filepath"

	"rfx/internal/engine"
	"rfx/internal/version"

	"github.com/spf13/cobra"
)

var (
	// repoFlag is the CLI --repo flag value
	repoFlag string
)

var rootCmd = &cobra.Command{
	Use:   "rfx",
	Short: "RFX - refactoring engine",
	Long: `RFX is a language-agnostic refactoring engine: it plans multi-file edits
through language servers with a tree-sitter fallback, expands renames and moves
across references and imports, and applies the result transactionally.`,
	Version: version.Info(),
}

func init() {
	rootCmd.SetVersionTemplate("RFX version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "",
		"Repository root (default: current directory)")
}

// resolveRepoRoot determines the repository root from the --repo flag or the
// working directory.
func resolveRepoRoot() (string, error) {
	if repoFlag != "" {
		return filepath.Abs(repoFlag)
	}
	return os.Getwd()
}

// newEngine builds an engine for the resolved repository root.
func newEngine() (*engine.Engine, error) {
	repoRoot, err := resolveRepoRoot()
	if err != nil {
		return nil, err
	}
	return engine.New(repoRoot)
}
