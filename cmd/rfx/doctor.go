package main

import (
	"fmt"
	"os/exec"
	"sort"

	"rfx/internal/lang"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose RFX configuration and planning capabilities",
	Long: `Checks the configuration, reports which LSP servers are reachable on PATH,
and whether the tree-sitter fallback is available in this build.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	cfg := eng.Config()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Configuration: INVALID (%v)\n", err)
		return err
	}
	fmt.Printf("Configuration: ok (repo root %s)\n", cfg.RepoRoot)

	if lang.TreeSitterAvailable {
		fmt.Println("AST fallback: available")
	} else {
		fmt.Println("AST fallback: NOT available (built without cgo); only import rewriting works without LSP")
	}

	fmt.Printf("LSP planning: %v\n", cfg.Lsp.Enabled)

	languages := make([]string, 0, len(cfg.Lsp.Servers))
	for language := range cfg.Lsp.Servers {
		languages = append(languages, language)
	}
	sort.Strings(languages)

	for _, language := range languages {
		server := cfg.Lsp.Servers[language]
		if _, err := exec.LookPath(server.Command); err != nil {
			fmt.Printf("  %-12s %s: NOT FOUND on PATH\n", language, server.Command)
			continue
		}
		fmt.Printf("  %-12s %s: ok\n", language, server.Command)
	}

	if stats := eng.LspStats(); stats != nil {
		for language, stat := range stats {
			fmt.Printf("  running %s: %v\n", language, stat)
		}
	}

	return nil
}
