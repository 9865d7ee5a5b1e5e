package main

import (
	"fmt"
	"os"
	"path/filepath"

	"rfx/internal/config"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize RFX configuration",
	Long:  "Creates a .rfx/ directory with default configuration in the repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repoRoot, err := resolveRepoRoot()
	if err != nil {
		return err
	}

	configPath := filepath.Join(repoRoot, ".rfx", "config.json")
	if _, statErr := os.Stat(configPath); statErr == nil && !initForce {
		// Idempotent: already initialized is success
		fmt.Println("RFX already initialized.")
		fmt.Printf("Configuration at: %s\n", configPath)
		fmt.Println("\nRun 'rfx init --force' to overwrite.")
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.RepoRoot = "."
	if err := cfg.Save(repoRoot); err != nil {
		return err
	}

	fmt.Printf("Initialized RFX configuration at %s\n", configPath)
	return nil
}
