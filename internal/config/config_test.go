package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if !cfg.Lsp.Enabled {
		t.Error("LSP planning defaults on")
	}
	if cfg.Planner.LspRetries != 1 {
		t.Errorf("LspRetries = %d, want 1", cfg.Planner.LspRetries)
	}
	if !cfg.Applier.ValidateParse {
		t.Error("parse validation defaults on")
	}
	for _, language := range []string{"typescript", "python", "go", "rust"} {
		if _, ok := cfg.Lsp.Servers[language]; !ok {
			t.Errorf("missing default server for %s", language)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	root := t.TempDir()

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("missing config must yield defaults: %v", err)
	}
	if cfg.RepoRoot != root {
		t.Errorf("RepoRoot = %q, want %q", cfg.RepoRoot, root)
	}
	if cfg.Scan.MaxFilesScanned != 5000 {
		t.Errorf("defaults not applied: %+v", cfg.Scan)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".rfx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{"lsp": {"enabled": false, "requestTimeoutMs": 500}, "scan": {"parallelism": 2}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Lsp.Enabled {
		t.Error("file must override lsp.enabled")
	}
	if cfg.Lsp.RequestTimeoutMs != 500 {
		t.Errorf("requestTimeoutMs = %d", cfg.Lsp.RequestTimeoutMs)
	}
	if cfg.Scan.Parallelism != 2 {
		t.Errorf("parallelism = %d", cfg.Scan.Parallelism)
	}
	// Untouched sections keep their defaults
	if cfg.Scan.MaxFileSizeBytes != 1000000 {
		t.Errorf("maxFileSizeBytes = %d", cfg.Scan.MaxFileSizeBytes)
	}
	if cfg.RepoRoot != root {
		t.Error("repo root always comes from the caller")
	}
}

func TestSaveThenLoad(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Lsp.MaxTotalProcesses = 2
	if err := cfg.Save(root); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Lsp.MaxTotalProcesses != 2 {
		t.Errorf("MaxTotalProcesses = %d after round trip", loaded.Lsp.MaxTotalProcesses)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Version = 9
	if cfg.Validate() == nil {
		t.Error("unknown version must fail validation")
	}

	cfg = DefaultConfig()
	cfg.Lsp.RequestTimeoutMs = -1
	if cfg.Validate() == nil {
		t.Error("negative timeout must fail validation")
	}
}
