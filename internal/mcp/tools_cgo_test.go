//go:build cgo

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rfx/internal/config"
	"rfx/internal/engine"
	"rfx/internal/logging"
)

func engineServer(t *testing.T) (*MCPServer, string) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.RepoRoot = t.TempDir()
	cfg.Lsp.Enabled = false
	cfg.Logging.Level = string(logging.ErrorLevel)

	eng := engine.NewWithConfig(cfg)
	t.Cleanup(func() { eng.Close() })

	logger := logging.NewLogger(logging.Config{
		Level:  logging.ErrorLevel,
		Format: logging.JSONFormat,
		Output: &bytes.Buffer{},
	})
	return NewMCPServer("test", eng, logger), cfg.RepoRoot
}

func TestPlanPreviewApplyFlow(t *testing.T) {
	s, root := engineServer(t)

	source := "def greet():\n    return 1\n\ngreet()\n"
	if err := os.WriteFile(filepath.Join(root, "m.py"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()

	planResult, err := s.tools["refactor.plan"](ctx, map[string]interface{}{
		"kind":    "rename",
		"file":    "m.py",
		"symbol":  "greet",
		"newName": "welcome",
	})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	// Round-trip through JSON the way an MCP client would hand it back
	data, err := json.Marshal(planResult)
	if err != nil {
		t.Fatal(err)
	}
	var wire map[string]interface{}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatal(err)
	}

	preview, err := s.tools["refactor.preview"](ctx, map[string]interface{}{"plan": wire["plan"]})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	previewJSON, _ := json.Marshal(preview)
	if !strings.Contains(string(previewJSON), "welcome") {
		t.Errorf("preview diff should mention the new name: %s", previewJSON)
	}

	if _, err := s.tools["refactor.apply"](ctx, map[string]interface{}{"plan": wire["plan"]}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	after, err := os.ReadFile(filepath.Join(root, "m.py"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(after), "greet") || !strings.Contains(string(after), "welcome") {
		t.Errorf("apply left %q", after)
	}
}
