//go:build cgo

package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rfx/internal/edit"
	"rfx/internal/planner"
)

func TestRenameRippleEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	eng := NewWithConfig(cfg)
	defer eng.Close()

	root := cfg.RepoRoot
	aSource := "export function foo() {\n  return 1;\n}\n"
	bSource := "import { foo } from './a';\n\nfoo();\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.ts"), []byte(aSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.ts"), []byte(bSource), 0o644))

	ctx := context.Background()
	result, err := eng.Plan(ctx, edit.NewRename("a.ts", "foo", nil, "bar"))
	require.NoError(t, err)
	require.Equal(t, planner.SourceAST, result.Source)
	require.ElementsMatch(t, []string{"a.ts", "b.ts"}, result.Plan.FilesSorted())
	require.Equal(t, []string{"b.ts"}, result.AffectedFiles)

	report, err := eng.Preview(ctx, result.Plan)
	require.NoError(t, err)
	require.True(t, report.Clean())
	require.Len(t, report.Files, 2)

	applied, err := eng.Apply(ctx, result.Plan)
	require.NoError(t, err)
	require.True(t, applied.Applied)
	require.Equal(t, []string{"a.ts", "b.ts"}, applied.FilesModified)

	a, err := os.ReadFile(filepath.Join(root, "a.ts"))
	require.NoError(t, err)
	require.Contains(t, string(a), "function bar()")
	require.NotContains(t, string(a), "foo")

	b, err := os.ReadFile(filepath.Join(root, "b.ts"))
	require.NoError(t, err)
	require.Contains(t, string(b), "import { bar }")
	require.Contains(t, string(b), "bar();")
}

func TestApplyRefusesStalePlan(t *testing.T) {
	cfg := testConfig(t)
	eng := NewWithConfig(cfg)
	defer eng.Close()

	root := cfg.RepoRoot
	source := "def value():\n    return 1\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "m.py"), []byte(source), 0o644))

	ctx := context.Background()
	result, err := eng.Plan(ctx, edit.NewRename("m.py", "value", nil, "amount"))
	require.NoError(t, err)

	// Someone edits the file between plan and apply
	drifted := "def value():\n    return 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "m.py"), []byte(drifted), 0o644))

	applied, err := eng.Apply(ctx, result.Plan)
	require.Error(t, err)
	require.False(t, applied.Applied)
	require.Len(t, applied.Conflicts, 1)
	require.Equal(t, edit.ConflictChecksum, applied.Conflicts[0].Reason)

	after, err := os.ReadFile(filepath.Join(root, "m.py"))
	require.NoError(t, err)
	require.Equal(t, drifted, string(after), "a stale plan must write nothing")
}
