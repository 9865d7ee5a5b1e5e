package updater

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rfx/internal/config"
	"rfx/internal/edit"
	"rfx/internal/lang"
	"rfx/internal/logging"
)

// updaterMockProvider scripts ripple edits per file.
type updaterMockProvider struct {
	language    lang.Language
	caps        []lang.Capability
	renameEdits map[string][]edit.TextEdit
	importEdits map[string][]edit.TextEdit
}

func (m *updaterMockProvider) Language() lang.Language         { return m.language }
func (m *updaterMockProvider) Capabilities() []lang.Capability { return m.caps }
func (m *updaterMockProvider) Parse(ctx context.Context, file string, source []byte) (lang.Ast, error) {
	return nil, lang.Unsupported(m.language, lang.CapParse)
}
func (m *updaterMockProvider) FindReferences(ctx context.Context, ast lang.Ast, symbol string) ([]lang.Location, error) {
	return nil, lang.Unsupported(m.language, lang.CapFindReferences)
}
func (m *updaterMockProvider) DefinitionSpan(ctx context.Context, file string, source []byte, symbol string) (edit.Range, error) {
	return edit.Range{}, lang.Unsupported(m.language, lang.CapFindReferences)
}
func (m *updaterMockProvider) RewriteImports(ctx context.Context, file string, source []byte, old, new lang.ImportTarget) ([]edit.TextEdit, error) {
	return m.importEdits[file], nil
}
func (m *updaterMockProvider) Rename(ctx context.Context, file string, source []byte, symbol string, pos *edit.Position, newName string) ([]edit.TextEdit, error) {
	if edits, ok := m.renameEdits[file]; ok {
		return edits, nil
	}
	return nil, lang.Failed(m.language, lang.CapRename, os.ErrNotExist)
}
func (m *updaterMockProvider) ExtractFunction(ctx context.Context, file string, source []byte, sel edit.Range, name string) ([]edit.TextEdit, error) {
	return nil, lang.Unsupported(m.language, lang.CapExtract)
}
func (m *updaterMockProvider) ValidateExtract(ctx context.Context, file string, source []byte, sel edit.Range) error {
	return nil
}
func (m *updaterMockProvider) InlineVariable(ctx context.Context, file string, source []byte, symbol string) ([]edit.TextEdit, error) {
	return nil, lang.Unsupported(m.language, lang.CapInline)
}

func testUpdater(t *testing.T, root string, provider lang.Provider) *Updater {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RepoRoot = root
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel, Format: logging.JSONFormat})
	return New(cfg, logger, lang.NewRegistry(provider))
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func renamePlan(t *testing.T, file, src string) *edit.Plan {
	t.Helper()
	plan := edit.NewPlan(edit.NewRename(file, "foo", nil, "bar"))
	err := plan.AddFileEdits(file, []edit.TextEdit{
		{File: file, Range: edit.Range{
			Start: edit.Position{Line: 0, Character: 16},
			End:   edit.Position{Line: 0, Character: 19},
		}, NewText: "bar"},
	})
	if err != nil {
		t.Fatal(err)
	}
	plan.SetChecksum(file, edit.Checksum(src))
	return plan
}

func TestExpandPassesThroughLocalIntents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    x = 1\n")

	u := testUpdater(t, root, &updaterMockProvider{language: lang.LangPython})

	plan := edit.NewPlan(edit.NewExtractFunction("a.py", edit.Range{
		Start: edit.Position{Line: 1, Character: 0},
		End:   edit.Position{Line: 2, Character: 0},
	}, "helper"))

	expanded, affected, err := u.Expand(context.Background(), plan)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if expanded != plan {
		t.Error("extract must pass through unexpanded")
	}
	if affected.Len() != 0 {
		t.Errorf("extract affects no other files, got %d", affected.Len())
	}
}

func TestExpandRenameRipplesIntoReferencingFiles(t *testing.T) {
	root := t.TempDir()
	aSrc := "export function foo(): number {\n  return 1;\n}\n"
	bSrc := "import { foo } from './a';\nexport const x = foo();\n"
	writeFile(t, root, "a.ts", aSrc)
	writeFile(t, root, "b.ts", bSrc)
	writeFile(t, root, "c.ts", "export const unrelated = 1;\n")

	provider := &updaterMockProvider{
		language: lang.LangTypeScript,
		caps:     []lang.Capability{lang.CapRename, lang.CapRewriteImports},
		renameEdits: map[string][]edit.TextEdit{
			"b.ts": {
				{File: "b.ts", Range: edit.Range{
					Start: edit.Position{Line: 0, Character: 9},
					End:   edit.Position{Line: 0, Character: 12},
				}, NewText: "bar"},
				{File: "b.ts", Range: edit.Range{
					Start: edit.Position{Line: 1, Character: 17},
					End:   edit.Position{Line: 1, Character: 20},
				}, NewText: "bar"},
			},
		},
	}
	u := testUpdater(t, root, provider)

	expanded, affected, err := u.Expand(context.Background(), renamePlan(t, "a.ts", aSrc))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	if affected.Len() != 1 || affected.Files()[0] != "b.ts" {
		t.Fatalf("affected = %v, want [b.ts]", affected.Files())
	}

	files := expanded.Files()
	if len(files) != 2 {
		t.Fatalf("expanded plan files = %v", files)
	}
	if len(expanded.Edits("b.ts")) != 2 {
		t.Errorf("b.ts should carry the import edit and the use edit")
	}
	if expanded.Checksums["b.ts"] != edit.Checksum(bSrc) {
		t.Error("ripple file must be checksummed against scanned content")
	}

	// c.ts never mentions foo: the prefilter must keep it out
	for _, f := range files {
		if f == "c.ts" {
			t.Error("unaffected file leaked into the plan")
		}
	}
}

func TestExpandSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	aSrc := "export function foo(): number {\n  return 1;\n}\n"
	writeFile(t, root, "a.ts", aSrc)
	writeFile(t, root, "node_modules/dep/index.ts", "export const foo = 1;\n")

	provider := &updaterMockProvider{
		language: lang.LangTypeScript,
		caps:     []lang.Capability{lang.CapRename},
		renameEdits: map[string][]edit.TextEdit{
			"node_modules/dep/index.ts": {
				{Range: edit.Range{
					Start: edit.Position{Line: 0, Character: 13},
					End:   edit.Position{Line: 0, Character: 16},
				}, NewText: "bar"},
			},
		},
	}
	u := testUpdater(t, root, provider)

	_, affected, err := u.Expand(context.Background(), renamePlan(t, "a.ts", aSrc))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if affected.Len() != 0 {
		t.Errorf("ignored directories must not ripple: %v", affected.Files())
	}
}

func TestExpandOrdersAffectedFilesLexically(t *testing.T) {
	root := t.TempDir()
	aSrc := "export function foo(): number {\n  return 1;\n}\n"
	writeFile(t, root, "z.ts", aSrc)
	writeFile(t, root, "m.ts", "import { foo } from './z';\nfoo();\n")
	writeFile(t, root, "b.ts", "import { foo } from './z';\nfoo();\n")

	mkEdit := func() []edit.TextEdit {
		return []edit.TextEdit{
			{Range: edit.Range{
				Start: edit.Position{Line: 0, Character: 9},
				End:   edit.Position{Line: 0, Character: 12},
			}, NewText: "bar"},
		}
	}
	provider := &updaterMockProvider{
		language: lang.LangTypeScript,
		caps:     []lang.Capability{lang.CapRename},
		renameEdits: map[string][]edit.TextEdit{
			"m.ts": mkEdit(),
			"b.ts": mkEdit(),
		},
	}
	u := testUpdater(t, root, provider)

	_, affected, err := u.Expand(context.Background(), renamePlan(t, "z.ts", aSrc))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	files := affected.Files()
	if len(files) != 2 || files[0] != "b.ts" || files[1] != "m.ts" {
		t.Errorf("affected order = %v, want [b.ts m.ts]", files)
	}
}

func TestImportBase(t *testing.T) {
	if importBase("src/module.py") != "module" {
		t.Errorf("importBase = %q", importBase("src/module.py"))
	}
	if importBase("a.ts") != "a" {
		t.Errorf("importBase = %q", importBase("a.ts"))
	}
}
