package applier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rfx/internal/config"
	"rfx/internal/edit"
	rfxerrors "rfx/internal/errors"
	"rfx/internal/lang"
	"rfx/internal/logging"
)

// applierMockAst flags parse errors on demand.
type applierMockAst struct {
	language  lang.Language
	source    []byte
	hasErrors bool
}

func (m *applierMockAst) Language() lang.Language { return m.language }
func (m *applierMockAst) Source() []byte          { return m.source }
func (m *applierMockAst) HasErrors() bool         { return m.hasErrors }

// applierMockProvider parses everything; content containing the marker
// string is reported as broken.
type applierMockProvider struct {
	language   lang.Language
	brokenWhen string
}

func (m *applierMockProvider) Language() lang.Language { return m.language }
func (m *applierMockProvider) Capabilities() []lang.Capability {
	return []lang.Capability{lang.CapParse}
}
func (m *applierMockProvider) Parse(ctx context.Context, file string, source []byte) (lang.Ast, error) {
	broken := m.brokenWhen != "" && strings.Contains(string(source), m.brokenWhen)
	return &applierMockAst{language: m.language, source: source, hasErrors: broken}, nil
}
func (m *applierMockProvider) FindReferences(ctx context.Context, ast lang.Ast, symbol string) ([]lang.Location, error) {
	return nil, lang.Unsupported(m.language, lang.CapFindReferences)
}
func (m *applierMockProvider) DefinitionSpan(ctx context.Context, file string, source []byte, symbol string) (edit.Range, error) {
	return edit.Range{}, lang.Unsupported(m.language, lang.CapFindReferences)
}
func (m *applierMockProvider) RewriteImports(ctx context.Context, file string, source []byte, old, new lang.ImportTarget) ([]edit.TextEdit, error) {
	return nil, nil
}
func (m *applierMockProvider) Rename(ctx context.Context, file string, source []byte, symbol string, pos *edit.Position, newName string) ([]edit.TextEdit, error) {
	return nil, lang.Unsupported(m.language, lang.CapRename)
}
func (m *applierMockProvider) ExtractFunction(ctx context.Context, file string, source []byte, sel edit.Range, name string) ([]edit.TextEdit, error) {
	return nil, lang.Unsupported(m.language, lang.CapExtract)
}
func (m *applierMockProvider) ValidateExtract(ctx context.Context, file string, source []byte, sel edit.Range) error {
	return nil
}
func (m *applierMockProvider) InlineVariable(ctx context.Context, file string, source []byte, symbol string) ([]edit.TextEdit, error) {
	return nil, lang.Unsupported(m.language, lang.CapInline)
}

func testApplier(t *testing.T, root string, provider lang.Provider) *Applier {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RepoRoot = root
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel, Format: logging.JSONFormat})
	reg := lang.NewRegistry()
	if provider != nil {
		reg = lang.NewRegistry(provider)
	}
	return New(cfg, logger, reg)
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

func readFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// twoFileRenamePlan edits a.ts and b.ts, checksummed against the given
// contents.
func twoFileRenamePlan(t *testing.T, aSrc, bSrc string) *edit.Plan {
	t.Helper()
	plan := edit.NewPlan(edit.NewRename("a.ts", "foo", nil, "bar"))

	if err := plan.AddFileEdits("a.ts", []edit.TextEdit{
		{File: "a.ts", Range: edit.Range{
			Start: edit.Position{Line: 0, Character: 16},
			End:   edit.Position{Line: 0, Character: 19},
		}, NewText: "bar"},
	}); err != nil {
		t.Fatal(err)
	}
	plan.SetChecksum("a.ts", edit.Checksum(aSrc))

	if err := plan.AddFileEdits("b.ts", []edit.TextEdit{
		{File: "b.ts", Range: edit.Range{
			Start: edit.Position{Line: 0, Character: 9},
			End:   edit.Position{Line: 0, Character: 12},
		}, NewText: "bar"},
	}); err != nil {
		t.Fatal(err)
	}
	plan.SetChecksum("b.ts", edit.Checksum(bSrc))

	return plan
}

const (
	aSource = "export function foo(): number {\n  return 1;\n}\n"
	bSource = "import { foo } from './a';\n"
)

func TestApplyCommitsAllFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", aSource)
	writeFile(t, root, "b.ts", bSource)

	a := testApplier(t, root, nil)
	result, err := a.Apply(context.Background(), twoFileRenamePlan(t, aSource, bSource))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if !result.Applied {
		t.Fatal("apply should succeed")
	}
	if len(result.FilesModified) != 2 || result.FilesModified[0] != "a.ts" || result.FilesModified[1] != "b.ts" {
		t.Errorf("FilesModified = %v, want lexical [a.ts b.ts]", result.FilesModified)
	}

	if got := readFile(t, root, "a.ts"); !strings.Contains(got, "function bar()") {
		t.Errorf("a.ts not rewritten:\n%s", got)
	}
	if got := readFile(t, root, "b.ts"); !strings.Contains(got, "{ bar }") {
		t.Errorf("b.ts not rewritten:\n%s", got)
	}
}

func TestApplyStaleChecksumWritesNothing(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", aSource)
	writeFile(t, root, "b.ts", bSource)

	plan := twoFileRenamePlan(t, aSource, bSource)

	// a.ts changes between planning and applying
	modified := "// edited meanwhile\n" + aSource
	writeFile(t, root, "a.ts", modified)

	a := testApplier(t, root, nil)
	result, err := a.Apply(context.Background(), plan)

	if !rfxerrors.HasCode(err, rfxerrors.StalePlan) {
		t.Errorf("expected STALE_PLAN, got %v", err)
	}
	if result.Applied {
		t.Fatal("stale plan must not apply")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].File != "a.ts" || result.Conflicts[0].Reason != edit.ConflictChecksum {
		t.Errorf("conflicts = %+v", result.Conflicts)
	}

	// Zero writes: both files untouched, including the non-stale one
	if got := readFile(t, root, "a.ts"); got != modified {
		t.Error("a.ts was written despite staleness")
	}
	if got := readFile(t, root, "b.ts"); got != bSource {
		t.Error("b.ts was written despite a conflict elsewhere in the plan")
	}
}

func TestApplyUnreadableFileIsIoFailure(t *testing.T) {
	root := t.TempDir()
	// a.ts is a directory, so reading it fails with something other than
	// not-exist. That is an environment problem, not a stale plan.
	if err := os.MkdirAll(filepath.Join(root, "a.ts"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "b.ts", bSource)

	plan := twoFileRenamePlan(t, aSource, bSource)

	a := testApplier(t, root, nil)
	result, err := a.Apply(context.Background(), plan)

	if !rfxerrors.HasCode(err, rfxerrors.IoFailure) {
		t.Errorf("expected IO_FAILURE, got %v", err)
	}
	if result.Applied {
		t.Fatal("an unreadable file must not apply")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].File != "a.ts" || result.Conflicts[0].Reason != edit.ConflictPermission {
		t.Errorf("conflicts = %+v", result.Conflicts)
	}
	if got := readFile(t, root, "b.ts"); got != bSource {
		t.Error("b.ts was written despite a conflict elsewhere in the plan")
	}
}

func TestApplyRollsBackOnMidCommitFailure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", aSource)
	writeFile(t, root, "b.ts", bSource)

	a := testApplier(t, root, nil)

	// First commit succeeds, second fails
	realCommit := a.commitFile
	calls := 0
	a.commitFile = func(absPath string, data []byte) error {
		calls++
		if calls == 2 {
			return fmt.Errorf("disk full")
		}
		return realCommit(absPath, data)
	}

	result, err := a.Apply(context.Background(), twoFileRenamePlan(t, aSource, bSource))

	if !rfxerrors.HasCode(err, rfxerrors.PartialFailure) {
		t.Errorf("expected PARTIAL_FAILURE, got %v", err)
	}
	if result.Applied {
		t.Fatal("failed apply must not report success")
	}

	// a.ts committed then rolled back; b.ts never written
	if got := readFile(t, root, "a.ts"); got != aSource {
		t.Errorf("a.ts not rolled back:\n%s", got)
	}
	if got := readFile(t, root, "b.ts"); got != bSource {
		t.Errorf("b.ts should be untouched:\n%s", got)
	}
}

func TestApplyRollbackRemovesCreatedFiles(t *testing.T) {
	root := t.TempDir()
	src := "def moved():\n    return 1\n"
	writeFile(t, root, "a.py", src)

	plan := edit.NewPlan(edit.NewMove("a.py", "moved", "b.py"))
	if err := plan.AddFileEdits("a.py", []edit.TextEdit{
		{File: "a.py", Range: edit.Range{
			Start: edit.Position{Line: 0, Character: 0},
			End:   edit.Position{Line: 2, Character: 0},
		}, NewText: ""},
	}); err != nil {
		t.Fatal(err)
	}
	plan.SetChecksum("a.py", edit.Checksum(src))

	appendAt := edit.Position{Line: 0, Character: 0}
	if err := plan.AddFileEdits("b.py", []edit.TextEdit{
		{File: "b.py", Range: edit.Range{Start: appendAt, End: appendAt}, NewText: src},
	}); err != nil {
		t.Fatal(err)
	}
	plan.SetChecksum("b.py", edit.Checksum(""))

	a := testApplier(t, root, nil)
	result, err := a.Apply(context.Background(), plan)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !result.Applied {
		t.Fatal("apply should succeed")
	}
	if readFile(t, root, "b.py") != src {
		t.Error("b.py not created with moved content")
	}

	// Second plan: c.py is created, then the d.py commit fails, so the
	// rollback has to remove the file it just created.
	writeFile(t, root, "d.py", "x = 1\n")
	plan2 := edit.NewPlan(edit.NewMove("d.py", "x", "c.py"))
	if err := plan2.AddFileEdits("c.py", []edit.TextEdit{
		{File: "c.py", Range: edit.Range{Start: appendAt, End: appendAt}, NewText: "x = 1\n"},
	}); err != nil {
		t.Fatal(err)
	}
	plan2.SetChecksum("c.py", edit.Checksum(""))
	if err := plan2.AddFileEdits("d.py", []edit.TextEdit{
		{File: "d.py", Range: edit.Range{
			Start: edit.Position{Line: 0, Character: 0},
			End:   edit.Position{Line: 1, Character: 0},
		}, NewText: ""},
	}); err != nil {
		t.Fatal(err)
	}
	plan2.SetChecksum("d.py", edit.Checksum("x = 1\n"))

	realCommit := a.commitFile
	a.commitFile = func(absPath string, data []byte) error {
		if filepath.Base(absPath) == "d.py" {
			return fmt.Errorf("disk full")
		}
		return realCommit(absPath, data)
	}

	if _, err := a.Apply(context.Background(), plan2); !rfxerrors.HasCode(err, rfxerrors.PartialFailure) {
		t.Fatalf("expected PARTIAL_FAILURE, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "c.py")); !os.IsNotExist(err) {
		t.Error("created file must be removed on rollback")
	}
	if readFile(t, root, "d.py") != "x = 1\n" {
		t.Error("d.py should be untouched")
	}
}

func TestApplyParseValidationBlocksCorruption(t *testing.T) {
	root := t.TempDir()
	src := "def f():\n    return 1\n"
	writeFile(t, root, "a.py", src)

	plan := edit.NewPlan(edit.NewDelete("a.py", "f"))
	if err := plan.AddFileEdits("a.py", []edit.TextEdit{
		{File: "a.py", Range: edit.Range{
			Start: edit.Position{Line: 0, Character: 0},
			End:   edit.Position{Line: 0, Character: 3},
		}, NewText: "BROKEN"},
	}); err != nil {
		t.Fatal(err)
	}
	plan.SetChecksum("a.py", edit.Checksum(src))

	provider := &applierMockProvider{language: lang.LangPython, brokenWhen: "BROKEN"}
	a := testApplier(t, root, provider)

	result, err := a.Apply(context.Background(), plan)
	if !rfxerrors.HasCode(err, rfxerrors.WouldCorruptFile) {
		t.Errorf("expected WOULD_CORRUPT_FILE, got %v", err)
	}
	if result.Applied {
		t.Fatal("corrupting apply must be rejected")
	}
	if readFile(t, root, "a.py") != src {
		t.Error("file must be untouched after rejection")
	}
}

func TestPreviewIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", aSource)
	writeFile(t, root, "b.ts", bSource)

	a := testApplier(t, root, nil)
	plan := twoFileRenamePlan(t, aSource, bSource)

	first, err := a.Preview(context.Background(), plan)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	second, err := a.Preview(context.Background(), plan)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	if !first.Clean() || !second.Clean() {
		t.Fatalf("previews should be clean: %+v", first.Conflicts)
	}
	if len(first.Files) != len(second.Files) {
		t.Fatal("previews differ in file count")
	}
	for i := range first.Files {
		if first.Files[i] != second.Files[i] {
			t.Errorf("preview %d differs between runs", i)
		}
	}

	// No writes happened
	if readFile(t, root, "a.ts") != aSource || readFile(t, root, "b.ts") != bSource {
		t.Error("preview must not modify the tree")
	}
}

func TestPreviewRendersUnifiedDiff(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", aSource)
	writeFile(t, root, "b.ts", bSource)

	a := testApplier(t, root, nil)
	report, err := a.Preview(context.Background(), twoFileRenamePlan(t, aSource, bSource))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	if len(report.Files) != 2 {
		t.Fatalf("expected 2 file previews, got %d", len(report.Files))
	}
	diff := report.Files[0].Diff
	if !strings.Contains(diff, "-export function foo(): number {") ||
		!strings.Contains(diff, "+export function bar(): number {") {
		t.Errorf("unexpected diff:\n%s", diff)
	}
	if !strings.Contains(diff, "a/a.ts") || !strings.Contains(diff, "b/a.ts") {
		t.Errorf("diff missing file headers:\n%s", diff)
	}
}

func TestPreviewReportsStaleness(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", aSource)
	writeFile(t, root, "b.ts", bSource)

	plan := twoFileRenamePlan(t, aSource, bSource)
	writeFile(t, root, "a.ts", "// drifted\n"+aSource)

	a := testApplier(t, root, nil)
	report, err := a.Preview(context.Background(), plan)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	if report.Clean() {
		t.Fatal("preview must surface the stale file")
	}
	if report.Conflicts[0].File != "a.ts" || report.Conflicts[0].Reason != edit.ConflictChecksum {
		t.Errorf("conflict = %+v", report.Conflicts[0])
	}
	// The non-stale file still previews
	if len(report.Files) != 1 || report.Files[0].File != "b.ts" {
		t.Errorf("files = %+v", report.Files)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newSnapshotStore()
	content := []byte(strings.Repeat("the same line over and over\n", 200))
	s.Add("a.ts", content, true)

	got, existed, ok := s.Get("a.ts")
	if !ok || !existed {
		t.Fatal("snapshot lost")
	}
	if string(got) != string(content) {
		t.Error("snapshot content mismatch after compression round trip")
	}

	if _, _, ok := s.Get("missing.ts"); ok {
		t.Error("unknown file should not resolve")
	}
}
