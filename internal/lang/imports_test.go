package lang

import (
	"strings"
	"testing"

	"rfx/internal/edit"
)

func applyAll(t *testing.T, content string, edits []edit.TextEdit) string {
	t.Helper()
	out, err := edit.ApplyEdits(content, edits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return out
}

func TestRewriteEcmaImportsRename(t *testing.T) {
	src := "import { foo, baz } from './a';\n\nexport function use() {\n  return foo() + baz();\n}\n"

	edits, err := rewriteImports(LangTypeScript, []byte(src), ImportTarget{Path: "./a", Name: "foo"}, ImportTarget{Path: "./a", Name: "bar"})
	if err != nil {
		t.Fatalf("rewriteImports: %v", err)
	}
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit (import clause only), got %d", len(edits))
	}

	got := applyAll(t, src, edits)
	if !strings.Contains(got, "import { bar, baz } from './a';") {
		t.Errorf("import clause not renamed:\n%s", got)
	}
	if !strings.Contains(got, "foo() + baz()") {
		t.Error("use sites must be untouched by import rewriting")
	}
}

func TestRewriteEcmaImportsMove(t *testing.T) {
	src := "import { helper } from \"./util\";\nconst h = require('./util');\n"

	edits, err := rewriteImports(LangJavaScript, []byte(src), ImportTarget{Path: "./util"}, ImportTarget{Path: "./lib/util"})
	if err != nil {
		t.Fatalf("rewriteImports: %v", err)
	}

	got := applyAll(t, src, edits)
	if !strings.Contains(got, `from "./lib/util"`) {
		t.Errorf("double-quoted path not retargeted:\n%s", got)
	}
	if !strings.Contains(got, "require('./lib/util')") {
		t.Errorf("require path not retargeted:\n%s", got)
	}
}

func TestRewriteEcmaImportsWordBoundary(t *testing.T) {
	src := "import { foo, foobar } from './a';\n"

	edits, err := rewriteImports(LangTypeScript, []byte(src), ImportTarget{Path: "./a", Name: "foo"}, ImportTarget{Path: "./a", Name: "bar"})
	if err != nil {
		t.Fatalf("rewriteImports: %v", err)
	}

	got := applyAll(t, src, edits)
	if !strings.Contains(got, "{ bar, foobar }") {
		t.Errorf("rename must not touch foobar:\n%s", got)
	}
}

func TestRewriteEcmaImportsRemoval(t *testing.T) {
	src := "import { a, b, c } from './m';\n"

	edits, err := rewriteImports(LangTypeScript, []byte(src), ImportTarget{Path: "./m", Name: "b"}, ImportTarget{Path: "./m"})
	if err != nil {
		t.Fatalf("rewriteImports: %v", err)
	}

	got := applyAll(t, src, edits)
	if !strings.Contains(got, "{ a, c }") {
		t.Errorf("removal left a malformed clause:\n%s", got)
	}
}

func TestRewritePythonImports(t *testing.T) {
	src := "from pkg.util import helper, other\nimport pkg.util\n"

	edits, err := rewriteImports(LangPython, []byte(src), ImportTarget{Path: "pkg.util", Name: "helper"}, ImportTarget{Path: "pkg.util", Name: "assist"})
	if err != nil {
		t.Fatalf("rewriteImports: %v", err)
	}

	got := applyAll(t, src, edits)
	if !strings.Contains(got, "import assist, other") {
		t.Errorf("from-import not renamed:\n%s", got)
	}
}

func TestRewritePythonModuleMove(t *testing.T) {
	src := "from pkg.util import helper\n"

	edits, err := rewriteImports(LangPython, []byte(src), ImportTarget{Path: "pkg.util"}, ImportTarget{Path: "pkg.lib.util"})
	if err != nil {
		t.Fatalf("rewriteImports: %v", err)
	}

	got := applyAll(t, src, edits)
	if !strings.Contains(got, "from pkg.lib.util import helper") {
		t.Errorf("module path not retargeted:\n%s", got)
	}
}

func TestRewriteGoImports(t *testing.T) {
	src := "package main\n\nimport (\n\t\"fmt\"\n\t\"example.com/app/old\"\n)\n"

	edits, err := rewriteImports(LangGo, []byte(src), ImportTarget{Path: "example.com/app/old"}, ImportTarget{Path: "example.com/app/new"})
	if err != nil {
		t.Fatalf("rewriteImports: %v", err)
	}

	got := applyAll(t, src, edits)
	if !strings.Contains(got, `"example.com/app/new"`) {
		t.Errorf("import block not retargeted:\n%s", got)
	}
	if !strings.Contains(got, `"fmt"`) {
		t.Error("unrelated import must be untouched")
	}
}

func TestRewriteRustImports(t *testing.T) {
	src := "use crate::util::{helper, other};\n"

	edits, err := rewriteImports(LangRust, []byte(src), ImportTarget{Path: "crate::util", Name: "helper"}, ImportTarget{Path: "crate::util", Name: "assist"})
	if err != nil {
		t.Fatalf("rewriteImports: %v", err)
	}

	got := applyAll(t, src, edits)
	if !strings.Contains(got, "{assist, other}") {
		t.Errorf("use clause not renamed:\n%s", got)
	}
}

func TestRewriteImportsUnknownLanguage(t *testing.T) {
	_, err := rewriteImports("cobol", nil, ImportTarget{}, ImportTarget{})
	if !IsUnsupported(err) {
		t.Errorf("expected unsupported capability error, got %v", err)
	}
}

func TestModulePathOf(t *testing.T) {
	cases := []struct {
		lang     Language
		importer string
		file     string
		want     string
	}{
		{LangTypeScript, "b.ts", "a.ts", "./a"},
		{LangTypeScript, "src/b.ts", "src/a.ts", "./a"},
		{LangTypeScript, "src/app/b.ts", "lib/a.ts", "../../lib/a"},
		{LangPython, "b.py", "pkg/util.py", "pkg.util"},
	}

	for _, tc := range cases {
		got, err := ModulePathOf(tc.lang, tc.importer, tc.file)
		if err != nil {
			t.Fatalf("ModulePathOf(%s, %s, %s): %v", tc.lang, tc.importer, tc.file, err)
		}
		if got != tc.want {
			t.Errorf("ModulePathOf(%s, %s, %s) = %q, want %q", tc.lang, tc.importer, tc.file, got, tc.want)
		}
	}
}
