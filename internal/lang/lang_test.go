package lang

import "testing"

func TestLanguageFromExtension(t *testing.T) {
	cases := []struct {
		ext  string
		want Language
		ok   bool
	}{
		{".go", LangGo, true},
		{".py", LangPython, true},
		{".ts", LangTypeScript, true},
		{".tsx", LangTSX, true},
		{".jsx", LangJavaScript, true},
		{".mjs", LangJavaScript, true},
		{".rs", LangRust, true},
		{".TS", LangTypeScript, true},
		{".rb", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		got, ok := LanguageFromExtension(tc.ext)
		if ok != tc.ok || got != tc.want {
			t.Errorf("LanguageFromExtension(%q) = (%q, %v), want (%q, %v)", tc.ext, got, ok, tc.want, tc.ok)
		}
	}
}

func TestLanguageOfFile(t *testing.T) {
	if lang, ok := LanguageOfFile("src/app/main.tsx"); !ok || lang != LangTSX {
		t.Errorf("expected tsx, got %q (ok=%v)", lang, ok)
	}
	if _, ok := LanguageOfFile("Makefile"); ok {
		t.Error("Makefile should have no language")
	}
}

func TestRegistrySupports(t *testing.T) {
	reg := DefaultRegistry()

	if !reg.Supports(LangTypeScript, CapRewriteImports) {
		t.Error("typescript should support import rewriting in every build")
	}
	if reg.Supports("cobol", CapParse) {
		t.Error("unknown language should support nothing")
	}

	if _, ok := reg.ForFile("lib/util.py"); !ok {
		t.Error("expected a provider for .py files")
	}
	if _, ok := reg.ForFile("notes.txt"); ok {
		t.Error("expected no provider for .txt files")
	}
}

func TestCapabilityError(t *testing.T) {
	err := Unsupported(LangRust, CapExtract)
	if !IsUnsupported(err) {
		t.Error("Unsupported() should report as unsupported")
	}

	failed := Failed(LangGo, CapParse, errDummy{})
	if IsUnsupported(failed) {
		t.Error("Failed() should not report as unsupported")
	}
	if failed.Unwrap() == nil {
		t.Error("Failed() should carry its cause")
	}
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }
