package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(sub, "a.ts")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Canonicalize(file, root)
	if err != nil {
		t.Fatal(err)
	}
	if got != "src/a.ts" {
		t.Errorf("Canonicalize = %q, want src/a.ts", got)
	}
}

func TestCanonicalizeNonexistentFile(t *testing.T) {
	root := t.TempDir()

	got, err := Canonicalize(filepath.Join(root, "new", "b.py"), root)
	if err != nil {
		t.Fatalf("planned-but-uncreated files must canonicalize: %v", err)
	}
	if got != "new/b.py" {
		t.Errorf("Canonicalize = %q", got)
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()

	if !IsWithinRepo(filepath.Join(root, "a.go"), root) {
		t.Error("file under root must be within repo")
	}
	if IsWithinRepo(filepath.Join(root, "..", "outside.go"), root) {
		t.Error("file above root must not be within repo")
	}
}

func TestJoinRoundTrip(t *testing.T) {
	root := t.TempDir()
	abs := Join(root, "src/deep/a.ts")

	rel, err := Canonicalize(abs, root)
	if err != nil {
		t.Fatal(err)
	}
	if rel != "src/deep/a.ts" {
		t.Errorf("round trip gave %q", rel)
	}
}

func TestFileURIRoundTrip(t *testing.T) {
	abs := "/repo/src/a.ts"
	uri := ToFileURI(abs)
	if uri != "file:///repo/src/a.ts" {
		t.Errorf("ToFileURI = %q", uri)
	}
	if back := FromFileURI(uri); back != abs {
		t.Errorf("FromFileURI = %q", back)
	}
}
