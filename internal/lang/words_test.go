package lang

import "testing"

func TestWordOccurs(t *testing.T) {
	if WordOccurs("const foobar = 1;", "foo") {
		t.Error("foo must not match inside foobar")
	}
	if !WordOccurs("import { foo } from './a';", "foo") {
		t.Error("foo should match at a word boundary")
	}
	if WordOccurs("anything", "") {
		t.Error("empty needle never matches")
	}
}

func TestIndexOfWord(t *testing.T) {
	if idx := IndexOfWord("foobar foo", "foo"); idx != 7 {
		t.Errorf("IndexOfWord = %d, want 7", idx)
	}
	if idx := IndexOfWord("foo_bar", "foo"); idx != -1 {
		t.Errorf("IndexOfWord = %d, want -1", idx)
	}
}
