package lang

import "strings"

// IndexOfWord finds name in s at a word boundary, so renaming `foo` never
// touches `foobar`.
func IndexOfWord(s, name string) int {
	from := 0
	for {
		idx := strings.Index(s[from:], name)
		if idx < 0 {
			return -1
		}
		idx += from
		if isWordBoundary(s, idx, len(name)) {
			return idx
		}
		from = idx + len(name)
	}
}

// WordOccurs reports whether name occurs in text at a word boundary.
func WordOccurs(text, name string) bool {
	if name == "" {
		return false
	}
	return IndexOfWord(text, name) >= 0
}

func isWordBoundary(s string, idx, length int) bool {
	if idx > 0 && isIdentByte(s[idx-1]) {
		return false
	}
	end := idx + length
	if end < len(s) && isIdentByte(s[end]) {
		return false
	}
	return true
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
