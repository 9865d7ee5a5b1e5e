// Package lang implements the per-language capability provider: AST parsing,
// reference finding, import rewriting, and the AST-based refactoring
// fallbacks the planner uses when no language server can answer.
package lang

import (
	"path/filepath"
	"strings"
)

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// LanguageFromExtension maps a file extension (with leading dot) to a
// language identifier.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".go":
		return LangGo, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py":
		return LangPython, true
	case ".rs":
		return LangRust, true
	default:
		return "", false
	}
}

// LanguageOfFile detects the language of a file from its path.
func LanguageOfFile(path string) (Language, bool) {
	return LanguageFromExtension(filepath.Ext(path))
}

// Extensions returns the file extensions associated with a language.
func Extensions(lang Language) []string {
	switch lang {
	case LangGo:
		return []string{".go"}
	case LangJavaScript:
		return []string{".js", ".jsx", ".mjs", ".cjs"}
	case LangTypeScript:
		return []string{".ts", ".mts", ".cts"}
	case LangTSX:
		return []string{".tsx"}
	case LangPython:
		return []string{".py"}
	case LangRust:
		return []string{".rs"}
	default:
		return nil
	}
}

// Capability identifies one operation a provider may support.
type Capability string

const (
	CapParse          Capability = "parse"
	CapFindReferences Capability = "find-references"
	CapRewriteImports Capability = "rewrite-imports"
	CapRename         Capability = "rename"
	CapExtract        Capability = "extract"
	CapInline         Capability = "inline"
)
