package lang

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"rfx/internal/edit"
)

// rewriteImports computes import-statement edits for one file without a full
// parse. Import syntax is line-oriented in every supported language, so a
// line scan is sufficient and works identically in cgo and non-cgo builds.
//
// Semantics of the (old, new) pair:
//   - old.Path != new.Path        -> retarget the module path (move)
//   - old.Name != "" && new.Name != "" -> rename the imported symbol
//   - old.Name != "" && new.Name == "" -> drop the symbol from the clause (delete)
func rewriteImports(lang Language, source []byte, old, new ImportTarget) ([]edit.TextEdit, error) {
	switch lang {
	case LangTypeScript, LangTSX, LangJavaScript:
		return rewriteEcmaImports(string(source), old, new)
	case LangPython:
		return rewritePythonImports(string(source), old, new)
	case LangGo:
		return rewriteGoImports(string(source), old, new)
	case LangRust:
		return rewriteRustImports(string(source), old, new)
	default:
		return nil, Unsupported(lang, CapRewriteImports)
	}
}

// lineEdit builds a TextEdit replacing [startCol, endCol) byte columns of
// line lineNo with newText. Columns are converted to UTF-16 units.
func lineEdit(line string, lineNo, startByte, endByte int, newText string) edit.TextEdit {
	return edit.TextEdit{
		Range: edit.Range{
			Start: edit.Position{Line: lineNo, Character: utf16Col(line, startByte)},
			End:   edit.Position{Line: lineNo, Character: utf16Col(line, endByte)},
		},
		NewText: newText,
	}
}

func utf16Col(line string, byteIdx int) int {
	if byteIdx > len(line) {
		byteIdx = len(line)
	}
	units := 0
	for _, r := range line[:byteIdx] {
		units += len(utf16.Encode([]rune{r}))
	}
	return units
}

// rewriteEcmaImports handles `import { a, b } from './x'`, default imports,
// and `require('./x')` forms.
func rewriteEcmaImports(content string, old, new ImportTarget) ([]edit.TextEdit, error) {
	var edits []edit.TextEdit

	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		isImport := strings.HasPrefix(trimmed, "import ") ||
			strings.HasPrefix(trimmed, "export ") && strings.Contains(trimmed, " from ") ||
			strings.Contains(trimmed, "require(")
		if !isImport {
			continue
		}

		// Path retarget
		if old.Path != "" && old.Path != new.Path {
			for _, quote := range []string{"'", "\""} {
				needle := quote + old.Path + quote
				if idx := strings.Index(line, needle); idx >= 0 {
					edits = append(edits, lineEdit(line, lineNo, idx+1, idx+1+len(old.Path), new.Path))
				}
			}
		}

		// Named-clause rename or removal, only within the braces
		if old.Name != "" && old.Name != new.Name {
			open := strings.Index(line, "{")
			close := strings.Index(line, "}")
			if open < 0 || close < open {
				continue
			}
			clause := line[open+1 : close]
			idx := IndexOfWord(clause, old.Name)
			if idx < 0 {
				continue
			}
			if new.Name != "" {
				edits = append(edits, lineEdit(line, lineNo, open+1+idx, open+1+idx+len(old.Name), new.Name))
			} else {
				start, end := clauseRemovalSpan(clause, idx, len(old.Name))
				edits = append(edits, lineEdit(line, lineNo, open+1+start, open+1+end, ""))
			}
		}
	}

	return edits, nil
}

// rewritePythonImports handles `from x import a, b` and `import x` forms.
func rewritePythonImports(content string, old, new ImportTarget) ([]edit.TextEdit, error) {
	var edits []edit.TextEdit

	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		isFrom := strings.HasPrefix(trimmed, "from ")
		isPlain := strings.HasPrefix(trimmed, "import ")
		if !isFrom && !isPlain {
			continue
		}

		if old.Path != "" && old.Path != new.Path {
			idx := IndexOfWord(line, old.Path)
			if idx >= 0 {
				edits = append(edits, lineEdit(line, lineNo, idx, idx+len(old.Path), new.Path))
			}
		}

		if isFrom && old.Name != "" && old.Name != new.Name {
			importKw := strings.Index(line, " import ")
			if importKw < 0 {
				continue
			}
			clauseStart := importKw + len(" import ")
			clause := line[clauseStart:]
			idx := IndexOfWord(clause, old.Name)
			if idx < 0 {
				continue
			}
			if new.Name != "" {
				edits = append(edits, lineEdit(line, lineNo, clauseStart+idx, clauseStart+idx+len(old.Name), new.Name))
			} else {
				start, end := clauseRemovalSpan(clause, idx, len(old.Name))
				edits = append(edits, lineEdit(line, lineNo, clauseStart+start, clauseStart+end, ""))
			}
		}
	}

	return edits, nil
}

// rewriteGoImports retargets quoted import paths. Go imports carry no symbol
// names, so Name changes are a no-op here; pkg-qualified use sites are the
// reference finder's job.
func rewriteGoImports(content string, old, new ImportTarget) ([]edit.TextEdit, error) {
	if old.Path == "" || old.Path == new.Path {
		return nil, nil
	}

	var edits []edit.TextEdit
	inBlock := false
	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
			continue
		case inBlock && trimmed == ")":
			inBlock = false
			continue
		}
		if !inBlock && !strings.HasPrefix(trimmed, "import ") {
			continue
		}

		needle := `"` + old.Path + `"`
		if idx := strings.Index(line, needle); idx >= 0 {
			edits = append(edits, lineEdit(line, lineNo, idx+1, idx+1+len(old.Path), new.Path))
		}
	}
	return edits, nil
}

// rewriteRustImports handles `use path::to::name;` and grouped
// `use path::{a, b};` forms.
func rewriteRustImports(content string, old, new ImportTarget) ([]edit.TextEdit, error) {
	var edits []edit.TextEdit

	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "use ") && !strings.HasPrefix(trimmed, "pub use ") {
			continue
		}

		if old.Path != "" && old.Path != new.Path {
			if idx := strings.Index(line, old.Path); idx >= 0 {
				edits = append(edits, lineEdit(line, lineNo, idx, idx+len(old.Path), new.Path))
			}
		}

		if old.Name != "" && old.Name != new.Name {
			idx := IndexOfWord(line, old.Name)
			if idx < 0 {
				continue
			}
			if new.Name != "" {
				edits = append(edits, lineEdit(line, lineNo, idx, idx+len(old.Name), new.Name))
			} else if open := strings.Index(line, "{"); open >= 0 && open < idx {
				clause := line[open+1:]
				cidx := IndexOfWord(clause, old.Name)
				if cidx >= 0 {
					start, end := clauseRemovalSpan(clause, cidx, len(old.Name))
					edits = append(edits, lineEdit(line, lineNo, open+1+start, open+1+end, ""))
				}
			}
		}
	}

	return edits, nil
}

// clauseRemovalSpan widens [idx, idx+length) to swallow an adjacent comma
// and whitespace so removing one name from a clause leaves it well-formed.
func clauseRemovalSpan(clause string, idx, length int) (int, int) {
	start, end := idx, idx+length

	// Prefer eating a trailing ", " so `{a, b}` minus a leaves `{b}`
	e := end
	for e < len(clause) && clause[e] == ' ' {
		e++
	}
	if e < len(clause) && clause[e] == ',' {
		e++
		for e < len(clause) && clause[e] == ' ' {
			e++
		}
		return start, e
	}

	// Otherwise eat a leading ", " for the last element
	s := start
	for s > 0 && clause[s-1] == ' ' {
		s--
	}
	if s > 0 && clause[s-1] == ',' {
		s--
		for s > 0 && clause[s-1] == ' ' {
			s--
		}
		return s, end
	}

	return start, end
}

// ModulePathOf derives the logical import path other files use to reference
// file, relative to importer. Only the ECMAScript relative-path convention
// and the Python dotted-module convention are derivable from paths alone.
func ModulePathOf(lang Language, importer, file string) (string, error) {
	switch lang {
	case LangTypeScript, LangTSX, LangJavaScript:
		return ecmaRelativePath(importer, file), nil
	case LangPython:
		mod := strings.TrimSuffix(file, ".py")
		return strings.ReplaceAll(mod, "/", "."), nil
	default:
		return "", fmt.Errorf("no path derivation for %s", lang)
	}
}

func ecmaRelativePath(importer, file string) string {
	impDir := ""
	if idx := strings.LastIndex(importer, "/"); idx >= 0 {
		impDir = importer[:idx]
	}

	target := file
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx", ".mts", ".cts", ".mjs", ".cjs"} {
		if strings.HasSuffix(target, ext) {
			target = strings.TrimSuffix(target, ext)
			break
		}
	}

	if impDir == "" {
		return "./" + target
	}
	if strings.HasPrefix(target, impDir+"/") {
		return "./" + strings.TrimPrefix(target, impDir+"/")
	}

	// Walk up from the importer's directory
	up := strings.Count(impDir, "/") + 1
	return strings.Repeat("../", up) + target
}
