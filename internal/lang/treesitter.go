//go:build cgo

package lang

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"rfx/internal/edit"
)

// TreeSitterAvailable reports whether this build can parse source files.
const TreeSitterAvailable = true

func getLanguage(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	default:
		return nil
	}
}

// identifierTypes lists the node types that name things in each grammar.
// Reference scanning matches these and nothing else, so string literals and
// comments never rename.
func identifierTypes(lang Language) map[string]bool {
	switch lang {
	case LangGo:
		return map[string]bool{"identifier": true, "type_identifier": true, "field_identifier": true, "package_identifier": true}
	case LangPython:
		return map[string]bool{"identifier": true}
	case LangTypeScript, LangTSX, LangJavaScript:
		return map[string]bool{
			"identifier":                            true,
			"property_identifier":                   true,
			"shorthand_property_identifier":         true,
			"shorthand_property_identifier_pattern": true,
			"type_identifier":                       true,
		}
	case LangRust:
		return map[string]bool{"identifier": true, "type_identifier": true, "field_identifier": true}
	default:
		return map[string]bool{"identifier": true}
	}
}

type syntaxTree struct {
	lang   Language
	file   string
	tree   *sitter.Tree
	source []byte
}

func (t *syntaxTree) Language() Language { return t.lang }
func (t *syntaxTree) Source() []byte     { return t.source }
func (t *syntaxTree) HasErrors() bool    { return t.tree.RootNode().HasError() }

type treeSitterProvider struct {
	lang Language
}

// NewProvider returns the tree-sitter backed provider for lang.
func NewProvider(lang Language) Provider {
	return &treeSitterProvider{lang: lang}
}

// DefaultRegistry wires a provider for every supported language.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewProvider(LangGo),
		NewProvider(LangPython),
		NewProvider(LangTypeScript),
		NewProvider(LangTSX),
		NewProvider(LangJavaScript),
		NewProvider(LangRust),
	)
}

func (p *treeSitterProvider) Language() Language { return p.lang }

func (p *treeSitterProvider) Capabilities() []Capability {
	return []Capability{CapParse, CapFindReferences, CapRewriteImports, CapRename, CapExtract, CapInline}
}

func (p *treeSitterProvider) Parse(ctx context.Context, file string, source []byte) (Ast, error) {
	grammar := getLanguage(p.lang)
	if grammar == nil {
		return nil, Unsupported(p.lang, CapParse)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, Failed(p.lang, CapParse, err)
	}
	return &syntaxTree{lang: p.lang, file: file, tree: tree, source: source}, nil
}

func (p *treeSitterProvider) FindReferences(ctx context.Context, ast Ast, symbol string) ([]Location, error) {
	st, ok := ast.(*syntaxTree)
	if !ok {
		return nil, Failed(p.lang, CapFindReferences, fmt.Errorf("foreign syntax tree"))
	}

	idTypes := identifierTypes(p.lang)
	var refs []Location

	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if idTypes[node.Type()] && node.Content(st.source) == symbol {
			refs = append(refs, Location{
				File:  st.file,
				Range: nodeRange(st.source, node),
				Kind:  referenceKind(node),
			})
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(st.tree.RootNode())

	return refs, nil
}

func (p *treeSitterProvider) DefinitionSpan(ctx context.Context, file string, source []byte, symbol string) (edit.Range, error) {
	ast, err := p.Parse(ctx, file, source)
	if err != nil {
		return edit.Range{}, err
	}
	st := ast.(*syntaxTree)

	idTypes := identifierTypes(p.lang)
	var decl *sitter.Node

	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if decl != nil {
			return
		}
		if idTypes[node.Type()] && node.Content(st.source) == symbol && referenceKind(node) == "definition" {
			decl = node.Parent()
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(st.tree.RootNode())

	if decl == nil {
		return edit.Range{}, Failed(p.lang, CapFindReferences, fmt.Errorf("no definition of %q in %s", symbol, file))
	}
	return lineSpanRange(decl), nil
}

// referenceKind classifies an identifier by its parent node, so callers can
// tell a definition site from a plain use.
func referenceKind(node *sitter.Node) string {
	parent := node.Parent()
	if parent == nil {
		return "reference"
	}
	switch parent.Type() {
	case "function_declaration", "function_definition", "method_declaration",
		"function_item", "class_definition", "class_declaration":
		return "definition"
	case "import_specifier", "import_clause", "aliased_import", "dotted_name", "use_declaration":
		return "import"
	default:
		return "reference"
	}
}

func (p *treeSitterProvider) RewriteImports(ctx context.Context, file string, source []byte, old, new ImportTarget) ([]edit.TextEdit, error) {
	edits, err := rewriteImports(p.lang, source, old, new)
	if err != nil {
		return nil, err
	}
	for i := range edits {
		edits[i].File = file
	}
	return edits, nil
}

func (p *treeSitterProvider) Rename(ctx context.Context, file string, source []byte, symbol string, pos *edit.Position, newName string) ([]edit.TextEdit, error) {
	ast, err := p.Parse(ctx, file, source)
	if err != nil {
		return nil, err
	}
	refs, err := p.FindReferences(ctx, ast, symbol)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, Failed(p.lang, CapRename, fmt.Errorf("symbol %q not found in %s", symbol, file))
	}

	edits := make([]edit.TextEdit, 0, len(refs))
	for _, ref := range refs {
		edits = append(edits, edit.TextEdit{File: file, Range: ref.Range, NewText: newName})
	}
	return edits, nil
}

func (p *treeSitterProvider) ExtractFunction(ctx context.Context, file string, source []byte, sel edit.Range, name string) ([]edit.TextEdit, error) {
	ast, err := p.Parse(ctx, file, source)
	if err != nil {
		return nil, err
	}
	st := ast.(*syntaxTree)

	content := string(source)
	startOff, err := edit.ByteOffset(content, sel.Start)
	if err != nil {
		return nil, Failed(p.lang, CapExtract, err)
	}
	endOff, err := edit.ByteOffset(content, sel.End)
	if err != nil {
		return nil, Failed(p.lang, CapExtract, err)
	}
	if startOff >= endOff {
		return nil, Failed(p.lang, CapExtract, fmt.Errorf("empty extraction range in %s", file))
	}
	selection := content[startOff:endOff]

	enclosing := enclosingFunction(st.tree.RootNode(), sel)
	insertAt := edit.Position{Line: 0, Character: 0}
	hostIndent := ""
	if enclosing != nil {
		insertAt = edit.Position{Line: int(enclosing.StartPoint().Row), Character: 0}
		hostIndent = leadingIndent(lineAt(content, int(enclosing.StartPoint().Row)))
	}

	body := dedent(selection)
	callIndent := leadingIndent(lineAt(content, sel.Start.Line))

	def, call := renderFunction(p.lang, name, body, hostIndent)

	// A whole-line selection ends at column zero of the line after it; the
	// call that replaces it has to restore the newline it swallowed.
	replacement := callIndent + call
	if sel.End.Character == 0 && sel.End.Line > sel.Start.Line {
		replacement += "\n"
	}

	return []edit.TextEdit{
		{File: file, Range: edit.Range{Start: insertAt, End: insertAt}, NewText: def},
		{File: file, Range: sel, NewText: replacement},
	}, nil
}

// ValidateExtract checks that the selection starts and ends inside the same
// function body. A selection reaching from one function into the next can
// never be lifted out in one piece.
func (p *treeSitterProvider) ValidateExtract(ctx context.Context, file string, source []byte, sel edit.Range) error {
	ast, err := p.Parse(ctx, file, source)
	if err != nil {
		return err
	}
	st := ast.(*syntaxTree)

	// A selection ending at column zero stops before that line, not on it.
	endLine := sel.End.Line
	if sel.End.Character == 0 && endLine > sel.Start.Line {
		endLine--
	}

	startHost := innermostFunction(st.tree.RootNode(), sel.Start.Line)
	endHost := innermostFunction(st.tree.RootNode(), endLine)
	if !sameNode(startHost, endHost) {
		return Failed(p.lang, CapExtract, fmt.Errorf("selection crosses a function boundary in %s", file))
	}
	return nil
}

func (p *treeSitterProvider) InlineVariable(ctx context.Context, file string, source []byte, symbol string) ([]edit.TextEdit, error) {
	ast, err := p.Parse(ctx, file, source)
	if err != nil {
		return nil, err
	}
	st := ast.(*syntaxTree)

	decl, value := declarationOf(st, symbol)
	if decl == nil {
		return nil, Failed(p.lang, CapInline, fmt.Errorf("no declaration of %q in %s", symbol, file))
	}

	refs, err := p.FindReferences(ctx, ast, symbol)
	if err != nil {
		return nil, err
	}

	declRange := lineSpanRange(decl)
	edits := []edit.TextEdit{{File: file, Range: declRange, NewText: ""}}
	for _, ref := range refs {
		if declRange.Overlaps(ref.Range) {
			continue
		}
		edits = append(edits, edit.TextEdit{File: file, Range: ref.Range, NewText: value})
	}
	if len(edits) == 1 {
		return nil, Failed(p.lang, CapInline, fmt.Errorf("variable %q has no uses to inline", symbol))
	}
	return edits, nil
}

// funcNodeTypes is every node type the grammars use for a function-like
// definition.
var funcNodeTypes = map[string]bool{
	"function_definition": true, "function_declaration": true,
	"method_declaration": true, "method_definition": true,
	"function_item": true, "arrow_function": true, "function_expression": true,
}

// enclosingFunction returns the outermost function-like node containing sel,
// judged at line granularity.
func enclosingFunction(root *sitter.Node, sel edit.Range) *sitter.Node {
	var found *sitter.Node
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if found != nil {
			return
		}
		if int(node.StartPoint().Row) <= sel.Start.Line && int(node.EndPoint().Row) >= sel.End.Line && funcNodeTypes[node.Type()] {
			found = node
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(root)
	return found
}

// innermostFunction returns the deepest function-like node whose line span
// contains line, or nil when the line sits at file scope.
func innermostFunction(root *sitter.Node, line int) *sitter.Node {
	var found *sitter.Node
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if int(node.StartPoint().Row) > line || int(node.EndPoint().Row) < line {
			return
		}
		if funcNodeTypes[node.Type()] {
			found = node
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(root)
	return found
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// declarationOf finds the declaration of symbol and returns the statement
// node plus the initializer text.
func declarationOf(st *syntaxTree, symbol string) (*sitter.Node, string) {
	declTypes := map[string]bool{
		"variable_declarator": true, "short_var_declaration": true,
		"assignment": true, "let_declaration": true,
	}

	var foundDecl *sitter.Node
	var foundValue string

	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if foundDecl != nil {
			return
		}
		if declTypes[node.Type()] && declNames(node, st.source) == symbol {
			if value := node.NamedChild(int(node.NamedChildCount()) - 1); value != nil {
				foundDecl = declStatement(node)
				foundValue = strings.TrimSpace(value.Content(st.source))
			}
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(st.tree.RootNode())

	return foundDecl, foundValue
}

func declNames(node *sitter.Node, source []byte) string {
	name := node.NamedChild(0)
	if name == nil {
		return ""
	}
	return strings.TrimSpace(name.Content(source))
}

// declStatement walks up from a declarator to the enclosing statement so the
// whole line is removed, `const` keyword included.
func declStatement(node *sitter.Node) *sitter.Node {
	parent := node.Parent()
	if parent == nil {
		return node
	}
	switch parent.Type() {
	case "lexical_declaration", "variable_declaration", "expression_statement":
		return parent
	}
	return node
}

// nodeRange converts tree-sitter byte-column points to UTF-16 positions.
func nodeRange(source []byte, node *sitter.Node) edit.Range {
	return edit.Range{
		Start: pointToPosition(source, node.StartPoint()),
		End:   pointToPosition(source, node.EndPoint()),
	}
}

func pointToPosition(source []byte, pt sitter.Point) edit.Position {
	line := lineAt(string(source), int(pt.Row))
	return edit.Position{Line: int(pt.Row), Character: utf16Col(line, int(pt.Column))}
}

// lineSpanRange covers a node's lines in full, trailing newline included,
// so deleting it leaves no blank line behind.
func lineSpanRange(node *sitter.Node) edit.Range {
	return edit.Range{
		Start: edit.Position{Line: int(node.StartPoint().Row), Character: 0},
		End:   edit.Position{Line: int(node.EndPoint().Row) + 1, Character: 0},
	}
}

func lineAt(content string, lineNo int) string {
	lines := strings.Split(content, "\n")
	if lineNo < 0 || lineNo >= len(lines) {
		return ""
	}
	return lines[lineNo]
}

func leadingIndent(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			return line[:i]
		}
	}
	return line
}

// dedent strips the common leading whitespace from every non-blank line.
func dedent(text string) string {
	lines := strings.Split(text, "\n")
	common := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := leadingIndent(line)
		if first {
			common = indent
			first = false
			continue
		}
		for !strings.HasPrefix(indent, common) {
			common = common[:len(common)-1]
		}
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, common)
	}
	return strings.Join(lines, "\n")
}

// renderFunction emits the helper definition and the replacement call in the
// target language's surface syntax. The definition text ends with a blank
// line so insertion at column zero stays well-formed.
func renderFunction(lang Language, name, body, indent string) (def string, call string) {
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")

	var b strings.Builder
	switch lang {
	case LangPython:
		fmt.Fprintf(&b, "%sdef %s():\n", indent, name)
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				b.WriteString("\n")
				continue
			}
			fmt.Fprintf(&b, "%s    %s\n", indent, line)
		}
		b.WriteString("\n")
		return b.String(), name + "()"
	case LangGo:
		fmt.Fprintf(&b, "func %s() {\n", name)
		for _, line := range lines {
			fmt.Fprintf(&b, "\t%s\n", line)
		}
		b.WriteString("}\n\n")
		return b.String(), name + "()"
	case LangRust:
		fmt.Fprintf(&b, "%sfn %s() {\n", indent, name)
		for _, line := range lines {
			fmt.Fprintf(&b, "%s    %s\n", indent, line)
		}
		fmt.Fprintf(&b, "%s}\n\n", indent)
		return b.String(), name + "();"
	default: // ECMAScript family
		fmt.Fprintf(&b, "%sfunction %s() {\n", indent, name)
		for _, line := range lines {
			fmt.Fprintf(&b, "%s    %s\n", indent, line)
		}
		fmt.Fprintf(&b, "%s}\n\n", indent)
		return b.String(), name + "();"
	}
}
