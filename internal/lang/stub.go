//go:build !cgo

package lang

import (
	"context"

	"rfx/internal/edit"
)

// TreeSitterAvailable reports whether this build can parse source files.
const TreeSitterAvailable = false

// stubProvider stands in when the binary is built without cgo. Import
// rewriting is line-oriented text surgery and still works; everything that
// needs a syntax tree reports the capability as unsupported.
type stubProvider struct {
	lang Language
}

// NewProvider returns the provider for lang. Without cgo it only supports
// import rewriting.
func NewProvider(lang Language) Provider {
	return &stubProvider{lang: lang}
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

func (p *stubProvider) Language() Language { return p.lang }

func (p *stubProvider) Capabilities() []Capability {
	return []Capability{CapRewriteImports}
}

func (p *stubProvider) Parse(ctx context.Context, file string, source []byte) (Ast, error) {
	return nil, Unsupported(p.lang, CapParse)
}

func (p *stubProvider) FindReferences(ctx context.Context, ast Ast, symbol string) ([]Location, error) {
	return nil, Unsupported(p.lang, CapFindReferences)
}

func (p *stubProvider) DefinitionSpan(ctx context.Context, file string, source []byte, symbol string) (edit.Range, error) {
	return edit.Range{}, Unsupported(p.lang, CapFindReferences)
}

func (p *stubProvider) RewriteImports(ctx context.Context, file string, source []byte, old, new ImportTarget) ([]edit.TextEdit, error) {
	edits, err := rewriteImports(p.lang, source, old, new)
	if err != nil {
		return nil, err
	}
	for i := range edits {
		edits[i].File = file
	}
	return edits, nil
}

func (p *stubProvider) Rename(ctx context.Context, file string, source []byte, symbol string, pos *edit.Position, newName string) ([]edit.TextEdit, error) {
	return nil, Unsupported(p.lang, CapRename)
}

func (p *stubProvider) ExtractFunction(ctx context.Context, file string, source []byte, sel edit.Range, name string) ([]edit.TextEdit, error) {
	return nil, Unsupported(p.lang, CapExtract)
}

func (p *stubProvider) ValidateExtract(ctx context.Context, file string, source []byte, sel edit.Range) error {
	return Unsupported(p.lang, CapParse)
}

func (p *stubProvider) InlineVariable(ctx context.Context, file string, source []byte, symbol string) ([]edit.TextEdit, error) {
	return nil, Unsupported(p.lang, CapInline)
}
