package lang

import (
	"context"
	"fmt"

	"rfx/internal/edit"
)

// Location is one occurrence of a symbol within a file.
type Location struct {
	File  string     `json:"file"`
	Range edit.Range `json:"range"`

	// Kind classifies the occurrence: "definition", "reference", "import"
	Kind string `json:"kind"`
}

// Ast is an opaque parsed representation of one file. Providers return it
// from Parse and accept it back in FindReferences; callers never inspect it.
type Ast interface {
	// Language the tree was parsed with
	Language() Language
	// Source returns the content the tree was parsed from
	Source() []byte
	// HasErrors reports whether the parse produced error nodes
	HasErrors() bool
}

// Provider is the capability-tagged analysis contract for one language.
// Operations a provider does not declare in Capabilities return a
// CapabilityError with Unsupported set.
type Provider interface {
	// Language this provider serves
	Language() Language

	// Capabilities returns the operations this provider supports
	Capabilities() []Capability

	// Parse parses source content into an AST
	Parse(ctx context.Context, file string, source []byte) (Ast, error)

	// FindReferences returns every occurrence of symbol in the file the
	// AST was parsed from, definition included, in document order
	FindReferences(ctx context.Context, ast Ast, symbol string) ([]Location, error)

	// DefinitionSpan returns the full line span of the declaration that
	// defines symbol: the whole function, class, or variable statement,
	// not just the name
	DefinitionSpan(ctx context.Context, file string, source []byte, symbol string) (edit.Range, error)

	// RewriteImports returns the edits that retarget import statements in
	// source from oldPath/oldName to newPath/newName. A rename keeps the
	// paths equal and changes only the names; a move does the reverse.
	RewriteImports(ctx context.Context, file string, source []byte, old, new ImportTarget) ([]edit.TextEdit, error)

	// Rename computes definition-site and same-file reference edits
	Rename(ctx context.Context, file string, source []byte, symbol string, pos *edit.Position, newName string) ([]edit.TextEdit, error)

	// ExtractFunction computes the insertion of a new function holding the
	// selected range plus the replacement of the selection with a call
	ExtractFunction(ctx context.Context, file string, source []byte, sel edit.Range, name string) ([]edit.TextEdit, error)

	// ValidateExtract reports whether sel can be lifted out in one piece:
	// start and end must sit inside the same function body. A nil error
	// means the selection is extractable.
	ValidateExtract(ctx context.Context, file string, source []byte, sel edit.Range) error

	// InlineVariable replaces uses of a single-assignment variable with its
	// value and removes the declaration
	InlineVariable(ctx context.Context, file string, source []byte, symbol string) ([]edit.TextEdit, error)
}

// ImportTarget identifies a symbol as seen from an import statement.
type ImportTarget struct {
	// Path is the logical module path ("./a", "pkg/util", "crate::util")
	Path string
	// Name is the imported symbol name
	Name string
}

// CapabilityError distinguishes "this language cannot do that" from
// "the operation failed".
type CapabilityError struct {
	Language    Language
	Capability  Capability
	Unsupported bool
	Cause       error
}

func (e *CapabilityError) Error() string {
	if e.Unsupported {
		return fmt.Sprintf("%s: %s not supported", e.Language, e.Capability)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Language, e.Capability, e.Cause)
}

func (e *CapabilityError) Unwrap() error {
	return e.Cause
}

// Unsupported creates a CapabilityError for a missing capability.
func Unsupported(lang Language, cap Capability) *CapabilityError {
	return &CapabilityError{Language: lang, Capability: cap, Unsupported: true}
}

// Failed creates a CapabilityError for a failed operation.
func Failed(lang Language, cap Capability, cause error) *CapabilityError {
	return &CapabilityError{Language: lang, Capability: cap, Cause: cause}
}

// IsUnsupported reports whether err is a CapabilityError with Unsupported set.
func IsUnsupported(err error) bool {
	ce, ok := err.(*CapabilityError)
	return ok && ce.Unsupported
}

// Registry maps languages to providers. The set is closed at construction;
// there is no runtime plugin loading.
type Registry struct {
	providers map[Language]Provider
}

// NewRegistry creates a registry over the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[Language]Provider)}
	for _, p := range providers {
		r.providers[p.Language()] = p
	}
	return r
}

// ForLanguage returns the provider for a language.
func (r *Registry) ForLanguage(lang Language) (Provider, bool) {
	p, ok := r.providers[lang]
	return p, ok
}

// ForFile returns the provider matching a file's extension.
func (r *Registry) ForFile(path string) (Provider, bool) {
	lang, ok := LanguageOfFile(path)
	if !ok {
		return nil, false
	}
	return r.ForLanguage(lang)
}

// Supports reports whether the registry has a provider for the language
// declaring the capability.
func (r *Registry) Supports(lang Language, cap Capability) bool {
	p, ok := r.providers[lang]
	if !ok {
		return false
	}
	for _, c := range p.Capabilities() {
		if c == cap {
			return true
		}
	}
	return false
}

// Languages returns the registered languages.
func (r *Registry) Languages() []Language {
	out := make([]Language, 0, len(r.providers))
	for lang := range r.providers {
		out = append(out, lang)
	}
	return out
}
