package edit

import "fmt"

// IntentKind discriminates the closed set of refactoring intents.
type IntentKind string

const (
	// IntentRename renames a symbol and every reference to it
	IntentRename IntentKind = "rename"
	// IntentExtractFunction extracts a selected range into a new function
	IntentExtractFunction IntentKind = "extract-function"
	// IntentExtractVariable extracts a selected expression into a variable
	IntentExtractVariable IntentKind = "extract-variable"
	// IntentInlineVariable replaces uses of a variable with its value
	IntentInlineVariable IntentKind = "inline-variable"
	// IntentMove relocates a symbol to another file
	IntentMove IntentKind = "move"
	// IntentDelete removes a symbol and its imports
	IntentDelete IntentKind = "delete"
)

// Intent identifies a requested refactoring: the what, never the how.
// Whether the plan comes from an LSP server or an AST provider is a planner
// decision invisible here. Treat values as immutable once constructed.
type Intent struct {
	Kind IntentKind `json:"kind"`

	// File is the canonical repo-relative path of the primary target
	File string `json:"file"`

	// Symbol names the target for rename/inline/move/delete
	Symbol string `json:"symbol,omitempty"`

	// Position disambiguates the symbol occurrence, when known
	Position *Position `json:"position,omitempty"`

	// NewName is the replacement name for rename, or the name of the
	// extracted function/variable
	NewName string `json:"newName,omitempty"`

	// Range is the selection for extract intents
	Range *Range `json:"range,omitempty"`

	// Destination is the target file for move
	Destination string `json:"destination,omitempty"`
}

// NewRename creates a rename intent.
func NewRename(file, symbol string, pos *Position, newName string) Intent {
	return Intent{Kind: IntentRename, File: file, Symbol: symbol, Position: pos, NewName: newName}
}

// NewExtractFunction creates an extract-function intent.
func NewExtractFunction(file string, r Range, name string) Intent {
	return Intent{Kind: IntentExtractFunction, File: file, Range: &r, NewName: name}
}

// NewExtractVariable creates an extract-variable intent.
func NewExtractVariable(file string, r Range, name string) Intent {
	return Intent{Kind: IntentExtractVariable, File: file, Range: &r, NewName: name}
}

// NewInlineVariable creates an inline-variable intent.
func NewInlineVariable(file, symbol string, pos *Position) Intent {
	return Intent{Kind: IntentInlineVariable, File: file, Symbol: symbol, Position: pos}
}

// NewMove creates a move intent.
func NewMove(file, symbol, destination string) Intent {
	return Intent{Kind: IntentMove, File: file, Symbol: symbol, Destination: destination}
}

// NewDelete creates a delete intent.
func NewDelete(file, symbol string) Intent {
	return Intent{Kind: IntentDelete, File: file, Symbol: symbol}
}

// ChangesImportableIdentity reports whether applying this intent can change
// how other files import or reference the symbol. Only these intents engage
// the reference updater.
func (i Intent) ChangesImportableIdentity() bool {
	switch i.Kind {
	case IntentRename, IntentMove, IntentDelete:
		return true
	default:
		return false
	}
}

// Describe returns a short human-readable description for logs and reports.
func (i Intent) Describe() string {
	switch i.Kind {
	case IntentRename:
		return fmt.Sprintf("rename %q to %q in %s", i.Symbol, i.NewName, i.File)
	case IntentExtractFunction:
		return fmt.Sprintf("extract function %q in %s", i.NewName, i.File)
	case IntentExtractVariable:
		return fmt.Sprintf("extract variable %q in %s", i.NewName, i.File)
	case IntentInlineVariable:
		return fmt.Sprintf("inline variable %q in %s", i.Symbol, i.File)
	case IntentMove:
		return fmt.Sprintf("move %q from %s to %s", i.Symbol, i.File, i.Destination)
	case IntentDelete:
		return fmt.Sprintf("delete %q in %s", i.Symbol, i.File)
	default:
		return string(i.Kind)
	}
}
