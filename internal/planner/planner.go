// Package planner turns refactoring intents into edit plans. A language
// server computes the plan when one is configured and answers; otherwise the
// AST provider does, with a narrower blast radius. Either way the caller
// gets the same plan shape plus a tag naming which path produced it.
package planner

import (
	"context"
	"fmt"
	"os"

	"rfx/internal/config"
	"rfx/internal/edit"
	rfxerrors "rfx/internal/errors"
	"rfx/internal/lang"
	"rfx/internal/logging"
	"rfx/internal/lsp"
	"rfx/internal/paths"
)

// Source tags which path produced a plan.
type Source string

const (
	// SourceLSP means a language server computed the plan
	SourceLSP Source = "lsp"
	// SourceAST means the tree-sitter provider computed the plan
	SourceAST Source = "ast"
)

// Planned is a plan plus its provenance.
type Planned struct {
	Plan   *edit.Plan
	Source Source
}

// LspClient is the slice of the LSP session the planner uses.
type LspClient interface {
	Enabled(language lang.Language) bool
	Rename(ctx context.Context, language lang.Language, file string, content []byte, pos edit.Position, newName string) (*lsp.WorkspaceEdit, error)
	CodeActions(ctx context.Context, language lang.Language, file string, content []byte, rng edit.Range, kinds []string) ([]lsp.CodeAction, error)
}

// Planner computes edit plans for refactoring intents.
type Planner struct {
	cfg      *config.Config
	logger   *logging.Logger
	session  LspClient
	registry *lang.Registry
}

// New creates a planner. session may be nil when LSP planning is disabled.
func New(cfg *config.Config, logger *logging.Logger, session LspClient, registry *lang.Registry) *Planner {
	return &Planner{
		cfg:      cfg,
		logger:   logger.WithComponent("planner"),
		session:  session,
		registry: registry,
	}
}

// Plan computes the edit plan for one intent. The returned plan carries a
// checksum for every file it touches, taken from the content the edits were
// computed against.
func (p *Planner) Plan(ctx context.Context, intent edit.Intent) (*Planned, error) {
	content, err := p.readFile(intent.File)
	if err != nil {
		return nil, err
	}

	language, ok := lang.LanguageOfFile(intent.File)
	if !ok {
		return nil, rfxerrors.New(rfxerrors.UnsupportedLanguage,
			fmt.Sprintf("no supported language for %s", intent.File)).WithFile(intent.File)
	}

	if err := p.preflight(ctx, intent, language, content); err != nil {
		return nil, err
	}

	if p.session != nil && p.session.Enabled(language) && lspPlannable(intent.Kind) {
		plan, err := p.planViaLsp(ctx, intent, language, content)
		if err == nil && plan != nil && !plan.IsEmpty() {
			return &Planned{Plan: plan, Source: SourceLSP}, nil
		}
		if err != nil {
			if rfxerrors.HasCode(err, rfxerrors.OverlappingEdits) {
				return nil, err // a malformed server answer is not recoverable by falling back
			}
			p.logger.Warn("lsp planning failed, falling back to ast", map[string]interface{}{
				"intent": intent.Describe(),
				"error":  err.Error(),
			})
		} else {
			p.logger.Debug("lsp returned no edit, falling back to ast", map[string]interface{}{
				"intent": intent.Describe(),
			})
		}
	}

	plan, err := p.planViaAst(ctx, intent, language, content)
	if err != nil {
		return nil, err
	}
	return &Planned{Plan: plan, Source: SourceAST}, nil
}

// lspPlannable reports whether a standard LSP request exists for the intent.
// Moves and deletes have none; they always plan through the AST.
func lspPlannable(kind edit.IntentKind) bool {
	switch kind {
	case edit.IntentRename, edit.IntentExtractFunction, edit.IntentExtractVariable, edit.IntentInlineVariable:
		return true
	default:
		return false
	}
}

// preflight rejects intents that cannot produce a valid plan before any
// request leaves the process.
func (p *Planner) preflight(ctx context.Context, intent edit.Intent, language lang.Language, content []byte) error {
	text := string(content)

	switch intent.Kind {
	case edit.IntentExtractFunction, edit.IntentExtractVariable:
		if intent.Range == nil || !intent.Range.IsValid() || intent.Range.IsEmpty() {
			return rfxerrors.New(rfxerrors.InvalidRange, "extract requires a non-empty selection").WithFile(intent.File)
		}
		if _, err := edit.ByteOffset(text, intent.Range.Start); err != nil {
			return rfxerrors.Wrap(rfxerrors.InvalidRange, "selection start outside file", err).WithFile(intent.File)
		}
		if _, err := edit.ByteOffset(text, intent.Range.End); err != nil {
			return rfxerrors.Wrap(rfxerrors.InvalidRange, "selection end outside file", err).WithFile(intent.File)
		}
		if intent.NewName == "" {
			return rfxerrors.New(rfxerrors.NameCollision, "extract requires a name").WithFile(intent.File)
		}
		if err := p.checkExtractBoundary(ctx, intent, language, content); err != nil {
			return err
		}

	case edit.IntentRename:
		if intent.Symbol == "" || intent.NewName == "" {
			return rfxerrors.New(rfxerrors.InvalidRange, "rename requires a symbol and a new name").WithFile(intent.File)
		}
		if intent.Symbol == intent.NewName {
			return rfxerrors.New(rfxerrors.NameCollision,
				fmt.Sprintf("%q already has that name", intent.Symbol)).WithFile(intent.File)
		}
		if lang.WordOccurs(text, intent.NewName) {
			return rfxerrors.New(rfxerrors.NameCollision,
				fmt.Sprintf("%q is already in use in %s", intent.NewName, intent.File)).WithFile(intent.File)
		}
		if err := p.checkAmbiguity(ctx, intent, language, content); err != nil {
			return err
		}

	case edit.IntentInlineVariable, edit.IntentMove, edit.IntentDelete:
		if intent.Symbol == "" {
			return rfxerrors.New(rfxerrors.InvalidRange, "intent requires a symbol").WithFile(intent.File)
		}
		if intent.Kind == edit.IntentMove && intent.Destination == "" {
			return rfxerrors.New(rfxerrors.InvalidRange, "move requires a destination file").WithFile(intent.File)
		}
	}

	if !lang.WordOccurs(text, intent.Symbol) && intent.Symbol != "" {
		return rfxerrors.New(rfxerrors.AmbiguousSymbol,
			fmt.Sprintf("symbol %q does not occur in %s", intent.Symbol, intent.File)).WithFile(intent.File)
	}

	return nil
}

// checkAmbiguity rejects a rename whose symbol has several definitions in
// the file and no position to pick one. Skipped when the build cannot parse.
func (p *Planner) checkAmbiguity(ctx context.Context, intent edit.Intent, language lang.Language, content []byte) error {
	if intent.Position != nil {
		return nil
	}
	provider, ok := p.registry.ForLanguage(language)
	if !ok || !p.registry.Supports(language, lang.CapParse) {
		return nil
	}

	ast, err := provider.Parse(ctx, intent.File, content)
	if err != nil {
		return nil // parse trouble surfaces later, not as ambiguity
	}
	refs, err := provider.FindReferences(ctx, ast, intent.Symbol)
	if err != nil {
		return nil
	}

	var definitions []edit.Position
	for _, ref := range refs {
		if ref.Kind == "definition" {
			definitions = append(definitions, ref.Range.Start)
		}
	}
	if len(definitions) > 1 {
		return rfxerrors.New(rfxerrors.AmbiguousSymbol,
			fmt.Sprintf("%q has %d definitions in %s; a position is required", intent.Symbol, len(definitions), intent.File)).
			WithFile(intent.File).
			WithDetails(map[string]interface{}{"candidates": definitions})
	}
	return nil
}

// checkExtractBoundary rejects a selection that reaches out of the function
// it starts in. No such selection can produce a valid plan, so it fails here
// rather than after a round trip to the language server. Skipped when the
// build cannot parse.
func (p *Planner) checkExtractBoundary(ctx context.Context, intent edit.Intent, language lang.Language, content []byte) error {
	provider, ok := p.registry.ForLanguage(language)
	if !ok || !p.registry.Supports(language, lang.CapParse) {
		return nil
	}

	err := provider.ValidateExtract(ctx, intent.File, content, *intent.Range)
	if err == nil {
		return nil
	}
	if ce, isCap := err.(*lang.CapabilityError); isCap && (ce.Unsupported || ce.Capability == lang.CapParse) {
		return nil // parse trouble surfaces later, not as a bad range
	}
	return rfxerrors.Wrap(rfxerrors.InvalidRange, "selection crosses a function boundary", err).WithFile(intent.File)
}

func (p *Planner) readFile(file string) ([]byte, error) {
	content, err := os.ReadFile(paths.Join(p.cfg.RepoRoot, file))
	if err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.IoFailure,
			fmt.Sprintf("cannot read %s", file), err).WithFile(file)
	}
	return content, nil
}
