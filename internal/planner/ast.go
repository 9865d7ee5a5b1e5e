package planner

import (
	"context"
	"fmt"
	"os"
	"strings"

	"rfx/internal/edit"
	rfxerrors "rfx/internal/errors"
	"rfx/internal/lang"
	"rfx/internal/paths"
)

// planViaAst computes the plan from the tree-sitter provider. The fallback
// is honest about its limits: edits stay within the files it can see, and a
// capability the provider lacks surfaces as UNSUPPORTED_LANGUAGE rather
// than a silent no-op.
func (p *Planner) planViaAst(ctx context.Context, intent edit.Intent, language lang.Language, content []byte) (*edit.Plan, error) {
	provider, ok := p.registry.ForLanguage(language)
	if !ok {
		return nil, rfxerrors.New(rfxerrors.UnsupportedLanguage,
			fmt.Sprintf("no provider for %s", language)).WithFile(intent.File)
	}

	var edits []edit.TextEdit
	var err error

	switch intent.Kind {
	case edit.IntentRename:
		edits, err = provider.Rename(ctx, intent.File, content, intent.Symbol, intent.Position, intent.NewName)

	case edit.IntentExtractFunction:
		edits, err = provider.ExtractFunction(ctx, intent.File, content, *intent.Range, intent.NewName)

	case edit.IntentExtractVariable:
		edits, err = extractVariable(language, intent.File, string(content), *intent.Range, intent.NewName)

	case edit.IntentInlineVariable:
		edits, err = provider.InlineVariable(ctx, intent.File, content, intent.Symbol)

	case edit.IntentMove:
		return p.planMove(ctx, provider, intent, content)

	case edit.IntentDelete:
		return p.planDelete(ctx, provider, intent, content)

	default:
		return nil, rfxerrors.New(rfxerrors.ConflictingIntent,
			fmt.Sprintf("unknown intent kind %s", intent.Kind))
	}

	if err != nil {
		return nil, mapProviderError(err, intent.File)
	}

	plan := edit.NewPlan(intent)
	if err := plan.AddFileEdits(intent.File, edits); err != nil {
		return nil, err
	}
	plan.SetChecksum(intent.File, edit.Checksum(string(content)))
	return plan, nil
}

// planMove removes the definition from the source file and appends it to the
// destination. Import ripple in other files is the updater's job.
func (p *Planner) planMove(ctx context.Context, provider lang.Provider, intent edit.Intent, content []byte) (*edit.Plan, error) {
	span, err := provider.DefinitionSpan(ctx, intent.File, content, intent.Symbol)
	if err != nil {
		return nil, mapProviderError(err, intent.File)
	}

	text := string(content)
	startOff, err := edit.ByteOffset(text, span.Start)
	if err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.InvalidRange, "definition span outside file", err).WithFile(intent.File)
	}
	endOff, err := edit.ByteOffset(text, span.End)
	if err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.InvalidRange, "definition span outside file", err).WithFile(intent.File)
	}
	definition := text[startOff:endOff]

	destContent := ""
	if raw, err := os.ReadFile(paths.Join(p.cfg.RepoRoot, intent.Destination)); err == nil {
		destContent = string(raw)
	} else if !os.IsNotExist(err) {
		return nil, rfxerrors.Wrap(rfxerrors.IoFailure,
			fmt.Sprintf("cannot read %s", intent.Destination), err).WithFile(intent.Destination)
	}

	appendAt := edit.PositionAt(destContent, len(destContent))
	appended := definition
	if destContent != "" && !strings.HasSuffix(destContent, "\n") {
		appended = "\n" + appended
	}

	plan := edit.NewPlan(intent)
	if err := plan.AddFileEdits(intent.File, []edit.TextEdit{
		{File: intent.File, Range: span, NewText: ""},
	}); err != nil {
		return nil, err
	}
	plan.SetChecksum(intent.File, edit.Checksum(text))

	if err := plan.AddFileEdits(intent.Destination, []edit.TextEdit{
		{File: intent.Destination, Range: edit.Range{Start: appendAt, End: appendAt}, NewText: appended},
	}); err != nil {
		return nil, err
	}
	plan.SetChecksum(intent.Destination, edit.Checksum(destContent))

	return plan, nil
}

// planDelete removes the definition from its file.
func (p *Planner) planDelete(ctx context.Context, provider lang.Provider, intent edit.Intent, content []byte) (*edit.Plan, error) {
	span, err := provider.DefinitionSpan(ctx, intent.File, content, intent.Symbol)
	if err != nil {
		return nil, mapProviderError(err, intent.File)
	}

	plan := edit.NewPlan(intent)
	if err := plan.AddFileEdits(intent.File, []edit.TextEdit{
		{File: intent.File, Range: span, NewText: ""},
	}); err != nil {
		return nil, err
	}
	plan.SetChecksum(intent.File, edit.Checksum(string(content)))
	return plan, nil
}

// extractVariable is pure text surgery: a declaration line above the
// selection's line, the selection replaced by the new name. No syntax tree
// needed, so it works in every build.
func extractVariable(language lang.Language, file, content string, sel edit.Range, name string) ([]edit.TextEdit, error) {
	startOff, err := edit.ByteOffset(content, sel.Start)
	if err != nil {
		return nil, err
	}
	endOff, err := edit.ByteOffset(content, sel.End)
	if err != nil {
		return nil, err
	}
	if startOff >= endOff {
		return nil, rfxerrors.New(rfxerrors.InvalidRange, "empty selection").WithFile(file)
	}
	expr := strings.TrimSpace(content[startOff:endOff])

	lineStart := edit.Position{Line: sel.Start.Line, Character: 0}
	indent := leadingIndent(lineOf(content, sel.Start.Line))

	var decl string
	switch language {
	case lang.LangPython:
		decl = fmt.Sprintf("%s%s = %s\n", indent, name, expr)
	case lang.LangGo:
		decl = fmt.Sprintf("%s%s := %s\n", indent, name, expr)
	case lang.LangRust:
		decl = fmt.Sprintf("%slet %s = %s;\n", indent, name, expr)
	default: // ECMAScript family
		decl = fmt.Sprintf("%sconst %s = %s;\n", indent, name, expr)
	}

	// A selection ending at column 0 swallows the previous line's newline;
	// put it back so the line after the selection survives.
	replacement := name
	if sel.End.Character == 0 && sel.End.Line > sel.Start.Line {
		replacement += "\n"
	}

	return []edit.TextEdit{
		{File: file, Range: edit.Range{Start: lineStart, End: lineStart}, NewText: decl},
		{File: file, Range: sel, NewText: replacement},
	}, nil
}

// mapProviderError converts capability errors to coded planner errors.
func mapProviderError(err error, file string) error {
	if lang.IsUnsupported(err) {
		return rfxerrors.Wrap(rfxerrors.UnsupportedLanguage, "operation not supported for this language", err).WithFile(file)
	}
	if _, isRfx := err.(*rfxerrors.RfxError); isRfx {
		return err
	}
	return rfxerrors.Wrap(rfxerrors.InternalError, "planning failed", err).WithFile(file)
}

func lineOf(content string, lineNo int) string {
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
