package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rfx/internal/edit"
	rfxerrors "rfx/internal/errors"
	"rfx/internal/lang"
	"rfx/internal/lsp"
)

// planViaLsp asks the language server for the edit. Timeouts and transport
// failures are retried with a fresh request; the retry budget comes from
// config so tests can pin it.
func (p *Planner) planViaLsp(ctx context.Context, intent edit.Intent, language lang.Language, content []byte) (*edit.Plan, error) {
	attempts := 1 + p.cfg.Planner.LspRetries

	var we *lsp.WorkspaceEdit
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		we, err = p.lspRequest(ctx, intent, language, content)
		if err == nil {
			break
		}
		if !rfxerrors.IsRetryable(err) || attempt == attempts-1 {
			return nil, err
		}
		p.logger.Debug("retrying lsp request", map[string]interface{}{
			"intent":  intent.Describe(),
			"attempt": attempt + 1,
		})
	}

	if we.IsEmpty() {
		return nil, nil
	}

	byFile, err := we.Normalize(p.cfg.RepoRoot)
	if err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.LspServerRejected, "unusable workspace edit", err)
	}

	return p.assemblePlan(intent, content, byFile)
}

// lspRequest issues the one request matching the intent kind.
func (p *Planner) lspRequest(ctx context.Context, intent edit.Intent, language lang.Language, content []byte) (*lsp.WorkspaceEdit, error) {
	switch intent.Kind {
	case edit.IntentRename:
		pos := p.renamePosition(intent, string(content))
		return p.session.Rename(ctx, language, intent.File, content, pos, intent.NewName)

	case edit.IntentExtractFunction, edit.IntentExtractVariable:
		kind := "refactor.extract"
		actions, err := p.session.CodeActions(ctx, language, intent.File, content, *intent.Range, []string{kind})
		if err != nil {
			return nil, err
		}
		return pickAction(actions, kind), nil

	case edit.IntentInlineVariable:
		pos := p.renamePosition(intent, string(content))
		rng := edit.Range{Start: pos, End: pos}
		actions, err := p.session.CodeActions(ctx, language, intent.File, content, rng, []string{"refactor.inline"})
		if err != nil {
			return nil, err
		}
		return pickAction(actions, "refactor.inline"), nil
	}

	return nil, fmt.Errorf("no lsp request for intent %s", intent.Kind)
}

// renamePosition resolves the position the request targets: the intent's own
// when given, otherwise the first word-boundary occurrence of the symbol.
func (p *Planner) renamePosition(intent edit.Intent, content string) edit.Position {
	if intent.Position != nil {
		return *intent.Position
	}
	idx := lang.IndexOfWord(content, intent.Symbol)
	if idx < 0 {
		return edit.Position{}
	}
	return edit.PositionAt(content, idx)
}

// pickAction returns the first action of the wanted kind that carries an
// inline edit. Command-only actions are unusable without executeCommand.
func pickAction(actions []lsp.CodeAction, kind string) *lsp.WorkspaceEdit {
	for _, action := range actions {
		if action.Edit == nil || action.Edit.IsEmpty() {
			continue
		}
		if action.Kind == "" || strings.HasPrefix(action.Kind, kind) {
			return action.Edit
		}
	}
	return nil
}

// assemblePlan builds a checksummed plan from per-file edits. The primary
// file's checksum comes from the content the request was computed against;
// ripple files are read fresh.
func (p *Planner) assemblePlan(intent edit.Intent, content []byte, byFile map[string][]edit.TextEdit) (*edit.Plan, error) {
	plan := edit.NewPlan(intent)

	// Primary file first so plan ordering starts at the intent target
	if edits, ok := byFile[intent.File]; ok {
		if err := plan.AddFileEdits(intent.File, edits); err != nil {
			return nil, err
		}
		plan.SetChecksum(intent.File, edit.Checksum(string(content)))
	}

	ripple := make([]string, 0, len(byFile))
	for file := range byFile {
		if file != intent.File {
			ripple = append(ripple, file)
		}
	}
	sort.Strings(ripple)

	for _, file := range ripple {
		if err := plan.AddFileEdits(file, byFile[file]); err != nil {
			return nil, err
		}
		fileContent, err := p.readFile(file)
		if err != nil {
			return nil, err
		}
		plan.SetChecksum(file, edit.Checksum(string(fileContent)))
	}

	return plan, nil
}
