// Package lsp speaks JSON-RPC 2.0 to language servers over subprocess stdio
// and exposes the two requests the planner cares about: rename and code
// actions. One server process per language, supervised for the life of the
// session.
package lsp

import (
	"strings"

	"rfx/internal/edit"
	"rfx/internal/paths"
)

// LSP structures, wire-faithful. Positions are zero-indexed with UTF-16
// columns, same convention the edit package uses, so no translation happens
// at this boundary.

type lspPosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type lspRange struct {
	Start lspPosition `json:"start"`
	End   lspPosition `json:"end"`
}

type textDocumentIdentifier struct {
	Uri string `json:"uri"`
}

type versionedTextDocumentIdentifier struct {
	Uri     string `json:"uri"`
	Version int    `json:"version"`
}

type textDocumentItem struct {
	Uri        string `json:"uri"`
	LanguageId string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type renameParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     lspPosition            `json:"position"`
	NewName      string                 `json:"newName"`
}

type codeActionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Range        lspRange               `json:"range"`
	Context      codeActionContext      `json:"context"`
}

type codeActionContext struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	Only        []string     `json:"only,omitempty"`
}

// CodeAction is a server-proposed refactoring. Only actions carrying an
// inline edit are usable; command-only actions need executeCommand
// round-trips this client does not make.
type CodeAction struct {
	Title string         `json:"title"`
	Kind  string         `json:"kind,omitempty"`
	Edit  *WorkspaceEdit `json:"edit,omitempty"`
}

// Diagnostic is one entry from a publishDiagnostics notification.
type Diagnostic struct {
	Range    lspRange `json:"range"`
	Severity int      `json:"severity,omitempty"`
	Message  string   `json:"message"`
	Source   string   `json:"source,omitempty"`
}

type publishDiagnosticsParams struct {
	Uri         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// WorkspaceEdit carries the edits a server proposes, in either the legacy
// changes map or the documentChanges list. Servers pick one; both normalize
// the same way.
type WorkspaceEdit struct {
	Changes         map[string][]lspTextEdit `json:"changes,omitempty"`
	DocumentChanges []textDocumentEdit       `json:"documentChanges,omitempty"`
}

type lspTextEdit struct {
	Range   lspRange `json:"range"`
	NewText string   `json:"newText"`
}

type textDocumentEdit struct {
	TextDocument versionedTextDocumentIdentifier `json:"textDocument"`
	Edits        []lspTextEdit                   `json:"edits"`
}

// Normalize flattens a WorkspaceEdit into repo-relative edits keyed by file.
// Files outside the repo root are skipped; a server must not edit what the
// plan cannot checksum.
func (we *WorkspaceEdit) Normalize(repoRoot string) (map[string][]edit.TextEdit, error) {
	out := make(map[string][]edit.TextEdit)

	add := func(uri string, edits []lspTextEdit) error {
		abs := paths.FromFileURI(uri)
		rel, err := paths.Canonicalize(abs, repoRoot)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil // outside the repo, skip
		}
		for _, e := range edits {
			out[rel] = append(out[rel], edit.TextEdit{
				File:    rel,
				Range:   toRange(e.Range),
				NewText: e.NewText,
			})
		}
		return nil
	}

	for uri, edits := range we.Changes {
		if err := add(uri, edits); err != nil {
			return nil, err
		}
	}
	for _, dc := range we.DocumentChanges {
		if err := add(dc.TextDocument.Uri, dc.Edits); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// SingleFileEdit builds a WorkspaceEdit touching one file. Used when edits
// are synthesized locally rather than decoded from a server response.
func SingleFileEdit(absPath string, edits []edit.TextEdit) *WorkspaceEdit {
	wire := make([]lspTextEdit, 0, len(edits))
	for _, e := range edits {
		wire = append(wire, lspTextEdit{Range: fromRange(e.Range), NewText: e.NewText})
	}
	return &WorkspaceEdit{
		Changes: map[string][]lspTextEdit{
			paths.ToFileURI(absPath): wire,
		},
	}
}

// IsEmpty reports whether the edit carries no changes at all.
func (we *WorkspaceEdit) IsEmpty() bool {
	if we == nil {
		return true
	}
	for _, edits := range we.Changes {
		if len(edits) > 0 {
			return false
		}
	}
	for _, dc := range we.DocumentChanges {
		if len(dc.Edits) > 0 {
			return false
		}
	}
	return true
}

func toRange(r lspRange) edit.Range {
	return edit.Range{
		Start: edit.Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   edit.Position{Line: r.End.Line, Character: r.End.Character},
	}
}

func fromRange(r edit.Range) lspRange {
	return lspRange{
		Start: lspPosition{Line: r.Start.Line, Character: r.Start.Character},
		End:   lspPosition{Line: r.End.Line, Character: r.End.Character},
	}
}

func fromPosition(p edit.Position) lspPosition {
	return lspPosition{Line: p.Line, Character: p.Character}
}
