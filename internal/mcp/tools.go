package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"rfx/internal/edit"
	rfxerrors "rfx/internal/errors"
)

// Tool represents an RFX tool exposed via MCP
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// RegisterTools registers all tool handlers
func (s *MCPServer) RegisterTools() {
	s.tools["refactor.plan"] = s.handleRefactorPlan
	s.tools["refactor.preview"] = s.handleRefactorPreview
	s.tools["refactor.apply"] = s.handleRefactorApply
}

// GetToolDefinitions returns all tool definitions
func (s *MCPServer) GetToolDefinitions() []Tool {
	positionProps := map[string]interface{}{
		"line": map[string]interface{}{
			"type":        "integer",
			"description": "1-indexed line of the target symbol occurrence (optional disambiguator)",
		},
		"column": map[string]interface{}{
			"type":        "integer",
			"description": "1-indexed column in UTF-16 code units; defaults to 1",
		},
	}

	planProps := map[string]interface{}{
		"kind": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"rename", "extract-function", "extract-variable", "inline-variable", "move", "delete"},
			"description": "The refactoring to plan",
		},
		"file": map[string]interface{}{
			"type":        "string",
			"description": "Repo-relative path of the primary target file",
		},
		"symbol": map[string]interface{}{
			"type":        "string",
			"description": "Symbol name for rename/inline/move/delete",
		},
		"newName": map[string]interface{}{
			"type":        "string",
			"description": "Replacement name for rename, or the name of the extracted function/variable",
		},
		"startLine": map[string]interface{}{
			"type":        "integer",
			"description": "1-indexed first line of the selection (extract intents)",
		},
		"startColumn": map[string]interface{}{
			"type":        "integer",
			"description": "1-indexed start column; defaults to 1",
		},
		"endLine": map[string]interface{}{
			"type":        "integer",
			"description": "1-indexed line of the selection end (exclusive position)",
		},
		"endColumn": map[string]interface{}{
			"type":        "integer",
			"description": "1-indexed end column, exclusive; defaults to 1",
		},
		"destination": map[string]interface{}{
			"type":        "string",
			"description": "Repo-relative destination file for move",
		},
	}
	for k, v := range positionProps {
		planProps[k] = v
	}

	planSchema := map[string]interface{}{
		"type":        "object",
		"description": "A plan document previously returned by refactor.plan, passed back verbatim",
	}

	return []Tool{
		{
			Name:        "refactor.plan",
			Description: "Compute a multi-file edit plan for a refactoring intent without touching the workspace. Returns the plan document, the planning source (lsp or ast), and any extra files pulled in by reference expansion.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": planProps,
				"required":   []string{"kind", "file"},
			},
		},
		{
			Name:        "refactor.preview",
			Description: "Validate a plan against the current workspace and render unified diffs. Never writes. Reports conflicts when files changed since planning.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"plan": planSchema,
				},
				"required": []string{"plan"},
			},
		},
		{
			Name:        "refactor.apply",
			Description: "Apply a plan transactionally: all files commit or none do. Stale checksums abort before any write; mid-commit failures roll back.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"plan": planSchema,
				},
				"required": []string{"plan"},
			},
		},
	}
}

func (s *MCPServer) handleRefactorPlan(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	intent, err := intentFromParams(params)
	if err != nil {
		return nil, err
	}
	return s.engine.Plan(ctx, intent)
}

func (s *MCPServer) handleRefactorPreview(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	plan, err := planFromParams(params)
	if err != nil {
		return nil, err
	}
	return s.engine.Preview(ctx, plan)
}

func (s *MCPServer) handleRefactorApply(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	plan, err := planFromParams(params)
	if err != nil {
		return nil, err
	}
	return s.engine.Apply(ctx, plan)
}

// intentFromParams builds an intent from tool arguments, converting the
// 1-indexed human-facing positions to the internal 0-indexed form.
func intentFromParams(params map[string]interface{}) (edit.Intent, error) {
	kind, _ := params["kind"].(string)
	file, _ := params["file"].(string)
	if kind == "" || file == "" {
		return edit.Intent{}, rfxerrors.New(rfxerrors.InternalError, "kind and file are required")
	}

	symbol, _ := params["symbol"].(string)
	newName, _ := params["newName"].(string)
	destination, _ := params["destination"].(string)

	pos := positionFromParams(params, "line", "column")

	switch edit.IntentKind(kind) {
	case edit.IntentRename:
		return edit.NewRename(file, symbol, pos, newName), nil
	case edit.IntentExtractFunction, edit.IntentExtractVariable:
		rng, err := rangeFromParams(params)
		if err != nil {
			return edit.Intent{}, err
		}
		if edit.IntentKind(kind) == edit.IntentExtractFunction {
			return edit.NewExtractFunction(file, rng, newName), nil
		}
		return edit.NewExtractVariable(file, rng, newName), nil
	case edit.IntentInlineVariable:
		return edit.NewInlineVariable(file, symbol, pos), nil
	case edit.IntentMove:
		return edit.NewMove(file, symbol, destination), nil
	case edit.IntentDelete:
		return edit.NewDelete(file, symbol), nil
	default:
		return edit.Intent{}, rfxerrors.New(rfxerrors.InternalError,
			fmt.Sprintf("unknown intent kind %q", kind))
	}
}

func positionFromParams(params map[string]interface{}, lineKey, colKey string) *edit.Position {
	line, ok := intParam(params, lineKey)
	if !ok {
		return nil
	}
	col, ok := intParam(params, colKey)
	if !ok {
		col = 1
	}
	return &edit.Position{Line: line - 1, Character: col - 1}
}

func rangeFromParams(params map[string]interface{}) (edit.Range, error) {
	startLine, okStart := intParam(params, "startLine")
	endLine, okEnd := intParam(params, "endLine")
	if !okStart || !okEnd {
		return edit.Range{}, rfxerrors.New(rfxerrors.InvalidRange,
			"startLine and endLine are required for extract intents")
	}

	startCol, ok := intParam(params, "startColumn")
	if !ok {
		startCol = 1
	}
	endCol, ok := intParam(params, "endColumn")
	if !ok {
		endCol = 1
	}

	return edit.Range{
		Start: edit.Position{Line: startLine - 1, Character: startCol - 1},
		End:   edit.Position{Line: endLine - 1, Character: endCol - 1},
	}, nil
}

func intParam(params map[string]interface{}, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// planFromParams round-trips the plan argument through JSON so the plan
// decoder re-runs its invariants on whatever the client sent back.
func planFromParams(params map[string]interface{}) (*edit.Plan, error) {
	raw, ok := params["plan"]
	if !ok {
		return nil, rfxerrors.New(rfxerrors.InternalError, "plan argument is required")
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.InternalError, "cannot encode plan argument", err)
	}

	var plan edit.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
