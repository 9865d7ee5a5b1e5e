// Package engine wires the RFX components into one facade: configuration,
// logging, the LSP session, the AST provider registry, and the
// planner/updater/applier pipeline behind the CLI and MCP surfaces.
package engine

import (
	"context"

	"rfx/internal/applier"
	"rfx/internal/config"
	"rfx/internal/edit"
	"rfx/internal/lang"
	"rfx/internal/logging"
	"rfx/internal/lsp"
	"rfx/internal/planner"
	"rfx/internal/updater"
)

// Engine owns the full refactoring pipeline for one repository.
type Engine struct {
	cfg      *config.Config
	logger   *logging.Logger
	session  *lsp.Session
	registry *lang.Registry

	planner *planner.Planner
	updater *updater.Updater
	applier *applier.Applier
}

// PlanResult is the outcome of planning one intent: the expanded plan, which
// planning path produced the primary edits, and the files the reference scan
// pulled in beyond the primary plan.
type PlanResult struct {
	Plan          *edit.Plan     `json:"plan"`
	Source        planner.Source `json:"source"`
	AffectedFiles []string       `json:"affectedFiles"`
}

// New loads configuration from repoRoot and builds an engine around it.
func New(repoRoot string) (*Engine, error) {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg), nil
}

// NewWithConfig builds an engine from an already-validated configuration.
func NewWithConfig(cfg *config.Config) *Engine {
	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.LogLevel(cfg.Logging.Level),
	})
	registry := lang.DefaultRegistry()

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
	}

	// A disabled session stays nil so the planner never consults it. A
	// typed-nil session behind the interface would defeat that check.
	var client planner.LspClient
	if cfg.Lsp.Enabled {
		e.session = lsp.NewSession(cfg, logger)
		client = e.session
	}

	e.planner = planner.New(cfg, logger, client, registry)
	e.updater = updater.New(cfg, logger, registry)
	e.applier = applier.New(cfg, logger, registry)
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Logger returns the engine's root logger.
func (e *Engine) Logger() *logging.Logger {
	return e.logger
}

// Plan computes the full edit plan for an intent: primary edits via the
// planner, then reference and import ripple via the updater.
func (e *Engine) Plan(ctx context.Context, intent edit.Intent) (*PlanResult, error) {
	planned, err := e.planner.Plan(ctx, intent)
	if err != nil {
		return nil, err
	}

	expanded, affected, err := e.updater.Expand(ctx, planned.Plan)
	if err != nil {
		return nil, err
	}

	e.logger.Info("plan ready", map[string]interface{}{
		"intent":   string(intent.Kind),
		"source":   string(planned.Source),
		"files":    len(expanded.Files()),
		"affected": affected.Len(),
	})

	return &PlanResult{
		Plan:          expanded,
		Source:        planned.Source,
		AffectedFiles: affected.Files(),
	}, nil
}

// Preview validates a plan against the current workspace and renders
// unified diffs without writing anything.
func (e *Engine) Preview(ctx context.Context, plan *edit.Plan) (*applier.DryRunReport, error) {
	return e.applier.Preview(ctx, plan)
}

// Apply validates and commits a plan transactionally.
func (e *Engine) Apply(ctx context.Context, plan *edit.Plan) (*edit.ApplyResult, error) {
	return e.applier.Apply(ctx, plan)
}

// LspStats reports per-language server health for diagnostics. Returns nil
// when the LSP session is disabled.
func (e *Engine) LspStats() map[string]interface{} {
	if e.session == nil {
		return nil
	}
	return e.session.Stats()
}

// Close shuts down any running language servers.
func (e *Engine) Close() error {
	if e.session == nil {
		return nil
	}
	return e.session.Shutdown()
}
