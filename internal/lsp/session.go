package lsp

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"rfx/internal/config"
	"rfx/internal/edit"
	rfxerrors "rfx/internal/errors"
	"rfx/internal/lang"
	"rfx/internal/logging"
	"rfx/internal/paths"
)

// Session supervises the language server processes for one repository.
// Servers start lazily on the first request for their language and live
// until Shutdown.
type Session struct {
	cfg    *config.Config
	logger *logging.Logger

	processes map[string]*ServerProcess
	mu        sync.Mutex
}

// NewSession creates a session over the configured servers. No process is
// started yet.
func NewSession(cfg *config.Config, logger *logging.Logger) *Session {
	return &Session{
		cfg:       cfg,
		logger:    logger.WithComponent("lsp"),
		processes: make(map[string]*ServerProcess),
	}
}

// serverKey maps a language to its config entry. The TypeScript server
// handles the whole ECMAScript family.
func serverKey(language lang.Language) string {
	switch language {
	case lang.LangTSX, lang.LangJavaScript:
		return string(lang.LangTypeScript)
	default:
		return string(language)
	}
}

// Enabled reports whether a server is configured and LSP planning is on.
func (s *Session) Enabled(language lang.Language) bool {
	if !s.cfg.Lsp.Enabled {
		return false
	}
	_, ok := s.cfg.Lsp.Servers[serverKey(language)]
	return ok
}

// ensureServer returns a healthy process for the language, starting and
// initializing one if needed.
func (s *Session) ensureServer(ctx context.Context, language lang.Language) (*ServerProcess, error) {
	key := serverKey(language)

	s.mu.Lock()
	defer s.mu.Unlock()

	if proc, exists := s.processes[key]; exists {
		if proc.IsHealthy() {
			return proc, nil
		}
		proc.Shutdown()
		delete(s.processes, key)
	}

	if len(s.processes) >= s.cfg.Lsp.MaxTotalProcesses {
		return nil, rfxerrors.New(rfxerrors.LspTransport,
			fmt.Sprintf("at capacity: %d language servers already running", len(s.processes)))
	}

	serverCfg, ok := s.cfg.Lsp.Servers[key]
	if !ok {
		return nil, rfxerrors.New(rfxerrors.LspTransport,
			fmt.Sprintf("no language server configured for %s", language))
	}

	timeout := time.Duration(s.cfg.Lsp.RequestTimeoutMs) * time.Millisecond
	proc := newServerProcess(language, s.cfg.RepoRoot, timeout, s.logger)

	cmd := exec.Command(serverCfg.Command, serverCfg.Args...)
	cmd.Dir = s.cfg.RepoRoot

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.LspTransport, "failed to create stdin pipe", err)
	}
	proc.stdin = stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.LspTransport, "failed to create stdout pipe", err)
	}
	proc.stdout = stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.LspTransport, "failed to create stderr pipe", err)
	}
	proc.stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.LspTransport,
			fmt.Sprintf("failed to start %s", serverCfg.Command), err)
	}
	proc.cmd = cmd

	go proc.readLoop()
	go proc.stderrLoop()

	if err := proc.initialize(ctx); err != nil {
		proc.Shutdown()
		return nil, err
	}

	s.processes[key] = proc

	s.logger.Info("started language server", map[string]interface{}{
		"language": string(language),
		"command":  serverCfg.Command,
	})

	return proc, nil
}

// Rename asks the server for the workspace-wide edit of renaming the symbol
// at pos. A nil edit means the server declined without error.
func (s *Session) Rename(ctx context.Context, language lang.Language, file string, content []byte, pos edit.Position, newName string) (*WorkspaceEdit, error) {
	proc, err := s.ensureServer(ctx, language)
	if err != nil {
		return nil, err
	}

	abs := paths.Join(s.cfg.RepoRoot, file)
	if err := proc.openDocument(abs, content); err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.LspTransport, "didOpen failed", err)
	}

	return proc.rename(ctx, abs, pos, newName)
}

// CodeActions asks the server for refactoring actions over a range.
func (s *Session) CodeActions(ctx context.Context, language lang.Language, file string, content []byte, rng edit.Range, kinds []string) ([]CodeAction, error) {
	proc, err := s.ensureServer(ctx, language)
	if err != nil {
		return nil, err
	}

	abs := paths.Join(s.cfg.RepoRoot, file)
	if err := proc.openDocument(abs, content); err != nil {
		return nil, rfxerrors.Wrap(rfxerrors.LspTransport, "didOpen failed", err)
	}

	return proc.codeActions(ctx, abs, rng, kinds)
}

// Diagnostics returns the latest diagnostics the server published for file,
// or nil when no server is running for its language.
func (s *Session) Diagnostics(language lang.Language, file string) []Diagnostic {
	s.mu.Lock()
	proc := s.processes[serverKey(language)]
	s.mu.Unlock()

	if proc == nil {
		return nil
	}
	return proc.DiagnosticsFor(paths.Join(s.cfg.RepoRoot, file))
}

// Stats reports per-server state for diagnostics surfaces.
func (s *Session) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	servers := make(map[string]interface{}, len(s.processes))
	for key, proc := range s.processes {
		servers[key] = map[string]interface{}{
			"state":               string(proc.State()),
			"consecutiveFailures": proc.ConsecutiveFailures(),
		}
	}
	return map[string]interface{}{
		"enabled": s.cfg.Lsp.Enabled,
		"running": len(s.processes),
		"max":     s.cfg.Lsp.MaxTotalProcesses,
		"servers": servers,
	}
}

// Shutdown stops every running server.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, proc := range s.processes {
		s.logger.Info("shutting down language server", map[string]interface{}{
			"language": key,
		})
		proc.Shutdown()
	}
	s.processes = make(map[string]*ServerProcess)
	return nil
}
