package lsp

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"sync"
	"time"

	"rfx/internal/edit"
	"rfx/internal/lang"
	"rfx/internal/logging"
	"rfx/internal/paths"
)

// ServerState represents the lifecycle state of a language server process.
type ServerState string

const (
	// StateStarting indicates the process is being spawned
	StateStarting ServerState = "starting"
	// StateInitializing indicates the initialize handshake is in flight
	StateInitializing ServerState = "initializing"
	// StateReady indicates the process is ready to handle requests
	StateReady ServerState = "ready"
	// StateDead indicates the process has terminated
	StateDead ServerState = "dead"
)

// ServerProcess is one running language server, owned by a Session.
type ServerProcess struct {
	// Language this process serves
	Language lang.Language

	// WorkspaceRoot is the repository root the server was started in
	WorkspaceRoot string

	state               ServerState
	lastResponseTime    time.Time
	consecutiveFailures int

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu      sync.RWMutex
	writeMu sync.Mutex

	// pendingRequests maps uuid correlation ids to response channels
	pendingRequests map[string]chan *jsonRpcMessage
	requestsMu      sync.RWMutex

	// openDocs tracks didOpen versions per file URI
	openDocs   map[string]int
	openDocsMu sync.Mutex

	// diagnostics holds the latest publishDiagnostics per file URI
	diagnostics   map[string][]Diagnostic
	diagnosticsMu sync.RWMutex

	requestTimeout time.Duration
	logger         *logging.Logger

	done     chan struct{}
	stopOnce sync.Once

	capabilities map[string]interface{}
}

func newServerProcess(language lang.Language, workspaceRoot string, timeout time.Duration, logger *logging.Logger) *ServerProcess {
	return &ServerProcess{
		Language:        language,
		WorkspaceRoot:   workspaceRoot,
		state:           StateStarting,
		pendingRequests: make(map[string]chan *jsonRpcMessage),
		openDocs:        make(map[string]int),
		diagnostics:     make(map[string][]Diagnostic),
		requestTimeout:  timeout,
		logger:          logger,
		done:            make(chan struct{}),
		capabilities:    make(map[string]interface{}),
	}
}

// State returns the current state (thread-safe).
func (p *ServerProcess) State() ServerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState sets the current state (thread-safe).
func (p *ServerProcess) SetState(state ServerState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

// IsHealthy returns true if the process can take requests.
func (p *ServerProcess) IsHealthy() bool {
	return p.State() == StateReady
}

// RecordSuccess records a successful request.
func (p *ServerProcess) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastResponseTime = time.Now()
	p.consecutiveFailures = 0
}

// RecordFailure records a failed request.
func (p *ServerProcess) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveFailures++
}

// ConsecutiveFailures returns the failure count.
func (p *ServerProcess) ConsecutiveFailures() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.consecutiveFailures
}

func (p *ServerProcess) setCapabilities(caps map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.capabilities = caps
}

// Capabilities returns the server's advertised capabilities.
func (p *ServerProcess) Capabilities() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.capabilities
}

func (p *ServerProcess) storeDiagnostics(uri string, diags []Diagnostic) {
	p.diagnosticsMu.Lock()
	defer p.diagnosticsMu.Unlock()
	p.diagnostics[uri] = diags
}

// DiagnosticsFor returns the latest published diagnostics for a file.
func (p *ServerProcess) DiagnosticsFor(absPath string) []Diagnostic {
	p.diagnosticsMu.RLock()
	defer p.diagnosticsMu.RUnlock()
	return p.diagnostics[paths.ToFileURI(absPath)]
}

// initialize runs the LSP handshake: initialize request, then the
// initialized notification.
func (p *ServerProcess) initialize(ctx context.Context) error {
	p.SetState(StateInitializing)

	params := map[string]interface{}{
		"processId": nil,
		"rootUri":   paths.ToFileURI(p.WorkspaceRoot),
		"capabilities": map[string]interface{}{
			"textDocument": map[string]interface{}{
				"rename": map[string]interface{}{
					"prepareSupport": false,
				},
				"codeAction": map[string]interface{}{
					"codeActionLiteralSupport": map[string]interface{}{
						"codeActionKind": map[string]interface{}{
							"valueSet": []string{"refactor", "refactor.extract", "refactor.inline"},
						},
					},
				},
				"publishDiagnostics": map[string]interface{}{},
			},
			"workspace": map[string]interface{}{
				"workspaceEdit": map[string]interface{}{
					"documentChanges": true,
				},
			},
		},
	}

	result, err := p.sendRequest(ctx, "initialize", params)
	if err != nil {
		return err
	}

	var initResult struct {
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	if err := json.Unmarshal(result, &initResult); err == nil && initResult.Capabilities != nil {
		p.setCapabilities(initResult.Capabilities)
	}

	if err := p.sendNotification("initialized", map[string]interface{}{}); err != nil {
		return err
	}

	p.SetState(StateReady)
	p.RecordSuccess()
	return nil
}

// openDocument sends didOpen on first sight of a file, didChange with a
// bumped version when the caller hands us newer content for an open one.
func (p *ServerProcess) openDocument(absPath string, content []byte) error {
	uri := paths.ToFileURI(absPath)

	p.openDocsMu.Lock()
	version, open := p.openDocs[uri]
	if open {
		version++
	} else {
		version = 1
	}
	p.openDocs[uri] = version
	p.openDocsMu.Unlock()

	if open {
		return p.sendNotification("textDocument/didChange", map[string]interface{}{
			"textDocument": versionedTextDocumentIdentifier{Uri: uri, Version: version},
			"contentChanges": []map[string]interface{}{
				{"text": string(content)},
			},
		})
	}

	language, _ := lang.LanguageOfFile(absPath)
	return p.sendNotification("textDocument/didOpen", map[string]interface{}{
		"textDocument": textDocumentItem{
			Uri:        uri,
			LanguageId: string(language),
			Version:    version,
			Text:       string(content),
		},
	})
}

// rename issues textDocument/rename and decodes the workspace edit.
func (p *ServerProcess) rename(ctx context.Context, absPath string, pos edit.Position, newName string) (*WorkspaceEdit, error) {
	result, err := p.sendRequest(ctx, "textDocument/rename", renameParams{
		TextDocument: textDocumentIdentifier{Uri: paths.ToFileURI(absPath)},
		Position:     fromPosition(pos),
		NewName:      newName,
	})
	if err != nil {
		return nil, err
	}

	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var we WorkspaceEdit
	if err := json.Unmarshal(result, &we); err != nil {
		return nil, err
	}
	return &we, nil
}

// codeActions issues textDocument/codeAction filtered to the given kinds.
func (p *ServerProcess) codeActions(ctx context.Context, absPath string, rng edit.Range, kinds []string) ([]CodeAction, error) {
	result, err := p.sendRequest(ctx, "textDocument/codeAction", codeActionParams{
		TextDocument: textDocumentIdentifier{Uri: paths.ToFileURI(absPath)},
		Range:        fromRange(rng),
		Context: codeActionContext{
			Diagnostics: []Diagnostic{},
			Only:        kinds,
		},
	})
	if err != nil {
		return nil, err
	}

	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var actions []CodeAction
	if err := json.Unmarshal(result, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// Shutdown stops the server process and releases its pipes.
func (p *ServerProcess) Shutdown() error {
	p.stopOnce.Do(func() {
		close(p.done)

		if p.stdin != nil {
			_ = p.sendNotification("shutdown", nil)
			_ = p.sendNotification("exit", nil)
			p.stdin.Close()
		}
		if p.stdout != nil {
			p.stdout.Close()
		}
		if p.stderr != nil {
			p.stderr.Close()
		}
		if p.cmd != nil && p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}

		p.SetState(StateDead)
	})
	return nil
}
