// Package mcp exposes the refactoring engine to agent clients over the
// Model Context Protocol: line-delimited JSON-RPC 2.0 on stdio, with
// three tools covering plan, preview, and apply. Positions cross this
// boundary 1-indexed and are converted before the engine sees them.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"rfx/internal/engine"
	rfxerrors "rfx/internal/errors"
	"rfx/internal/logging"
)

// ToolHandler is a function that handles a tool call and returns a
// JSON-serializable result.
type ToolHandler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// MCPServer represents the MCP server
type MCPServer struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *logging.Logger
	version string
	engine  *engine.Engine
	tools   map[string]ToolHandler
}

// NewMCPServer creates a new MCP server around one engine
func NewMCPServer(version string, eng *engine.Engine, logger *logging.Logger) *MCPServer {
	server := &MCPServer{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger.WithComponent("mcp"),
		version: version,
		engine:  eng,
		tools:   make(map[string]ToolHandler),
	}

	server.RegisterTools()
	return server
}

// SetStdin sets the input stream (for testing)
func (s *MCPServer) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing)
func (s *MCPServer) SetStdout(w io.Writer) {
	s.stdout = w
}

// Start starts the MCP server and begins processing messages.
// It returns when stdin reaches EOF.
func (s *MCPServer) Start(ctx context.Context) error {
	s.logger.Info("MCP server starting", map[string]interface{}{
		"version": s.version,
	})

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)", nil)
				return nil
			}
			s.logger.Error("error reading message", map[string]interface{}{
				"error": err.Error(),
			})
			if msg != nil && msg.Id != nil {
				_ = s.writeError(msg.Id, ParseError, fmt.Sprintf("failed to parse message: %v", err))
			}
			continue
		}

		response := s.handleMessage(ctx, msg)
		if response != nil {
			if err := s.writeMessage(response); err != nil {
				s.logger.Error("error writing response", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// handleMessage processes an incoming MCP message and returns a response
func (s *MCPServer) handleMessage(ctx context.Context, msg *MCPMessage) *MCPMessage {
	if msg.IsRequest() {
		return s.handleRequest(ctx, msg)
	}
	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}
	return NewErrorMessage(msg.Id, InvalidRequest, "invalid message: not a request or notification", nil)
}

func (s *MCPServer) handleRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	s.logger.Debug("handling request", map[string]interface{}{
		"method": msg.Method,
		"id":     msg.Id,
	})

	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.Id, s.handleInitialize(msg.Params))
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{
			"tools": s.GetToolDefinitions(),
		})
	case "tools/call":
		return s.handleCallTool(ctx, msg)
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("method not found: %s", msg.Method), nil)
	}
}

func (s *MCPServer) handleNotification(msg *MCPMessage) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("client initialized", nil)
	default:
		s.logger.Debug("unknown notification", map[string]interface{}{
			"method": msg.Method,
		})
	}
}

// ServerCapabilities represents the capabilities exposed by the MCP server
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability represents the tools capability
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerInfo represents information about the RFX server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult represents the result of the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

func (s *MCPServer) handleInitialize(params interface{}) *InitializeResult {
	if p, ok := params.(map[string]interface{}); ok {
		s.logger.Info("MCP server initializing", map[string]interface{}{
			"clientInfo": p["clientInfo"],
		})
	}

	return &InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    "rfx",
			Version: s.version,
		},
	}
}

// handleCallTool executes a tool and wraps the outcome in MCP content
// blocks. Domain failures travel inside the payload so the agent sees the
// error code; JSON-RPC errors are reserved for protocol misuse.
func (s *MCPServer) handleCallTool(ctx context.Context, msg *MCPMessage) *MCPMessage {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "invalid params: expected object", nil)
	}

	toolName, ok := params["name"].(string)
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "missing tool name", nil)
	}

	toolParams, ok := params["arguments"].(map[string]interface{})
	if !ok {
		toolParams = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return NewErrorMessage(msg.Id, InvalidParams, fmt.Sprintf("unknown tool: %s", toolName), nil)
	}

	s.logger.Info("calling tool", map[string]interface{}{
		"tool": toolName,
	})

	result, err := handler(ctx, toolParams)
	if err != nil {
		return NewResultMessage(msg.Id, contentBlock(errorPayload(err), true))
	}

	return NewResultMessage(msg.Id, contentBlock(result, false))
}

func contentBlock(payload interface{}, isError bool) map[string]interface{} {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error":{"code":"INTERNAL_ERROR","message":%q}}`, err.Error()))
		isError = true
	}

	out := map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(data),
			},
		},
	}
	if isError {
		out["isError"] = true
	}
	return out
}

func errorPayload(err error) map[string]interface{} {
	payload := map[string]interface{}{
		"code":    string(rfxerrors.CodeOf(err)),
		"message": err.Error(),
	}
	var rerr *rfxerrors.RfxError
	if errors.As(err, &rerr) {
		if rerr.File != "" {
			payload["file"] = rerr.File
		}
		if rerr.Details != nil {
			payload["details"] = rerr.Details
		}
	}
	return map[string]interface{}{"error": payload}
}
