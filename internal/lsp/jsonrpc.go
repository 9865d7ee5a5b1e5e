package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	rfxerrors "rfx/internal/errors"
)

// jsonRpcMessage represents a JSON-RPC 2.0 message. Ids stay raw JSON: ours
// are uuid strings, but servers may send numeric ids of their own and we
// have to echo them back untouched.
type jsonRpcMessage struct {
	Jsonrpc string          `json:"jsonrpc"`
	Id      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC error
type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// sendRequest sends a JSON-RPC request with a fresh uuid correlation id and
// waits for the response. On timeout or cancellation the pending entry is
// removed first, so a late response for that id is discarded by the read
// loop instead of being delivered to the next caller.
func (p *ServerProcess) sendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := uuid.NewString()
	rawId, _ := json.Marshal(id)

	respChan := make(chan *jsonRpcMessage, 1)
	p.requestsMu.Lock()
	p.pendingRequests[id] = respChan
	p.requestsMu.Unlock()

	unregister := func() {
		p.requestsMu.Lock()
		delete(p.pendingRequests, id)
		p.requestsMu.Unlock()
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		unregister()
		return nil, rfxerrors.Wrap(rfxerrors.LspTransport, "failed to encode request params", err)
	}

	msg := jsonRpcMessage{
		Jsonrpc: "2.0",
		Id:      rawId,
		Method:  method,
		Params:  rawParams,
	}

	if err := p.writeMessage(&msg); err != nil {
		unregister()
		return nil, rfxerrors.Wrap(rfxerrors.LspTransport, fmt.Sprintf("failed to send %s request", method), err)
	}

	select {
	case resp, ok := <-respChan:
		if !ok {
			return nil, rfxerrors.New(rfxerrors.LspTransport, "server closed the connection")
		}
		if resp.Error != nil {
			if resp.Error.Code == codeMethodNotFound {
				return nil, rfxerrors.New(rfxerrors.LspMethodNotFound,
					fmt.Sprintf("server does not implement %s", method))
			}
			return nil, rfxerrors.New(rfxerrors.LspServerRejected,
				fmt.Sprintf("%s rejected [%d]: %s", method, resp.Error.Code, resp.Error.Message))
		}
		p.RecordSuccess()
		return resp.Result, nil
	case <-time.After(p.requestTimeout):
		unregister()
		p.RecordFailure()
		return nil, rfxerrors.New(rfxerrors.LspTimeout,
			fmt.Sprintf("%s request timed out after %s", method, p.requestTimeout))
	case <-ctx.Done():
		unregister()
		return nil, rfxerrors.Wrap(rfxerrors.LspTimeout, fmt.Sprintf("%s request cancelled", method), ctx.Err())
	case <-p.done:
		return nil, rfxerrors.New(rfxerrors.LspTransport, "server process shutting down")
	}
}

// sendNotification sends a JSON-RPC notification (no response expected)
func (p *ServerProcess) sendNotification(method string, params interface{}) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return rfxerrors.Wrap(rfxerrors.LspTransport, "failed to encode notification params", err)
	}

	msg := jsonRpcMessage{
		Jsonrpc: "2.0",
		Method:  method,
		Params:  rawParams,
	}
	return p.writeMessage(&msg)
}

// writeMessage writes a Content-Length framed message to the server's stdin.
func (p *ServerProcess) writeMessage(msg *jsonRpcMessage) error {
	if p.stdin == nil {
		return fmt.Errorf("stdin not available")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := p.stdin.Write([]byte(header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := p.stdin.Write(data); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// readLoop continuously reads messages from the server until EOF.
func (p *ServerProcess) readLoop() {
	defer func() {
		p.SetState(StateDead)

		p.requestsMu.Lock()
		for _, ch := range p.pendingRequests {
			close(ch)
		}
		p.pendingRequests = make(map[string]chan *jsonRpcMessage)
		p.requestsMu.Unlock()
	}()

	reader := bufio.NewReader(p.stdout)

	for {
		select {
		case <-p.done:
			return
		default:
			msg, err := readMessage(reader)
			if err != nil {
				if err == io.EOF {
					return
				}
				// Malformed frame, resync on the next header
				continue
			}
			p.handleMessage(msg)
		}
	}
}

// readMessage reads a single Content-Length framed message.
func readMessage(reader *bufio.Reader) (*jsonRpcMessage, error) {
	headers := make(map[string]string)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 {
			headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	contentLengthStr, ok := headers["Content-Length"]
	if !ok {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	contentLength, err := strconv.Atoi(contentLengthStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Content-Length: %w", err)
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(reader, content); err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var msg jsonRpcMessage
	if err := json.Unmarshal(content, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &msg, nil
}

// handleMessage routes an incoming message: responses to their pending
// request, server-initiated traffic to handleServerMessage.
func (p *ServerProcess) handleMessage(msg *jsonRpcMessage) {
	if len(msg.Id) > 0 && msg.Method == "" {
		var id string
		if err := json.Unmarshal(msg.Id, &id); err != nil {
			return // not one of our string ids
		}

		p.requestsMu.Lock()
		respChan, ok := p.pendingRequests[id]
		if ok {
			delete(p.pendingRequests, id)
		}
		p.requestsMu.Unlock()

		if ok {
			select {
			case respChan <- msg:
			default:
			}
		}
		// Responses for unregistered ids are stale (timed out or
		// cancelled requests); drop them.
		return
	}

	if msg.Method != "" {
		p.handleServerMessage(msg)
	}
}

// handleServerMessage handles server-initiated notifications and requests.
func (p *ServerProcess) handleServerMessage(msg *jsonRpcMessage) {
	switch msg.Method {
	case "textDocument/publishDiagnostics":
		var params publishDiagnosticsParams
		if err := json.Unmarshal(msg.Params, &params); err == nil {
			p.storeDiagnostics(params.Uri, params.Diagnostics)
		}
	case "window/logMessage", "window/showMessage", "$/progress":
		// Informational, ignore
	}

	// Server request: answer with an empty result so it does not stall
	if len(msg.Id) > 0 {
		resp := jsonRpcMessage{
			Jsonrpc: "2.0",
			Id:      msg.Id,
			Result:  json.RawMessage("null"),
		}
		_ = p.writeMessage(&resp)
	}
}

// stderrLoop drains stderr so the server never blocks on a full pipe.
func (p *ServerProcess) stderrLoop() {
	if p.stderr == nil {
		return
	}

	buf := make([]byte, 4096)
	for {
		select {
		case <-p.done:
			return
		default:
			n, err := p.stderr.Read(buf)
			if err != nil {
				return
			}
			if n > 0 && p.logger != nil {
				p.logger.Debug("lsp stderr", map[string]interface{}{
					"language": string(p.Language),
					"output":   strings.TrimSpace(string(buf[:n])),
				})
			}
		}
	}
}
