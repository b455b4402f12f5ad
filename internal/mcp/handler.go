package mcp

import (
	"context"
	"fmt"

	"tkb/internal/envelope"
	"tkb/internal/output"
)

// protocolVersion is the MCP protocol revision this server implements.
const protocolVersion = "2024-11-05"

// ServerCapabilities advertises what the server supports.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability describes the tools surface. The toolset is static,
// so listChanged stays false.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerInfo identifies the server to the client.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the response to the initialize request.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// handleMessage processes one incoming message and returns the response,
// or nil when none is due (notifications, stray responses).
func (s *Server) handleMessage(msg *MCPMessage) *MCPMessage {
	if msg.IsRequest() {
		return s.handleRequest(msg)
	}

	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}

	if msg.IsResponse() {
		s.logger.Debug("ignoring unsolicited response", "id", msg.Id)
		return nil
	}

	return NewErrorMessage(msg.Id, InvalidRequest, "invalid message: not a request or notification", nil)
}

func (s *Server) handleRequest(msg *MCPMessage) *MCPMessage {
	s.logger.Debug("handling request", "method", msg.Method, "id", msg.Id)

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "tools/list":
		return s.handleListTools(msg)
	case "tools/call":
		return s.handleCallTool(msg)
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("method not found: %s", msg.Method), nil)
	}
}

// handleNotification logs and drops the notification. The server keeps
// no per-client state, so nothing reacts to them.
func (s *Server) handleNotification(msg *MCPMessage) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("client initialized")
	default:
		s.logger.Debug("ignoring notification", "method", msg.Method)
	}
}

func (s *Server) handleInitialize(msg *MCPMessage) *MCPMessage {
	params, _ := msg.Params.(map[string]interface{})
	s.logger.Info("MCP client connecting", "clientInfo", params["clientInfo"])

	result := &InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    "tkb",
			Version: s.version,
		},
	}

	return NewResultMessage(msg.Id, result)
}

func (s *Server) handleListTools(msg *MCPMessage) *MCPMessage {
	return NewResultMessage(msg.Id, map[string]interface{}{
		"tools": s.GetToolDefinitions(),
	})
}

// handleCallTool executes a tool. Handler failures become envelopes with
// the error field set; only protocol-level problems (missing name,
// unknown tool) surface as JSON-RPC errors.
func (s *Server) handleCallTool(msg *MCPMessage) *MCPMessage {
	params, ok := msg.Params.(map[string]interface{})
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, "invalid params: expected object", nil)
	}

	toolName, ok := params["name"].(string)
	if !ok || toolName == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "missing tool name", nil)
	}

	args, ok := params["arguments"].(map[string]interface{})
	if !ok {
		args = make(map[string]interface{})
	}

	handler, exists := s.tools[toolName]
	if !exists {
		return NewErrorMessage(msg.Id, InvalidParams, fmt.Sprintf("unknown tool: %s", toolName), nil)
	}

	s.logger.Info("calling tool", "tool", toolName)

	resp, err := handler(context.Background(), args)
	if err != nil {
		resp = envelope.NewErrorResponse(err)
	}

	return s.toolResult(msg.Id, resp)
}

// toolResult wraps an envelope into the MCP content block shape.
func (s *Server) toolResult(id interface{}, resp *envelope.Response) *MCPMessage {
	data, err := output.DeterministicEncode(resp)
	if err != nil {
		return NewErrorMessage(id, InternalError, fmt.Sprintf("encode response: %v", err), nil)
	}

	return NewResultMessage(id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(data),
			},
		},
	})
}
