package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single newline-delimited message (1 MiB).
const MaxMessageSize = 1024 * 1024

// parseError marks input that scanned as a line but was not valid JSON.
// The message loop answers it with a -32700 response and keeps reading.
type parseError struct {
	err error
}

func (e *parseError) Error() string {
	return fmt.Sprintf("parse message: %v", e.err)
}

func (e *parseError) Unwrap() error {
	return e.err
}

// readMessage reads one newline-delimited JSON-RPC message from stdin.
// Returns io.EOF when the stream ends cleanly.
func (s *Server) readMessage() (*MCPMessage, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		buf := make([]byte, MaxMessageSize)
		s.scanner.Buffer(buf, MaxMessageSize)
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var msg MCPMessage
	if err := json.Unmarshal(s.scanner.Bytes(), &msg); err != nil {
		return nil, &parseError{err: err}
	}

	return &msg, nil
}

// writeMessage writes a JSON-RPC message followed by a newline.
func (s *Server) writeMessage(msg *MCPMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

// writeError writes an error response.
func (s *Server) writeError(id interface{}, code int, message string) error {
	return s.writeMessage(NewErrorMessage(id, code, message, nil))
}
