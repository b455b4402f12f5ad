// Package mcp serves TKB queries to MCP clients over stdio.
//
// The server speaks newline-delimited JSON-RPC 2.0. Every tool reply is
// an envelope serialized into a single text content block, so clients
// see freshness metadata and structured errors regardless of transport.
package mcp

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"

	"tkb/internal/query"
)

// Server is the stdio MCP server.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	logger  *slog.Logger
	version string
	engine  *query.Engine
	tools   map[string]toolHandler
}

// NewServer creates an MCP server over a query engine.
func NewServer(version string, engine *query.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	server := &Server{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		logger:  logger.With("component", "mcp"),
		version: version,
		engine:  engine,
		tools:   make(map[string]toolHandler),
	}
	server.registerTools()

	return server
}

// Start runs the message loop until stdin closes. Malformed lines are
// answered with a parse error and skipped; a broken transport (such as
// an oversized message) ends the loop with an error.
func (s *Server) Start() error {
	s.logger.Info("MCP server starting", "version", s.version)

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.logger.Info("MCP server shutting down (EOF)")
				return nil
			}

			var pe *parseError
			if errors.As(err, &pe) {
				s.logger.Warn("discarding unparseable message", "error", pe.Unwrap().Error())
				if werr := s.writeError(nil, ParseError, pe.Error()); werr != nil {
					s.logger.Error("failed to write parse error", "error", werr.Error())
				}
				continue
			}

			s.logger.Error("transport read failed", "error", err.Error())
			return err
		}

		response := s.handleMessage(msg)
		if response == nil {
			continue
		}
		if err := s.writeMessage(response); err != nil {
			s.logger.Error("failed to write response", "error", err.Error())
		}
	}
}

// SetStdin sets the input stream (for testing).
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout sets the output stream (for testing).
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}
