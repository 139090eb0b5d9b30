// Package mcpserver serves the content tools to MCP clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"content-crew/internal/domain"
)

const serverName = "content-crew"

// Server exposes every tool of a Toolbox as an MCP tool.
type Server struct {
	mcp    *server.MCPServer
	tools  domain.Toolbox
	logger *slog.Logger
}

// New creates an MCP server for tools. version is reported to clients.
func New(tools domain.Toolbox, version string, logger *slog.Logger) *Server {
	s := &Server{
		mcp:    server.NewMCPServer(serverName, version, server.WithToolCapabilities(false)),
		tools:  tools,
		logger: logger,
	}
	for _, schema := range tools.Schemas() {
		params := schema.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object"}`)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(schema.Name, schema.Description, params), s.handler(schema.Name))
	}
	logger.Debug("mcp tools registered", "count", len(tools.Schemas()))
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// Serve reads JSON-RPC requests from in and writes responses to out until
// ctx is cancelled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening on stdio", "tools", len(s.tools.Schemas()))
	return stdio.Listen(ctx, in, out)
}

// handler adapts one tool. Tool failures are reported as MCP error
// results, never as protocol errors.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, err := s.tools.Get(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := json.RawMessage(`{}`)
		if raw := req.GetRawArguments(); raw != nil {
			data, err := json.Marshal(raw)
			if err != nil {
				return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
			}
			args = data
		}

		res, err := t.Execute(ctx, args)
		switch {
		case err != nil:
			s.logger.Warn("mcp tool call failed", "tool", name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		case res == nil:
			return mcp.NewToolResultText(""), nil
		case res.IsError:
			s.logger.Debug("mcp tool returned error", "tool", name, "content", res.Content)
			return mcp.NewToolResultError(res.Content), nil
		}
		return mcp.NewToolResultText(res.Content), nil
	}
}
