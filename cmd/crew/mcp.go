package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"content-crew/internal/adapter/mcpserver"
)

// runMCP serves the content tools over MCP stdio. Logs never go to stdout
// since it carries the protocol.
func runMCP(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := bootstrap(ctx, args, true)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	srv := mcpserver.New(a.tools, version, a.log)
	a.log.Info("serving tools over mcp stdio", "tools", a.tools.Len())
	return srv.Serve(ctx, os.Stdin, os.Stdout)
}
