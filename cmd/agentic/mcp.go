package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
)

// runMCP serves the tool registry over MCP on stdin/stdout. Logs go to
// stderr so they never corrupt the protocol stream.
func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	var flags commonFlags
	flags.register(fs)
	_ = fs.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, log, err := setup(ctx, flags, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	log.Info("serving tools over stdio", "tools", eng.ToolBox().Names())

	return eng.MCPServer().Serve(ctx, os.Stdin, os.Stdout)
}
