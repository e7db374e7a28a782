package main

import (
	"flag"
	"fmt"
	"os"
)

const usage = `Usage: agentic [command] [flags]

Commands:
  serve         Run the HTTP server (default)
  ask <query>   Ask a running server and render the answer
  mcp           Serve the tool registry over MCP on stdin/stdout

Run "agentic <command> -h" for command flags.
`

func main() {
	args := os.Args[1:]

	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "ask":
		err = runAsk(args)
	case "mcp":
		err = runMCP(args)
	case "help":
		fmt.Fprint(os.Stderr, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every command that builds an engine.
type commonFlags struct {
	configPath string
	envFile    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to a YAML configuration file (optional)")
	fs.StringVar(&c.envFile, "env", ".env", "path to .env file (ignored if missing)")
}
