// Mystic serves a set of Go functions as tools over HTTP, WebSocket, or the
// Model Context Protocol. Without a command it serves the pizzeria demo tools
// with the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `Usage: mystic [flags]
       mystic <command> [flags]

Commands:
  serve    Serve the tools with the configured backend (default)
  tools    List the tools and their schemas
  call     Call a tool: mystic call <tool> [json-arguments]
  check    Compare the tool schemas against a snapshot file
  inspect  List or call the tools of an MCP server

Flags:
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	cancel()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			return serveCmd(ctx, args[1:])
		case "tools":
			return toolsCmd(ctx, args[1:])
		case "call":
			return callCmd(ctx, args[1:])
		case "check":
			return checkCmd(args[1:])
		case "inspect":
			return inspectCmd(ctx, args[1:])
		}
	}

	fs := flag.NewFlagSet("mystic", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	showVersion := fs.Bool("version", false, "print the version and exit")
	opts := serveFlags(fs)
	_ = fs.Parse(args)

	if *showVersion {
		fmt.Printf("mystic %s\n", version)
		return nil
	}

	if err := loadDotEnv(opts.envFile); err != nil {
		return err
	}

	return runServe(ctx, opts.serveOptions)
}

type serveFlagValues struct {
	serveOptions
	envFile string
}

func serveFlags(fs *flag.FlagSet) *serveFlagValues {
	v := &serveFlagValues{}
	fs.StringVar(&v.config, "config", "", "path to configuration file (default: mystic.yaml if present)")
	fs.StringVar(&v.envFile, "env", ".env", "path to .env file (ignored if missing)")
	fs.StringVar(&v.backend, "backend", "", "override server.backend (http, websocket, mcp-stdio, mcp-http)")
	fs.StringVar(&v.host, "host", "", "override server.host")
	fs.IntVar(&v.port, "port", 0, "override server.port")
	return v
}

func serveCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mystic serve [flags]\n\nServe the tools with the configured backend.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	opts := serveFlags(fs)
	_ = fs.Parse(args)

	if err := loadDotEnv(opts.envFile); err != nil {
		return err
	}

	return runServe(ctx, opts.serveOptions)
}

func toolsCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mystic tools [flags]\n\nList the tools and their schemas.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var opts toolsOptions
	fs.StringVar(&opts.config, "config", "", "path to configuration file")
	fs.StringVar(&opts.format, "format", "table", "output format: table, json, yaml, markdown")
	fs.StringVar(&opts.url, "url", "", "list the tools of a running server (http:// or ws://)")
	fs.BoolVar(&opts.raw, "raw", false, "print markdown without terminal styling")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	_ = fs.Parse(args)

	if err := loadDotEnv(*envFile); err != nil {
		return err
	}

	return runTools(ctx, opts, os.Stdout)
}

func callCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mystic call [flags] <tool> [json-arguments]\n\nCall a tool and print its result.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var opts callOptions
	fs.StringVar(&opts.config, "config", "", "path to configuration file")
	fs.StringVar(&opts.url, "url", "", "call a running server (http:// or ws://) instead of the local tools")
	fs.BoolVar(&opts.interactive, "i", false, "prompt for each argument")
	envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
	_ = fs.Parse(args)

	if err := loadDotEnv(*envFile); err != nil {
		return err
	}

	return runCall(ctx, opts, fs.Args(), os.Stdout, os.Stderr)
}

func checkCmd(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mystic check [flags]\n\nCompare the tool schemas against a snapshot file.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var opts checkOptions
	fs.StringVar(&opts.config, "config", "", "path to configuration file")
	fs.StringVar(&opts.snapshot, "snapshot", "tools.snapshot.json", "path to the snapshot file")
	fs.BoolVar(&opts.update, "update", false, "rewrite the snapshot instead of comparing")
	_ = fs.Parse(args)

	return runCheck(opts, os.Stdout)
}

func inspectCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mystic inspect [flags]\n\nList or call the tools of an MCP server.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	var opts inspectOptions
	fs.StringVar(&opts.url, "url", "", "streamable HTTP endpoint of the server")
	fs.StringVar(&opts.sse, "sse", "", "SSE endpoint of the server")
	fs.StringVar(&opts.cmd, "cmd", "", "command that starts a stdio server")
	fs.StringVar(&opts.format, "format", "table", "output format: table, json, yaml, markdown")
	fs.BoolVar(&opts.raw, "raw", false, "print markdown without terminal styling")
	fs.StringVar(&opts.call, "call", "", "call this tool instead of listing")
	fs.StringVar(&opts.args, "args", "", "JSON arguments for --call")
	_ = fs.Parse(args)

	return runInspect(ctx, opts, os.Stdout, os.Stderr)
}
