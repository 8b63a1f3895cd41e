package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		serveCmd.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: opwire serve [flags]\n\nServe the operation registry over HTTP and WebSocket.\n\nFlags:\n")
			serveCmd.PrintDefaults()
		}
		configPath := serveCmd.String("config", "opwire.yaml", "path to configuration file")
		envFile := serveCmd.String("env", ".env", "path to .env file (ignored if missing)")
		listen := serveCmd.String("listen", "", "listen address (overrides config)")
		_ = serveCmd.Parse(os.Args[2:])

		exitOn(loadDotEnv(*envFile))
		exitOn(runServe(*configPath, *listen))
	case "run":
		runCmd := flag.NewFlagSet("run", flag.ExitOnError)
		runCmd.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: opwire run [flags] <instruction>\n\nRun one agent session against the registry and print the answer.\n\nFlags:\n")
			runCmd.PrintDefaults()
		}
		configPath := runCmd.String("config", "opwire.yaml", "path to configuration file")
		envFile := runCmd.String("env", ".env", "path to .env file (ignored if missing)")
		remote := runCmd.String("remote", "", "base URL of a running opwire server (default: in-process registry)")
		verbose := runCmd.Bool("verbose", false, "print each operation call and its result")
		_ = runCmd.Parse(os.Args[2:])

		if runCmd.NArg() == 0 {
			runCmd.Usage()
			os.Exit(2)
		}

		exitOn(loadDotEnv(*envFile))
		exitOn(runAgent(*configPath, *remote, runCmd.Arg(0), *verbose))
	case "ops":
		opsCmd := flag.NewFlagSet("ops", flag.ExitOnError)
		opsCmd.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: opwire ops [flags]\n\nPrint the operation advertisement as JSON.\n\nFlags:\n")
			opsCmd.PrintDefaults()
		}
		configPath := opsCmd.String("config", "opwire.yaml", "path to configuration file")
		envFile := opsCmd.String("env", ".env", "path to .env file (ignored if missing)")
		_ = opsCmd.Parse(os.Args[2:])

		exitOn(loadDotEnv(*envFile))
		exitOn(runOps(*configPath))
	case "mcp":
		mcpCmd := flag.NewFlagSet("mcp", flag.ExitOnError)
		mcpCmd.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: opwire mcp [flags]\n\nServe the operation registry as an MCP server on stdio.\n\nFlags:\n")
			mcpCmd.PrintDefaults()
		}
		configPath := mcpCmd.String("config", "opwire.yaml", "path to configuration file")
		envFile := mcpCmd.String("env", ".env", "path to .env file (ignored if missing)")
		_ = mcpCmd.Parse(os.Args[2:])

		exitOn(loadDotEnv(*envFile))
		exitOn(runMCP(*configPath))
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: opwire <command> [flags]\n\nCommands:\n  serve  Serve the operation registry over HTTP and WebSocket\n  run    Run one agent session against the registry\n  ops    Print the operation advertisement as JSON\n  mcp    Serve the operation registry as an MCP server on stdio\n")
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
