package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "migrate":
		err = cmdMigrate()
	case "token":
		err = cmdToken(os.Args[2:], os.Stdout)
	case "config":
		err = cmdConfig(os.Stdout)
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	case "version", "-v", "--version":
		fmt.Printf("signup %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `signup - operator tools for the signup auth service

Usage:
  signup <command> [arguments]

Commands:
  migrate               Apply database migrations for the configured driver
  token inspect <jwt>   Decode a token without verifying it
  token verify <jwt>    Verify a token with the configured secret
  config                Print the effective configuration (secret omitted)
  mcp                   Start the MCP introspection server on stdio
  help                  Show this help message
  version               Show version information

Configuration is read from CONFIG_FILE, .env and the environment,
exactly as signupd does.`)
}

// stderrLogger keeps stdout free for command output and the MCP transport.
func stderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
