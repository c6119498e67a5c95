// Noted: macOS Notification Center watcher and MCP server.
//
// Noted tails the Notification Center database, scores every
// notification, and keeps a queryable history. The history is served to
// AI assistants over MCP and to the terminal through this CLI.
//
// Usage:
//
//	noted serve --watch   # MCP server on stdio, watcher running
//	noted watch           # foreground watcher only
//	noted search "critical from mail today"
//	noted stats
//	noted cleanup --older-than 30
package main

import (
	"log/slog"
	"os"

	"github.com/notedaemon/noted/internal/cli"
)

func main() {
	// Logs always go to stderr: under "serve", stdout carries the MCP
	// stdio transport and must stay clean.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
