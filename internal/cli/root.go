// Package cli implements the noted CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/notedaemon/noted/internal/config"
	"github.com/notedaemon/noted/internal/store"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "noted",
	Short: "Notification Center watcher and MCP server",
	Long: "Watches the macOS Notification Center database, scores and stores every\n" +
		"notification, and serves the history to MCP clients and this CLI.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Data directory (default: $NOTED_DB or ~/.noted)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text or json")
}

// loadConfig resolves the active configuration: defaults, then the
// --config file, then NOTED_* environment variables, then the --db flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DataDir = dbPath
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.DataDir)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
