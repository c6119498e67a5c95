package cli

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	notedserver "github.com/notedaemon/noted/internal/server"
	"github.com/notedaemon/noted/internal/updater"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: "Serves the notification store to MCP clients over stdio. With --watch\n" +
			"the extraction service runs alongside, so the store stays current while\n" +
			"the server is up.",
		Run: runServe,
	}

	cmd.Flags().BoolP("watch", "w", false, "Run the watch service while serving")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	watch, _ := cmd.Flags().GetBool("watch")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	s, cleanup, err := notedserver.New(cfg, watch)
	if err != nil {
		exitErr("create server", err)
	}
	defer cleanup()

	// Best-effort version notice on stderr; never blocks serving.
	go func() {
		if res := updater.Check(notedserver.Version); res.Available {
			fmt.Fprintf(os.Stderr, "noted v%s is available (running v%s): run `noted update`\n",
				res.Latest, res.Current)
		}
	}()

	// ServeStdio owns the process lifecycle: it returns when stdin
	// closes or on SIGINT/SIGTERM. Logs go to stderr so the MCP
	// transport on stdout stays clean.
	if err := server.ServeStdio(s); err != nil {
		exitErr("serve", err)
	}
}
