package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/notedaemon/noted/internal/server"
	"github.com/notedaemon/noted/internal/updater"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update noted to the latest release",
		Run:   runUpdate,
	}

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	fmt.Fprintln(os.Stderr, "checking for updates...")

	res := updater.Check(server.Version)
	if !res.Available {
		fmt.Printf("already at the latest version (v%s)\n", res.Current)
		return
	}

	fmt.Fprintf(os.Stderr, "downloading v%s (running v%s)...\n", res.Latest, res.Current)
	if err := updater.SelfUpdate(server.Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: update failed: %v\n", err)
		if res.URL != "" {
			fmt.Fprintf(os.Stderr, "download manually from %s\n", res.URL)
		}
		os.Exit(1)
	}

	fmt.Printf("updated to v%s; restart noted to use it\n", res.Latest)
}
