package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notedaemon/noted/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the noted version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("noted v%s\n", server.Version)
		},
	}

	RootCmd.AddCommand(cmd)
}
