package cli

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notedaemon/noted/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the notification watcher in the foreground",
		Long: "Polls the Notification Center database, scores new notifications, and\n" +
			"persists them until interrupted. Use this when you want the store kept\n" +
			"current without an MCP client attached.",
		Run: runWatch,
	}

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	svc := server.NewService(cfg, st)
	svc.Start()
	defer svc.Stop()

	slog.Info("watching", "source", cfg.SourceDB, "data_dir", cfg.DataDir, "poll", cfg.PollInterval())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
}
