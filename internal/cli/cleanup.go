package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old notifications",
		Long: "Deletes non-archived notifications older than the retention window.\n" +
			"Archived notifications are always kept.",
		Run: runCleanup,
	}

	cmd.Flags().Int("older-than", 0, "Age threshold in days (0 uses the configured retention)")
	cmd.Flags().Bool("dry-run", false, "Report what would be deleted without deleting")

	RootCmd.AddCommand(cmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	days, _ := cmd.Flags().GetInt("older-than")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	if days <= 0 {
		days = cfg.RetentionDays
	}
	if days <= 0 {
		exitErr("cleanup", fmt.Errorf("retention is disabled; pass --older-than"))
	}

	st, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	olderThan := time.Duration(days) * 24 * time.Hour

	if dryRun {
		cutoff := time.Now().Add(-olderThan)
		records, err := st.Select(cmd.Context(),
			"delivered_at < ? AND is_archived = 0", []any{cutoff.Unix()}, "", 0)
		if err != nil {
			exitErr("cleanup", err)
		}
		fmt.Printf("would delete %d notifications older than %dd\n", len(records), days)
		return
	}

	n, err := st.Cleanup(cmd.Context(), olderThan)
	if err != nil {
		exitErr("cleanup", err)
	}
	fmt.Printf("deleted %d notifications older than %dd\n", n, days)
}
