package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/search"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search stored notifications",
		Long: "Runs a free-text query against the store. The query language accepts\n" +
			"keywords, app phrases (from mail), priority words (critical, important),\n" +
			"time ranges (today, last week, between 2 days ago and now), exclusions\n" +
			"(but not standup), /regex/ literals, and group by app|hour|day.",
		Args: cobra.MinimumNArgs(1),
		Run:  runSearch,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (0 uses the configured default)")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	// One-shot process, so the result cache is left off.
	exec := search.New(st, search.Config{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
	})
	res, err := exec.Search(cmd.Context(), query, limit)
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "json" {
		b, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(b))
		return
	}

	if len(res.Records) == 0 {
		fmt.Println("no matches")
		return
	}

	if len(res.Groups) > 0 {
		for i, g := range res.Groups {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("%s (%d)\n", g.Label, len(g.Records))
			for _, r := range g.Records {
				printRecord(r)
			}
		}
		return
	}

	for _, r := range res.Records {
		printRecord(r)
	}
}

func printRecord(r notification.Record) {
	text := strings.ReplaceAll(r.Text(), "\n", " ")
	fmt.Printf("  #%-6d %s  %-8s %s: %s\n",
		r.Seq,
		r.DeliveredAt.Local().Format("Jan 2 15:04"),
		r.Level,
		notification.DisplayName(r.App),
		text,
	)
}
