package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Long:  "Prints totals, the level histogram, busiest apps, and delivery patterns.",
		Run:   runStats,
	}

	cmd.Flags().Int("days", 7, "Days of history for trend and hourly pattern")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	days, _ := cmd.Flags().GetInt("days")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer func() { _ = st.Close() }()

	ctx := cmd.Context()

	stats, err := st.Stats(ctx)
	if err != nil {
		exitErr("stats", err)
	}
	apps, err := st.AppBreakdown(ctx, 5)
	if err != nil {
		exitErr("app breakdown", err)
	}
	trend, err := st.DailyTrend(ctx, days)
	if err != nil {
		exitErr("daily trend", err)
	}
	hours, err := st.HourlyPattern(ctx, days)
	if err != nil {
		exitErr("hourly pattern", err)
	}

	if formatFlag == "json" {
		payload := struct {
			store.Stats
			Apps   []store.AppStats `json:"apps"`
			Trend  []store.DayCount `json:"daily_trend"`
			Hourly [24]int64        `json:"hourly_pattern"`
		}{stats, apps, trend, hours}
		b, _ := json.MarshalIndent(payload, "", "  ")
		fmt.Println(string(b))
		return
	}

	fmt.Printf("%d notifications (%d unread, %d archived), watermark seq %d\n",
		stats.Total, stats.Unread, stats.Archived, stats.Watermark)
	for _, lv := range []notification.Level{
		notification.LevelCritical, notification.LevelHigh, notification.LevelMedium,
		notification.LevelLow, notification.LevelUnknown,
	} {
		if n := stats.ByLevel[string(lv)]; n > 0 {
			fmt.Printf("  %-8s %d\n", lv, n)
		}
	}
	if stats.Total > 0 {
		fmt.Printf("range %s to %s\n",
			stats.Oldest.Local().Format("2006-01-02 15:04"),
			stats.Newest.Local().Format("2006-01-02 15:04"))
	}

	if len(apps) > 0 {
		fmt.Println("\nbusiest apps:")
		for _, a := range apps {
			fmt.Printf("  %-24s %5d  (%d unread, avg score %.1f)\n",
				notification.DisplayName(a.App), a.Count, a.Unread, a.AvgScore)
		}
	}

	fmt.Printf("\ndaily trend (last %dd):\n", days)
	for _, d := range trend {
		fmt.Printf("  %s %5d\n", d.Day, d.Count)
	}

	var max int64
	for _, n := range hours {
		if n > max {
			max = n
		}
	}
	if max > 0 {
		fmt.Printf("\nhourly pattern (last %dd):\n", days)
		for h, n := range hours {
			bar := strings.Repeat("#", int(n*30/max))
			fmt.Printf("  %02d %-30s %d\n", h, bar, n)
		}
	}
}
