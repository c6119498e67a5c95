package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/store"
)

// StatsTool handles the noted_stats MCP tool.
type StatsTool struct {
	store *store.Store
}

// NewStatsTool creates a StatsTool.
func NewStatsTool(st *store.Store) *StatsTool {
	return &StatsTool{store: st}
}

// Definition returns the MCP tool definition for noted_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_stats",
		mcp.WithDescription(
			"Show store statistics — totals, level split, busiest apps, "+
				"and the daily delivery trend.",
		),
		mcp.WithNumber("days",
			mcp.Description("Days covered by the daily trend (default: 7)"),
		),
	)
}

// levelOrder fixes the rendering order of the level histogram.
var levelOrder = []notification.Level{
	notification.LevelCritical,
	notification.LevelHigh,
	notification.LevelMedium,
	notification.LevelLow,
	notification.LevelUnknown,
}

// Handle processes the noted_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := intArg(req, "days", 7)

	stats, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	var b strings.Builder
	b.WriteString("## Notification Statistics\n\n")
	fmt.Fprintf(&b, "- **Total**: %d (%d unread, %d archived)\n",
		stats.Total, stats.Unread, stats.Archived)

	var levels []string
	for _, l := range levelOrder {
		if n := stats.ByLevel[string(l)]; n > 0 {
			levels = append(levels, fmt.Sprintf("%s %d", l, n))
		}
	}
	if len(levels) > 0 {
		fmt.Fprintf(&b, "- **Levels**: %s\n", strings.Join(levels, ", "))
	}
	if !stats.Oldest.IsZero() {
		fmt.Fprintf(&b, "- **Range**: %s to %s\n",
			stats.Oldest.Local().Format("2006-01-02"),
			stats.Newest.Local().Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "- **Watermark**: seq %d\n", stats.Watermark)

	apps, err := t.store.AppBreakdown(ctx, 5)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get app breakdown: %v", err)), nil
	}
	if len(apps) > 0 {
		b.WriteString("\n## Busiest Apps\n\n")
		for _, a := range apps {
			fmt.Fprintf(&b, "- %s: %d (%d unread, avg score %.1f)\n",
				notification.DisplayName(a.App), a.Count, a.Unread, a.AvgScore)
		}
	}

	trend, err := t.store.DailyTrend(ctx, days)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get daily trend: %v", err)), nil
	}
	if len(trend) > 0 {
		fmt.Fprintf(&b, "\n## Daily Trend (%d days)\n\n", days)
		for _, d := range trend {
			fmt.Fprintf(&b, "- %s: %d\n", d.Day, d.Count)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}
