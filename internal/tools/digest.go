package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/cluster"
	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/store"
)

// DigestTool handles the noted_digest MCP tool.
type DigestTool struct {
	store *store.Store
	base  cluster.Config
}

// NewDigestTool creates a DigestTool.
func NewDigestTool(st *store.Store, base cluster.Config) *DigestTool {
	return &DigestTool{store: st, base: base}
}

// Definition returns the MCP tool definition for noted_digest.
func (t *DigestTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_digest",
		mcp.WithDescription(
			"Produce a digest of a recent period: level counts, the "+
				"highest-priority notifications, activity clusters, and the "+
				"busiest apps. Good starting point for a catch-up summary.",
		),
		mcp.WithNumber("hours",
			mcp.Description("Period covered in hours (default: 24)"),
		),
	)
}

// Handle processes the noted_digest tool call.
func (t *DigestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := intArg(req, "hours", 24)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	records, err := t.store.Since(ctx, since, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("digest query failed: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText(
			fmt.Sprintf("No notifications in the last %dh.", hours),
		), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Notification Digest (last %dh)\n\n", hours)

	byLevel := map[notification.Level]int{}
	for _, r := range records {
		byLevel[r.Level]++
	}
	var levels []string
	for _, l := range levelOrder {
		if n := byLevel[l]; n > 0 {
			levels = append(levels, fmt.Sprintf("%s %d", l, n))
		}
	}
	fmt.Fprintf(&b, "%d notifications: %s\n", len(records), strings.Join(levels, ", "))

	highlights, err := t.store.TopPriority(ctx, notification.LevelHigh, since, 5)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("digest highlights failed: %v", err)), nil
	}
	if len(highlights) > 0 {
		b.WriteString("\n## Highlights\n\n")
		for i, r := range highlights {
			writeRecord(&b, i+1, r)
		}
	}

	clusters := cluster.New(t.base).Cluster(records)
	if len(clusters) > 0 {
		sort.SliceStable(clusters, func(i, j int) bool {
			return clusters[i].Count > clusters[j].Count
		})
		if len(clusters) > 5 {
			clusters = clusters[:5]
		}
		b.WriteString("\n## Activity Clusters\n\n")
		for _, c := range clusters {
			fmt.Fprintf(&b, "- %s\n", c.Summary)
		}
	}

	b.WriteString("\n## Top Apps\n\n")
	for _, ac := range topApps(records, 5) {
		fmt.Fprintf(&b, "- %s: %d\n", notification.DisplayName(ac.App), ac.Count)
	}

	return mcp.NewToolResultText(b.String()), nil
}

// topApps counts records per app and returns the n busiest, ties broken
// by app name so output is stable.
func topApps(records []notification.Record, n int) []store.AppCount {
	counts := map[string]int64{}
	for _, r := range records {
		counts[r.App]++
	}
	out := make([]store.AppCount, 0, len(counts))
	for app, c := range counts {
		out = append(out, store.AppCount{App: app, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].App < out[j].App
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
