package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/cluster"
	"github.com/notedaemon/noted/internal/store"
)

// GroupedTool handles the noted_grouped MCP tool.
type GroupedTool struct {
	store *store.Store
	base  cluster.Config
}

// NewGroupedTool creates a GroupedTool. base supplies the segmentation
// bounds used when a call does not override them; zero fields fall back
// to the cluster defaults.
func NewGroupedTool(st *store.Store, base cluster.Config) *GroupedTool {
	def := cluster.DefaultConfig()
	if base.Window <= 0 {
		base.Window = def.Window
	}
	if base.MinSize <= 0 {
		base.MinSize = def.MinSize
	}
	return &GroupedTool{store: st, base: base}
}

// Definition returns the MCP tool definition for noted_grouped.
func (t *GroupedTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_grouped",
		mcp.WithDescription(
			"Group recent notifications into clusters of related events "+
				"(camera detection bursts, message threads, repeated emails) "+
				"with a one-line summary per cluster.",
		),
		mcp.WithNumber("hours",
			mcp.Description("Look-back window in hours (default: 24)"),
		),
		mcp.WithNumber("window_minutes",
			mcp.Description("Max gap in minutes between cluster members (default from config, typically 15)"),
		),
		mcp.WithNumber("min_size",
			mcp.Description("Smallest cluster to report (default from config, typically 2)"),
		),
	)
}

// Handle processes the noted_grouped tool call.
func (t *GroupedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hours := intArg(req, "hours", 24)

	cfg := t.base
	if m := intArg(req, "window_minutes", 0); m > 0 {
		cfg.Window = time.Duration(m) * time.Minute
	}
	if n := intArg(req, "min_size", 0); n > 0 {
		cfg.MinSize = n
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	records, err := t.store.Since(ctx, since, 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("grouped query failed: %v", err)), nil
	}
	if len(records) == 0 {
		return mcp.NewToolResultText(
			fmt.Sprintf("No notifications in the last %dh.", hours),
		), nil
	}

	clusters := cluster.New(cfg).Cluster(records)
	if len(clusters) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf(
			"%d notifications in the last %dh, none forming clusters of %d or more.",
			len(records), hours, cfg.MinSize,
		)), nil
	}

	clustered := 0
	var b strings.Builder
	fmt.Fprintf(&b, "%d clusters in the last %dh:\n\n", len(clusters), hours)
	for i, c := range clusters {
		clustered += c.Count
		fmt.Fprintf(&b, "[%d] %s\n", i+1, c.Summary)
		fmt.Fprintf(&b, "    %s | %d notifications | %s - %s\n",
			c.Type, c.Count,
			c.FirstAt.Local().Format("15:04"), c.LastAt.Local().Format("15:04"),
		)
	}
	if loose := len(records) - clustered; loose > 0 {
		fmt.Fprintf(&b, "\n%d notifications outside clusters.\n", loose)
	}
	return mcp.NewToolResultText(b.String()), nil
}
