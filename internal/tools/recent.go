package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/store"
)

// RecentTool handles the noted_recent MCP tool.
type RecentTool struct {
	store *store.Store
}

// NewRecentTool creates a RecentTool.
func NewRecentTool(st *store.Store) *RecentTool {
	return &RecentTool{store: st}
}

// Definition returns the MCP tool definition for noted_recent.
func (t *RecentTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_recent",
		mcp.WithDescription(
			"List the most recent notifications, newest first. "+
				"Archived notifications are excluded.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
		mcp.WithString("app",
			mcp.Description("Filter by app identifier substring, e.g. 'mail' or 'com.apple.mobilesms'"),
		),
		mcp.WithBoolean("unread_only",
			mcp.Description("Only notifications not yet marked read"),
		),
	)
}

// Handle processes the noted_recent tool call.
func (t *RecentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := t.store.Recent(ctx, store.RecentOptions{
		Limit:      intArg(req, "limit", 10),
		App:        req.GetString("app", ""),
		UnreadOnly: boolArg(req, "unread_only", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recent failed: %v", err)), nil
	}

	if len(records) == 0 {
		return mcp.NewToolResultText("No notifications found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d notifications:\n\n", len(records))
	for i, r := range records {
		writeRecord(&b, i+1, r)
	}
	return mcp.NewToolResultText(b.String()), nil
}
