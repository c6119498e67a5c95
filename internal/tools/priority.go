package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/store"
)

// PriorityTool handles the noted_priority MCP tool.
type PriorityTool struct {
	store *store.Store
}

// NewPriorityTool creates a PriorityTool.
func NewPriorityTool(st *store.Store) *PriorityTool {
	return &PriorityTool{store: st}
}

// Definition returns the MCP tool definition for noted_priority.
func (t *PriorityTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_priority",
		mcp.WithDescription(
			"List the highest-priority notifications in a recent window, "+
				"highest score first, with the scoring factors that earned "+
				"each its rank.",
		),
		mcp.WithString("min_level",
			mcp.Description("Minimum level: low, medium, high (default), or critical"),
		),
		mcp.WithNumber("hours",
			mcp.Description("Look-back window in hours (default: 24)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the noted_priority tool call.
func (t *PriorityTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	minLevel := notification.LevelHigh
	if raw := req.GetString("min_level", ""); raw != "" {
		minLevel = notification.ParseLevel(raw)
		if minLevel == notification.LevelUnknown {
			return mcp.NewToolResultError(
				fmt.Sprintf("'min_level' %q is not a level (low, medium, high, critical)", raw),
			), nil
		}
	}
	hours := intArg(req, "hours", 24)
	limit := intArg(req, "limit", 10)

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	records, err := t.store.TopPriority(ctx, minLevel, since, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("priority query failed: %v", err)), nil
	}

	if len(records) == 0 {
		return mcp.NewToolResultText(
			fmt.Sprintf("No %s+ notifications in the last %dh.", minLevel, hours),
		), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d priority notifications (last %dh, %s and above):\n\n",
		len(records), hours, minLevel)
	for i, r := range records {
		writeRecord(&b, i+1, r)
		fmt.Fprintf(&b, "    score %.1f", r.Score)
		if len(r.Factors) > 0 {
			fmt.Fprintf(&b, ": %s", strings.Join(r.Factors, ", "))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}
