package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/notification"
	"github.com/notedaemon/noted/internal/store"
)

// BatchTool handles the noted_batch MCP tool.
type BatchTool struct {
	store *store.Store
}

// NewBatchTool creates a BatchTool.
func NewBatchTool(st *store.Store) *BatchTool {
	return &BatchTool{store: st}
}

// Definition returns the MCP tool definition for noted_batch.
func (t *BatchTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_batch",
		mcp.WithDescription(
			"Apply a bulk action to notifications selected by app, level, "+
				"age, or explicit seq numbers. Selection criteria combine; at "+
				"least one is required. Use dry_run to preview the affected "+
				"count before committing. Destructive actions (delete) should "+
				"be previewed first.",
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of: mark_read, mark_unread, archive, delete, set_level"),
		),
		mcp.WithString("app",
			mcp.Description("Select by app identifier substring"),
		),
		mcp.WithString("level",
			mcp.Description("Select by current level: low, medium, high, critical"),
		),
		mcp.WithNumber("older_than_days",
			mcp.Description("Select notifications delivered more than N days ago"),
		),
		mcp.WithArray("seqs",
			mcp.Description("Select specific notifications by seq number"),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithString("new_level",
			mcp.Description("Target level for set_level: low, medium, high, critical"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Count what would be affected without changing anything"),
		),
	)
}

// Handle processes the noted_batch tool call.
func (t *BatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action := req.GetString("action", "")
	if action == "" {
		return mcp.NewToolResultError("'action' is required"), nil
	}

	sel := store.Selection{
		Seqs: int64sArg(req, "seqs"),
		App:  req.GetString("app", ""),
	}
	if raw := req.GetString("level", ""); raw != "" {
		sel.Level = notification.ParseLevel(raw)
		if sel.Level == notification.LevelUnknown {
			return mcp.NewToolResultError(
				fmt.Sprintf("'level' %q is not a level (low, medium, high, critical)", raw),
			), nil
		}
	}
	if days := intArg(req, "older_than_days", 0); days > 0 {
		before := time.Now().AddDate(0, 0, -days)
		sel.Before = &before
	}
	dryRun := boolArg(req, "dry_run", false)

	var (
		res store.BatchResult
		err error
	)
	switch action {
	case "mark_read":
		res, err = t.store.MarkRead(ctx, sel, dryRun)
	case "mark_unread":
		res, err = t.store.MarkUnread(ctx, sel, dryRun)
	case "archive":
		res, err = t.store.Archive(ctx, sel, dryRun)
	case "delete":
		res, err = t.store.DeleteBatch(ctx, sel, dryRun)
	case "set_level":
		raw := req.GetString("new_level", "")
		if raw == "" {
			return mcp.NewToolResultError("'new_level' is required for set_level"), nil
		}
		level := notification.ParseLevel(raw)
		if level == notification.LevelUnknown {
			return mcp.NewToolResultError(
				fmt.Sprintf("'new_level' %q is not a level (low, medium, high, critical)", raw),
			), nil
		}
		res, err = t.store.SetLevel(ctx, sel, level, dryRun)
	default:
		return mcp.NewToolResultError(fmt.Sprintf(
			"unknown action %q (mark_read, mark_unread, archive, delete, set_level)", action,
		)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("batch %s failed: %v", action, err)), nil
	}

	if res.DryRun {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Dry run: %s would affect %d notifications.", res.Action, res.Affected,
		)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"%s affected %d notifications (batch %s).", res.Action, res.Affected, res.BatchID,
	)), nil
}
