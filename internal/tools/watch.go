package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/daemon"
	"github.com/notedaemon/noted/internal/store"
)

// WatchStartTool handles the noted_watch_start MCP tool.
type WatchStartTool struct {
	svc *daemon.Service
}

// NewWatchStartTool creates a WatchStartTool.
func NewWatchStartTool(svc *daemon.Service) *WatchStartTool {
	return &WatchStartTool{svc: svc}
}

// Definition returns the MCP tool definition for noted_watch_start.
func (t *WatchStartTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_watch_start",
		mcp.WithDescription(
			"Start the background watch service that extracts new "+
				"notifications from the system database, scores them, and "+
				"persists them. No-op if already running.",
		),
	)
}

// Handle processes the noted_watch_start tool call.
func (t *WatchStartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.svc.IsRunning() {
		return mcp.NewToolResultText("Watch service already running."), nil
	}
	t.svc.Start()
	return mcp.NewToolResultText("Watch service started."), nil
}

// WatchStopTool handles the noted_watch_stop MCP tool.
type WatchStopTool struct {
	svc *daemon.Service
}

// NewWatchStopTool creates a WatchStopTool.
func NewWatchStopTool(svc *daemon.Service) *WatchStopTool {
	return &WatchStopTool{svc: svc}
}

// Definition returns the MCP tool definition for noted_watch_stop.
func (t *WatchStopTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_watch_stop",
		mcp.WithDescription(
			"Stop the background watch service. Waits for an in-flight "+
				"extraction cycle to finish. No-op if not running.",
		),
	)
}

// Handle processes the noted_watch_stop tool call.
func (t *WatchStopTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !t.svc.IsRunning() {
		return mcp.NewToolResultText("Watch service is not running."), nil
	}
	t.svc.Stop()
	return mcp.NewToolResultText("Watch service stopped."), nil
}

// StatusTool handles the noted_status MCP tool.
type StatusTool struct {
	store *store.Store
	svc   *daemon.Service
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(st *store.Store, svc *daemon.Service) *StatusTool {
	return &StatusTool{store: st, svc: svc}
}

// Definition returns the MCP tool definition for noted_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_status",
		mcp.WithDescription(
			"Report watch service state, the last extraction cycle, the "+
				"extraction watermark, and store totals.",
		),
	)
}

// Handle processes the noted_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hb, err := t.store.ReadHeartbeat(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read heartbeat: %v", err)), nil
	}
	stats, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	state := "stopped"
	if t.svc.IsRunning() {
		state = "running"
	}

	var b strings.Builder
	b.WriteString("## Watch Status\n\n")
	fmt.Fprintf(&b, "- **Service**: %s\n", state)
	if hb.LastCycleAt.IsZero() {
		b.WriteString("- **Last cycle**: never\n")
	} else {
		fmt.Fprintf(&b, "- **Last cycle**: %s (%d new)\n",
			hb.LastCycleAt.Local().Format("2006-01-02 15:04:05"), hb.LastCycleCount)
	}
	fmt.Fprintf(&b, "- **Watermark**: seq %d\n", stats.Watermark)
	fmt.Fprintf(&b, "- **Store**: %d notifications (%d unread)\n", stats.Total, stats.Unread)

	return mcp.NewToolResultText(b.String()), nil
}
