// Package tools provides the MCP tool handlers for the notification
// store.
//
// Each tool handler follows the same pattern:
// - A struct with dependencies injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Handlers render plain text for the calling assistant. Record listings
// always include the seq number so a follow-up noted_batch call can
// target exact records.
package tools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/notification"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// int64sArg extracts an integer-array argument. JSON arrays arrive as
// []interface{} holding float64s; anything else is skipped.
func int64sArg(req mcp.CallToolRequest, key string) []int64 {
	list, ok := req.GetArguments()[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]int64, 0, len(list))
	for _, v := range list {
		if f, ok := v.(float64); ok {
			out = append(out, int64(f))
		}
	}
	return out
}

// truncate shortens s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// writeRecord renders one notification as an indexed list entry:
//
//	[1] #42 Mail CRITICAL (Jun 18 14:35) [unread]
//	    Invoice overdue: payment of $1,250 required
func writeRecord(b *strings.Builder, idx int, r notification.Record) {
	unread := ""
	if !r.Read {
		unread = " [unread]"
	}
	fmt.Fprintf(b, "[%d] #%d %s %s (%s)%s\n",
		idx, r.Seq,
		notification.DisplayName(r.App), r.Level,
		r.DeliveredAt.Local().Format("Jan 2 15:04"), unread,
	)
	if text := truncate(r.Text(), 200); text != "" {
		fmt.Fprintf(b, "    %s\n", text)
	}
}
