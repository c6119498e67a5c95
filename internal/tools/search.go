package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notedaemon/noted/internal/search"
)

// SearchTool handles the noted_search MCP tool.
type SearchTool struct {
	executor *search.Executor
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(executor *search.Executor) *SearchTool {
	return &SearchTool{executor: executor}
}

// Definition returns the MCP tool definition for noted_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("noted_search",
		mcp.WithDescription(
			"Search stored notifications with a natural-language query. "+
				"Supports time ranges ('today', 'last week', 'between 2 days ago and now'), "+
				"priority ('critical', 'important'), apps ('from mail'), "+
				"exclusions ('but not standup', 'except deliveries'), regex "+
				"('/ERR\\d+/'), grouping ('group by app'), and sorting ('by priority').",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query — keywords plus optional filters"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default from config, typically 50)"),
		),
	)
}

// Handle processes the noted_search tool call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := intArg(req, "limit", 0)

	result, err := t.executor.Search(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(result.Records) == 0 {
		return mcp.NewToolResultText("No notifications matched your query."), nil
	}

	var b strings.Builder
	if len(result.Groups) > 0 {
		fmt.Fprintf(&b, "Found %d notifications in %d groups:\n\n",
			len(result.Records), len(result.Groups))
		for _, g := range result.Groups {
			fmt.Fprintf(&b, "## %s (%d)\n", g.Label, len(g.Records))
			for i, r := range g.Records {
				writeRecord(&b, i+1, r)
			}
			b.WriteString("\n")
		}
	} else {
		fmt.Fprintf(&b, "Found %d notifications:\n\n", len(result.Records))
		for i, r := range result.Records {
			writeRecord(&b, i+1, r)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
