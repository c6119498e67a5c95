package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// DigestPrompt handles the noted-digest MCP prompt. It instructs the AI
// to build a readable catch-up summary for a period.
type DigestPrompt struct{}

// NewDigestPrompt creates a DigestPrompt.
func NewDigestPrompt() *DigestPrompt {
	return &DigestPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *DigestPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("noted-digest",
		mcp.WithPromptDescription(
			"Summarize a recent period of notifications: what mattered, "+
				"what clustered into bursts, and what can be ignored.",
		),
		mcp.WithArgument("hours",
			mcp.ArgumentDescription("Period covered in hours (default: 24)"),
		),
	)
}

// Handle processes the noted-digest prompt request.
func (p *DigestPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	hours := "24"
	if args := req.Params.Arguments; args != nil {
		if h, ok := args["hours"]; ok && h != "" {
			hours = h
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Notification digest for the last %sh", hours),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Give me a catch-up summary of my notifications from the last %s hours.\n\n"+
						"Please:\n"+
						"1. Run `noted_digest` with hours=%s for the raw digest\n"+
						"2. Run `noted_grouped` with hours=%s to see activity bursts\n"+
						"3. Write a short prose summary: lead with anything urgent, then the "+
						"notable clusters, then one line on the overall volume\n"+
						"4. Skip routine noise (delivery updates, promotional mail) unless it "+
						"is unusually heavy",
					hours, hours, hours,
				)),
			},
		},
	}, nil
}
