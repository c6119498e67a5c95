// Package prompts implements the MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// TriagePrompt handles the noted-triage MCP prompt. It walks the AI
// through the current high-priority notifications and has it propose a
// batch action for each.
type TriagePrompt struct{}

// NewTriagePrompt creates a TriagePrompt.
func NewTriagePrompt() *TriagePrompt {
	return &TriagePrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *TriagePrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("noted-triage",
		mcp.WithPromptDescription(
			"Triage the current high-priority notifications: review each "+
				"one, decide an action (read, archive, delete, re-level), and "+
				"apply the decisions in bulk.",
		),
		mcp.WithArgument("hours",
			mcp.ArgumentDescription("Look-back window in hours (default: 24)"),
		),
	)
}

// Handle processes the noted-triage prompt request.
func (p *TriagePrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	hours := "24"
	if args := req.Params.Arguments; args != nil {
		if h, ok := args["hours"]; ok && h != "" {
			hours = h
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Triage notifications from the last %sh", hours),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Help me triage my notifications from the last %s hours.\n\n"+
						"Please:\n"+
						"1. Run `noted_priority` with hours=%s to list what needs attention\n"+
						"2. Walk through the results one by one; for each, recommend an action: "+
						"mark read, archive, delete, or change its level\n"+
						"3. Ask me to confirm or adjust your recommendations\n"+
						"4. Apply the confirmed decisions with `noted_batch`, referencing the "+
						"seq numbers from step 1 (use dry_run first for deletions)\n"+
						"5. Finish with `noted_status` so I can see the store is clean",
					hours, hours,
				)),
			},
		},
	}, nil
}
