// Package prompts implements MCP prompt handlers for manifest.
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

// StartPrompt handles the manifest-start MCP prompt.
// It walks the AI through one session on a leaf feature, from plan to squash.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("manifest-start",
		mcp.WithPromptDescription(
			"Start working on a feature. Opens a session with a task plan, "+
				"tracks the tasks while you work and squashes the session into "+
				"the feature's history at the end.",
		),
		mcp.WithArgument("feature_id",
			mcp.ArgumentDescription("Leaf feature to work on"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("goal",
			mcp.ArgumentDescription("What this session should achieve"),
		),
	)
}

// Handle processes the manifest-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	featureID := req.Params.Arguments["feature_id"]
	if featureID == "" {
		return nil, fmt.Errorf("feature_id is required")
	}

	goal := req.Params.Arguments["goal"]
	goalLine := "Ask me what the goal of this session is."
	if goal != "" {
		goalLine = fmt.Sprintf("The goal is: %s", goal)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Work session on feature %s", featureID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to work on feature %s. %s\n\n"+
						"Please:\n"+
						"1. Run `get_feature` with id='%s' and read its details and notes\n"+
						"2. Propose a short task plan and, once I agree, run `create_session` with the goal and the tasks\n"+
						"3. Before starting a task run `update_task` with status='running'; when it is done set 'completed' or 'failed'\n"+
						"4. Record decisions worth keeping with `add_note` on the task\n"+
						"5. When every task is finished, run `complete_session` with a summary, the files changed and any commits\n"+
						"6. Show me the resulting history entry",
					featureID, goalLine, featureID,
				)),
			},
		},
	}, nil
}
