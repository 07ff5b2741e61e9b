package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the manifest-status MCP prompt.
// It instructs the AI to read and present a project's feature tree.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("manifest-status",
		mcp.WithPromptDescription(
			"Show the feature tree of the current project, which features are "+
				"implemented, which have an active session, and what to pick up next.",
		),
		mcp.WithArgument("directory",
			mcp.ArgumentDescription("Working directory used to find the project. Default: current directory"),
		),
	)
}

// Handle processes the manifest-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	lookup := "the directory I am working in"
	if dir := req.Params.Arguments["directory"]; dir != "" {
		lookup = fmt.Sprintf("directory='%s'", dir)
	}

	return &mcp.GetPromptResult{
		Description: "Manifest project status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Please run `get_project_context` for %s to load my project.\n\n"+
						"Then:\n"+
						"1. Show me the feature tree exactly as returned\n"+
						"2. List leaf features that are still proposed or specified, lowest priority value first\n"+
						"3. For any feature with an active session, run `get_session_status` and summarise its tasks\n"+
						"4. Suggest what I should work on next",
					lookup,
				)),
			},
		},
	}, nil
}
