package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/manifest/internal/models"
	"github.com/HendryAvila/manifest/internal/store"
)

var agentTypes = []string{
	string(models.AgentClaude),
	string(models.AgentGemini),
	string(models.AgentCodex),
}

var taskItems = mcp.Items(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":      map[string]any{"type": "string", "description": "Task title"},
		"scope":      map[string]any{"type": "string", "description": "What the task covers"},
		"agent_type": map[string]any{"type": "string", "enum": agentTypes},
	},
	"required": []string{"title"},
})

// CreateSessionTool handles the create_session MCP tool.
type CreateSessionTool struct {
	store *store.Store
}

// NewCreateSessionTool creates a CreateSessionTool.
func NewCreateSessionTool(s *store.Store) *CreateSessionTool {
	return &CreateSessionTool{store: s}
}

// Definition returns the MCP tool definition for create_session.
func (t *CreateSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("create_session",
		mcp.WithDescription(
			"Start a work session on a leaf feature, optionally with an initial task "+
				"list. A feature holds at most one active session. When the work is done, "+
				"call complete_session to squash it into the feature's history.",
		),
		mcp.WithString("feature_id", mcp.Required(), mcp.Description("Leaf feature ID")),
		mcp.WithString("goal", mcp.Required(), mcp.Description("What this session should achieve")),
		mcp.WithArray("tasks", taskItems, mcp.Description("Initial top-level tasks")),
	)
}

// Handle processes the create_session tool call.
func (t *CreateSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in models.CreateSessionInput
	if err := bindArgs(req, &in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := t.store.CreateSession(ctx, in)
	if err != nil {
		return errorResult("create session", err), nil
	}
	return jsonResult(out)
}

// ─── CompleteSessionTool ────────────────────────────────────────────────────

// CompleteSessionTool handles the complete_session MCP tool.
type CompleteSessionTool struct {
	store *store.Store
}

// NewCompleteSessionTool creates a CompleteSessionTool.
func NewCompleteSessionTool(s *store.Store) *CompleteSessionTool {
	return &CompleteSessionTool{store: s}
}

// Definition returns the MCP tool definition for complete_session.
func (t *CompleteSessionTool) Definition() mcp.Tool {
	return mcp.NewTool("complete_session",
		mcp.WithDescription(
			"Squash an active session into one permanent history entry. The session "+
				"succeeds only if every task completed; then the feature advances to "+
				"'implemented' (or feature_state) and its version increments. A failed "+
				"session leaves the feature unchanged. Tasks and the session are deleted.",
		),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("What the session did")),
		mcp.WithArray("files_changed", stringItems, mcp.Description("Files touched")),
		mcp.WithString("author", mcp.Description("Who did the work")),
		mcp.WithArray("commits", mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sha":     map[string]any{"type": "string"},
				"message": map[string]any{"type": "string"},
				"author":  map[string]any{"type": "string"},
			},
			"required": []string{"sha"},
		}), mcp.Description("Commits produced during the session")),
		mcp.WithString("feature_state", mcp.Enum(featureStates...),
			mcp.Description("State the feature moves to on success (default implemented)")),
	)
}

type completeSessionArgs struct {
	SessionID string `json:"session_id"`
	models.CompleteSessionInput
}

// Handle processes the complete_session tool call.
func (t *CompleteSessionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args completeSessionArgs
	if err := bindArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.SessionID == "" {
		return mcp.NewToolResultError("[invalid_input] 'session_id' is required"), nil
	}
	out, err := t.store.CompleteSession(ctx, args.SessionID, args.CompleteSessionInput)
	if err != nil {
		return errorResult("complete session", err), nil
	}
	return jsonResult(out)
}

// ─── SessionStatusTool ──────────────────────────────────────────────────────

// SessionStatusTool handles the get_session_status MCP tool.
type SessionStatusTool struct {
	store *store.Store
}

// NewSessionStatusTool creates a SessionStatusTool.
func NewSessionStatusTool(s *store.Store) *SessionStatusTool {
	return &SessionStatusTool{store: s}
}

// Definition returns the MCP tool definition for get_session_status.
func (t *SessionStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("get_session_status",
		mcp.WithDescription(
			"Get a session with its feature and tasks. Pass feature_id instead of "+
				"session_id to look up the feature's active session.",
		),
		mcp.WithString("session_id", mcp.Description("Session ID")),
		mcp.WithString("feature_id", mcp.Description("Feature ID whose active session to show")),
	)
}

// Handle processes the get_session_status tool call.
func (t *SessionStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	if sessionID == "" {
		featureID := req.GetString("feature_id", "")
		if featureID == "" {
			return mcp.NewToolResultError("[invalid_input] one of 'session_id' or 'feature_id' is required"), nil
		}
		active, err := t.store.ActiveSession(ctx, featureID)
		if err != nil {
			return errorResult("find active session", err), nil
		}
		if active == nil {
			return mcp.NewToolResultError("[session_not_active] feature has no active session"), nil
		}
		sessionID = active.ID
	}
	view, err := t.store.SessionStatus(ctx, sessionID)
	if err != nil {
		return errorResult("load session", err), nil
	}
	return jsonResult(view)
}
