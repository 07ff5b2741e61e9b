package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/manifest/internal/models"
	"github.com/HendryAvila/manifest/internal/store"
)

// FeatureHistoryTool handles the get_feature_history MCP tool.
type FeatureHistoryTool struct {
	store *store.Store
}

// NewFeatureHistoryTool creates a FeatureHistoryTool.
func NewFeatureHistoryTool(s *store.Store) *FeatureHistoryTool {
	return &FeatureHistoryTool{store: s}
}

// Definition returns the MCP tool definition for get_feature_history.
func (t *FeatureHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("get_feature_history",
		mcp.WithDescription(
			"Get a feature's history, newest first. Each squashed session leaves one "+
				"entry with its summary, changed files and a JSON breakdown of its tasks.",
		),
		mcp.WithString("feature_id", mcp.Required(), mcp.Description("Feature ID")),
		mcp.WithNumber("limit", mcp.Description("Return at most this many entries")),
	)
}

// Handle processes the get_feature_history tool call.
func (t *FeatureHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	featureID, errRes := requireString(req, "feature_id")
	if errRes != nil {
		return errRes, nil
	}
	entries, err := t.store.FeatureHistory(ctx, featureID)
	if err != nil {
		return errorResult("load feature history", err), nil
	}
	if limit := intArg(req, "limit"); limit != nil && *limit > 0 && len(entries) > *limit {
		entries = entries[:*limit]
	}
	if entries == nil {
		entries = []models.FeatureHistory{}
	}
	return jsonResult(entries)
}

// ─── AppendHistoryTool ──────────────────────────────────────────────────────

// AppendHistoryTool handles the append_feature_history MCP tool.
type AppendHistoryTool struct {
	store *store.Store
}

// NewAppendHistoryTool creates an AppendHistoryTool.
func NewAppendHistoryTool(s *store.Store) *AppendHistoryTool {
	return &AppendHistoryTool{store: s}
}

// Definition returns the MCP tool definition for append_feature_history.
func (t *AppendHistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("append_feature_history",
		mcp.WithDescription(
			"Record work done on a feature outside a session. The entry is permanent "+
				"and does not change the feature's state or version.",
		),
		mcp.WithString("feature_id", mcp.Required(), mcp.Description("Feature ID")),
		mcp.WithString("summary", mcp.Required(), mcp.Description("What was done")),
		mcp.WithArray("files_changed", stringItems, mcp.Description("Files touched")),
		mcp.WithString("author", mcp.Description("Who did the work")),
		mcp.WithString("details", mcp.Description("Optional JSON document with extra detail")),
	)
}

// Handle processes the append_feature_history tool call.
func (t *AppendHistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h, err := t.store.AppendHistory(ctx, models.AppendHistoryInput{
		FeatureID:    req.GetString("feature_id", ""),
		Summary:      req.GetString("summary", ""),
		FilesChanged: stringSlice(req, "files_changed"),
		Author:       optString(req, "author"),
		Details:      optString(req, "details"),
	})
	if err != nil {
		return errorResult("append history", err), nil
	}
	return jsonResult(h)
}
