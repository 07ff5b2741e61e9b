package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/manifest/internal/models"
	"github.com/HendryAvila/manifest/internal/render"
	"github.com/HendryAvila/manifest/internal/store"
)

var featureStates = []string{
	string(models.FeatureProposed),
	string(models.FeatureSpecified),
	string(models.FeatureImplemented),
	string(models.FeatureDeprecated),
}

func optState(req mcp.CallToolRequest) *models.FeatureState {
	v := optString(req, "state")
	if v == nil {
		return nil
	}
	st := models.FeatureState(*v)
	return &st
}

// CreateFeatureTool handles the create_feature MCP tool.
type CreateFeatureTool struct {
	store *store.Store
}

// NewCreateFeatureTool creates a CreateFeatureTool.
func NewCreateFeatureTool(s *store.Store) *CreateFeatureTool {
	return &CreateFeatureTool{store: s}
}

// Definition returns the MCP tool definition for create_feature.
func (t *CreateFeatureTool) Definition() mcp.Tool {
	return mcp.NewTool("create_feature",
		mcp.WithDescription(
			"Add a feature to a project's tree. Features with children group work; "+
				"only leaf features can hold a work session.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("parent_id", mcp.Description("Parent feature ID; omit for a root feature")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Feature title")),
		mcp.WithString("details", mcp.Description("Feature details (markdown)")),
		mcp.WithString("desired_details", mcp.Description("Intended behavior, when it differs from details")),
		mcp.WithString("state", mcp.Enum(featureStates...), mcp.Description("Initial state (default proposed)")),
		mcp.WithNumber("priority", mcp.Description("Sibling order, lower first (default 0)")),
	)
}

// Handle processes the create_feature tool call.
func (t *CreateFeatureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := t.store.CreateFeature(ctx, models.CreateFeatureInput{
		ProjectID:      req.GetString("project_id", ""),
		ParentID:       optID(req, "parent_id"),
		Title:          req.GetString("title", ""),
		Details:        optString(req, "details"),
		DesiredDetails: optString(req, "desired_details"),
		State:          optState(req),
		Priority:       intArg(req, "priority"),
	})
	if err != nil {
		return errorResult("create feature", err), nil
	}
	return jsonResult(f)
}

// ─── UpdateFeatureTool ──────────────────────────────────────────────────────

// UpdateFeatureTool handles the update_feature MCP tool.
type UpdateFeatureTool struct {
	store *store.Store
}

// NewUpdateFeatureTool creates an UpdateFeatureTool.
func NewUpdateFeatureTool(s *store.Store) *UpdateFeatureTool {
	return &UpdateFeatureTool{store: s}
}

// Definition returns the MCP tool definition for update_feature.
func (t *UpdateFeatureTool) Definition() mcp.Tool {
	return mcp.NewTool("update_feature",
		mcp.WithDescription(
			"Update a feature. Only the supplied fields change. Pass parent_id as an "+
				"empty string to make the feature a root.",
		),
		mcp.WithString("id", mcp.Required(), mcp.Description("Feature ID")),
		mcp.WithString("parent_id", mcp.Description("New parent feature ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("details", mcp.Description("New details")),
		mcp.WithString("desired_details", mcp.Description("New intended behavior; empty string clears it")),
		mcp.WithString("state", mcp.Enum(featureStates...), mcp.Description("New state")),
		mcp.WithNumber("priority", mcp.Description("New sibling priority")),
	)
}

// Handle processes the update_feature tool call.
func (t *UpdateFeatureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireString(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	f, err := t.store.UpdateFeature(ctx, id, models.UpdateFeatureInput{
		ParentID:       optString(req, "parent_id"),
		Title:          optString(req, "title"),
		Details:        optString(req, "details"),
		DesiredDetails: optString(req, "desired_details"),
		State:          optState(req),
		Priority:       intArg(req, "priority"),
	})
	if err != nil {
		return errorResult("update feature", err), nil
	}
	return jsonResult(f)
}

// ─── DeleteFeatureTool ──────────────────────────────────────────────────────

// DeleteFeatureTool handles the delete_feature MCP tool.
type DeleteFeatureTool struct {
	store *store.Store
}

// NewDeleteFeatureTool creates a DeleteFeatureTool.
func NewDeleteFeatureTool(s *store.Store) *DeleteFeatureTool {
	return &DeleteFeatureTool{store: s}
}

// Definition returns the MCP tool definition for delete_feature.
func (t *DeleteFeatureTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_feature",
		mcp.WithDescription(
			"Delete a feature with all its descendants and their sessions. "+
				"History entries are kept without a feature link.",
		),
		mcp.WithString("id", mcp.Required(), mcp.Description("Feature ID")),
	)
}

// Handle processes the delete_feature tool call.
func (t *DeleteFeatureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireString(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	if err := t.store.DeleteFeature(ctx, id); err != nil {
		return errorResult("delete feature", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Feature %q deleted", id)), nil
}

// ─── GetFeatureTool ─────────────────────────────────────────────────────────

// GetFeatureTool handles the get_feature MCP tool.
type GetFeatureTool struct {
	store *store.Store
}

// NewGetFeatureTool creates a GetFeatureTool.
func NewGetFeatureTool(s *store.Store) *GetFeatureTool {
	return &GetFeatureTool{store: s}
}

// Definition returns the MCP tool definition for get_feature.
func (t *GetFeatureTool) Definition() mcp.Tool {
	return mcp.NewTool("get_feature",
		mcp.WithDescription("Get a feature with its leaf status, active session and notes."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Feature ID")),
	)
}

type featureView struct {
	models.Feature
	IsLeaf        bool                        `json:"is_leaf"`
	ActiveSession *models.Session             `json:"active_session,omitempty"`
	Notes         []models.ImplementationNote `json:"notes,omitempty"`
}

// Handle processes the get_feature tool call.
func (t *GetFeatureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireString(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	f, err := t.store.GetFeature(ctx, id)
	if err != nil {
		return errorResult("get feature", err), nil
	}
	if f == nil {
		return mcp.NewToolResultError(fmt.Sprintf("[not_found] feature %q not found", id)), nil
	}
	leaf, err := t.store.IsLeaf(ctx, id)
	if err != nil {
		return errorResult("get feature", err), nil
	}
	active, err := t.store.ActiveSession(ctx, id)
	if err != nil {
		return errorResult("get feature", err), nil
	}
	notes, err := t.store.ListFeatureNotes(ctx, id)
	if err != nil {
		return errorResult("get feature", err), nil
	}
	return jsonResult(featureView{Feature: *f, IsLeaf: leaf, ActiveSession: active, Notes: notes})
}

// ─── ListFeaturesTool ───────────────────────────────────────────────────────

// ListFeaturesTool handles the list_features MCP tool.
type ListFeaturesTool struct {
	store *store.Store
}

// NewListFeaturesTool creates a ListFeaturesTool.
func NewListFeaturesTool(s *store.Store) *ListFeaturesTool {
	return &ListFeaturesTool{store: s}
}

// Definition returns the MCP tool definition for list_features.
func (t *ListFeaturesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_features",
		mcp.WithDescription(
			"List features ordered by priority then creation. With parent_id, list "+
				"that feature's children; otherwise list the project's roots.",
		),
		mcp.WithString("project_id", mcp.Description("Project ID (required without parent_id)")),
		mcp.WithString("parent_id", mcp.Description("Parent feature ID")),
		mcp.WithBoolean("all", mcp.Description("List every feature of the project, flat")),
	)
}

// Handle processes the list_features tool call.
func (t *ListFeaturesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	parentID := req.GetString("parent_id", "")

	var (
		features []models.Feature
		err      error
	)
	switch {
	case parentID != "":
		features, err = t.store.ListChildren(ctx, parentID)
	case projectID == "":
		return mcp.NewToolResultError("[invalid_input] one of 'project_id' or 'parent_id' is required"), nil
	case boolArg(req, "all", false):
		features, err = t.store.ListFeatures(ctx, projectID)
	default:
		features, err = t.store.ListRoots(ctx, projectID)
	}
	if err != nil {
		return errorResult("list features", err), nil
	}
	if features == nil {
		features = []models.Feature{}
	}
	return jsonResult(features)
}

// ─── FeatureTreeTool ────────────────────────────────────────────────────────

// FeatureTreeTool handles the get_feature_tree MCP tool.
type FeatureTreeTool struct {
	store *store.Store
}

// NewFeatureTreeTool creates a FeatureTreeTool.
func NewFeatureTreeTool(s *store.Store) *FeatureTreeTool {
	return &FeatureTreeTool{store: s}
}

// Definition returns the MCP tool definition for get_feature_tree.
func (t *FeatureTreeTool) Definition() mcp.Tool {
	return mcp.NewTool("get_feature_tree",
		mcp.WithDescription(
			"Get a project's whole feature tree, or the subtree under one feature, "+
				"as ASCII art (default) or nested JSON.",
		),
		mcp.WithString("project_id", mcp.Description("Project ID")),
		mcp.WithString("feature_id", mcp.Description("Subtree root feature ID")),
		mcp.WithString("format", mcp.Enum("text", "json"), mcp.Description("Output format (default text)")),
	)
}

// Handle processes the get_feature_tree tool call.
func (t *FeatureTreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	featureID := req.GetString("feature_id", "")
	format := req.GetString("format", "text")

	var (
		nodes []*models.TreeNode
		err   error
	)
	switch {
	case featureID != "":
		var node *models.TreeNode
		node, err = t.store.FeatureTree(ctx, featureID)
		if node != nil {
			nodes = []*models.TreeNode{node}
		}
	case projectID != "":
		nodes, err = t.store.ProjectTree(ctx, projectID)
	default:
		return mcp.NewToolResultError("[invalid_input] one of 'project_id' or 'feature_id' is required"), nil
	}
	if err != nil {
		return errorResult("load feature tree", err), nil
	}

	if format == "json" {
		if nodes == nil {
			nodes = []*models.TreeNode{}
		}
		return jsonResult(nodes)
	}
	return mcp.NewToolResultText(render.Tree(nodes, render.Options{})), nil
}

// ─── PlanFeaturesTool ───────────────────────────────────────────────────────

// PlanFeaturesTool handles the plan_features MCP tool.
type PlanFeaturesTool struct {
	store *store.Store
}

// NewPlanFeaturesTool creates a PlanFeaturesTool.
func NewPlanFeaturesTool(s *store.Store) *PlanFeaturesTool {
	return &PlanFeaturesTool{store: s}
}

var proposedItems = mcp.Items(map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":    map[string]any{"type": "string", "description": "Feature title"},
		"details":  map[string]any{"type": "string", "description": "Feature details (markdown)"},
		"priority": map[string]any{"type": "number", "description": "Sibling order, lower first"},
		"children": map[string]any{
			"type":        "array",
			"description": "Nested proposed features with the same shape",
			"items":       map[string]any{"type": "object"},
		},
	},
	"required": []string{"title"},
})

// Definition returns the MCP tool definition for plan_features.
func (t *PlanFeaturesTool) Definition() mcp.Tool {
	return mcp.NewTool("plan_features",
		mcp.WithDescription(
			"Plan a tree of features in one call. With confirm=false (default) the "+
				"proposal is validated and echoed back for review. With confirm=true "+
				"every node is created as a specified feature; either the whole tree "+
				"is created or nothing is.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("parent_id", mcp.Description("Feature to plan under; omit to create roots")),
		mcp.WithArray("features", mcp.Required(), proposedItems, mcp.Description("Proposed feature tree")),
		mcp.WithBoolean("confirm", mcp.Description("Create the features (default false)")),
	)
}

type planFeaturesArgs struct {
	ProjectID string                   `json:"project_id"`
	ParentID  string                   `json:"parent_id"`
	Features  []models.ProposedFeature `json:"features"`
	Confirm   bool                     `json:"confirm"`
}

type planResult struct {
	ProposedFeatures  []models.ProposedFeature `json:"proposed_features"`
	Created           bool                     `json:"created"`
	CreatedFeatureIDs []string                 `json:"created_feature_ids"`
}

// Handle processes the plan_features tool call.
func (t *PlanFeaturesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args planFeaturesArgs
	if err := bindArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if args.ProjectID == "" {
		return mcp.NewToolResultError("[invalid_input] 'project_id' is required"), nil
	}
	if len(args.Features) == 0 {
		return mcp.NewToolResultError("[invalid_input] 'features' must hold at least one feature"), nil
	}

	out := planResult{ProposedFeatures: args.Features, CreatedFeatureIDs: []string{}}
	if !args.Confirm {
		p, err := t.store.GetProject(ctx, args.ProjectID)
		if err != nil {
			return errorResult("load project", err), nil
		}
		if p == nil {
			return mcp.NewToolResultError(fmt.Sprintf("[not_found] project %q not found", args.ProjectID)), nil
		}
		for _, f := range args.Features {
			if err := f.Validate(); err != nil {
				return mcp.NewToolResultError("[invalid_input] " + err.Error()), nil
			}
		}
		return jsonResult(out)
	}

	var parentID *string
	if args.ParentID != "" {
		parentID = &args.ParentID
	}
	created, err := t.store.CreateFeatureTree(ctx, args.ProjectID, parentID, args.Features)
	if err != nil {
		return errorResult("create planned features", err), nil
	}
	out.Created = true
	for _, f := range created {
		out.CreatedFeatureIDs = append(out.CreatedFeatureIDs, f.ID)
	}
	return jsonResult(out)
}
