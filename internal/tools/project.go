package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/manifest/internal/models"
	"github.com/HendryAvila/manifest/internal/render"
	"github.com/HendryAvila/manifest/internal/store"
)

// CreateProjectTool handles the create_project MCP tool.
type CreateProjectTool struct {
	store *store.Store
}

// NewCreateProjectTool creates a CreateProjectTool.
func NewCreateProjectTool(s *store.Store) *CreateProjectTool {
	return &CreateProjectTool{store: s}
}

// Definition returns the MCP tool definition for create_project.
func (t *CreateProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("create_project",
		mcp.WithDescription("Create a project: the container for one feature tree."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("description", mcp.Description("Short description")),
		mcp.WithString("instructions", mcp.Description("Standing instructions for agents working on this project")),
	)
}

// Handle processes the create_project tool call.
func (t *CreateProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := t.store.CreateProject(ctx, models.CreateProjectInput{
		Name:         req.GetString("name", ""),
		Description:  optString(req, "description"),
		Instructions: optString(req, "instructions"),
	})
	if err != nil {
		return errorResult("create project", err), nil
	}
	return jsonResult(p)
}

// ─── AddDirectoryTool ───────────────────────────────────────────────────────

// AddDirectoryTool handles the add_project_directory MCP tool.
type AddDirectoryTool struct {
	store *store.Store
}

// NewAddDirectoryTool creates an AddDirectoryTool.
func NewAddDirectoryTool(s *store.Store) *AddDirectoryTool {
	return &AddDirectoryTool{store: s}
}

// Definition returns the MCP tool definition for add_project_directory.
func (t *AddDirectoryTool) Definition() mcp.Tool {
	return mcp.NewTool("add_project_directory",
		mcp.WithDescription(
			"Bind a filesystem directory to a project so agents working there can "+
				"discover it. Marking a directory primary demotes the previous primary.",
		),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute directory path")),
		mcp.WithString("git_remote", mcp.Description("Git remote URL")),
		mcp.WithBoolean("is_primary", mcp.Description("Whether this is the project's primary directory")),
	)
}

// Handle processes the add_project_directory tool call.
func (t *AddDirectoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, errRes := requireString(req, "project_id")
	if errRes != nil {
		return errRes, nil
	}
	d, err := t.store.AddDirectory(ctx, projectID, models.AddDirectoryInput{
		Path:      req.GetString("path", ""),
		GitRemote: optString(req, "git_remote"),
		IsPrimary: boolArg(req, "is_primary", false),
	})
	if err != nil {
		return errorResult("add directory", err), nil
	}
	return jsonResult(d)
}

// ─── ProjectContextTool ─────────────────────────────────────────────────────

// ProjectContextTool handles the get_project_context MCP tool.
type ProjectContextTool struct {
	store *store.Store
}

// NewProjectContextTool creates a ProjectContextTool.
func NewProjectContextTool(s *store.Store) *ProjectContextTool {
	return &ProjectContextTool{store: s}
}

// Definition returns the MCP tool definition for get_project_context.
func (t *ProjectContextTool) Definition() mcp.Tool {
	return mcp.NewTool("get_project_context",
		mcp.WithDescription(
			"Look up a project by ID or by a directory inside it (the most specific "+
				"registered directory wins) and return it with its directories and feature tree.",
		),
		mcp.WithString("project_id", mcp.Description("Project ID")),
		mcp.WithString("directory", mcp.Description("A path inside a registered project directory")),
	)
}

type projectContext struct {
	Project *models.ProjectWithDirectories `json:"project"`
	Tree    string                         `json:"tree"`
}

// Handle processes the get_project_context tool call.
func (t *ProjectContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID := req.GetString("project_id", "")
	directory := req.GetString("directory", "")

	var (
		p   *models.ProjectWithDirectories
		err error
	)
	switch {
	case projectID != "":
		p, err = t.store.GetProjectWithDirectories(ctx, projectID)
	case directory != "":
		p, err = t.store.FindProjectByDirectory(ctx, directory)
	default:
		return mcp.NewToolResultError("[invalid_input] one of 'project_id' or 'directory' is required"), nil
	}
	if err != nil {
		return errorResult("load project", err), nil
	}
	if p == nil {
		return mcp.NewToolResultError("[not_found] no project matches"), nil
	}

	tree, err := t.store.ProjectTree(ctx, p.ID)
	if err != nil {
		return errorResult("load feature tree", err), nil
	}
	return jsonResult(projectContext{Project: p, Tree: render.Tree(tree, render.Options{})})
}

// ─── ListProjectsTool ───────────────────────────────────────────────────────

// ListProjectsTool handles the list_projects MCP tool.
type ListProjectsTool struct {
	store *store.Store
}

// NewListProjectsTool creates a ListProjectsTool.
func NewListProjectsTool(s *store.Store) *ListProjectsTool {
	return &ListProjectsTool{store: s}
}

// Definition returns the MCP tool definition for list_projects.
func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects."),
	)
}

// Handle processes the list_projects tool call.
func (t *ListProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := t.store.ListProjects(ctx)
	if err != nil {
		return errorResult("list projects", err), nil
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return jsonResult(projects)
}
