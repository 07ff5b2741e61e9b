// Package resources implements MCP resource handlers for manifest.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (manifest://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/manifest/internal/models"
	"github.com/HendryAvila/manifest/internal/render"
	"github.com/HendryAvila/manifest/internal/store"
)

const (
	projectsURI    = "manifest://projects"
	treeURIPrefix  = "manifest://projects/"
	treeURISuffix  = "/tree"
	treeURIPattern = treeURIPrefix + "{id}" + treeURISuffix
)

// Handler manages manifest resource endpoints.
type Handler struct {
	store *store.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s}
}

// ProjectsResource returns the MCP resource definition for the project list.
func (h *Handler) ProjectsResource() mcp.Resource {
	return mcp.NewResource(
		projectsURI,
		"Projects",
		mcp.WithResourceDescription("Every project with its registered directories"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleProjects returns all projects as JSON.
func (h *Handler) HandleProjects(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	projects, err := h.store.ListProjects(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	out := make([]models.ProjectWithDirectories, 0, len(projects))
	for _, p := range projects {
		dirs, err := h.store.ListDirectories(ctx, p.ID)
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		if dirs == nil {
			dirs = []models.ProjectDirectory{}
		}
		out = append(out, models.ProjectWithDirectories{Project: p, Directories: dirs})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling projects: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// TreeTemplate returns the resource template for a project's feature tree.
func (h *Handler) TreeTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		treeURIPattern,
		"Feature Tree",
		mcp.WithTemplateDescription("A project's feature tree as ASCII art with state symbols"),
		mcp.WithTemplateMIMEType("text/plain"),
	)
}

// HandleTree renders the feature tree of the project named in the URI.
func (h *Handler) HandleTree(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, ok := projectIDFromURI(req.Params.URI)
	if !ok {
		return nil, fmt.Errorf("invalid tree URI %q: want %s", req.Params.URI, treeURIPattern)
	}
	nodes, err := h.store.ProjectTree(ctx, id)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	text := render.Tree(nodes, render.Options{})
	if text == "" {
		text = "(no features)\n"
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text + "\n" + render.Legend(render.Options{}) + "\n",
		},
	}, nil
}

// projectIDFromURI extracts {id} from manifest://projects/{id}/tree.
func projectIDFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, treeURIPrefix)
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, treeURISuffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
