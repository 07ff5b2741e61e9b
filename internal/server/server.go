// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the store and injects it into the
// tools, prompts and resources. No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/manifest/internal/config"
	"github.com/HendryAvila/manifest/internal/prompts"
	"github.com/HendryAvila/manifest/internal/resources"
	"github.com/HendryAvila/manifest/internal/store"
	"github.com/HendryAvila/manifest/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Tool is the shape every handler in internal/tools shares.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New opens the store described by cfg and creates the MCP server with all
// tools, prompts and resources registered.
//
// The returned cleanup function closes the store and must be called on
// shutdown (typically via defer). It is always non-nil.
func New(cfg config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("server: store close", "err", err)
		}
	}

	s := server.NewMCPServer(
		"manifest",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	for _, t := range Tools(st) {
		s.AddTool(t.Definition(), t.Handle)
	}

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(st)
	s.AddResource(resourceHandler.ProjectsResource(), resourceHandler.HandleProjects)
	s.AddResourceTemplate(resourceHandler.TreeTemplate(), resourceHandler.HandleTree)

	logger.Info("server: ready", "db", cfg.DBPath(), "version", Version)
	return s, cleanup, nil
}

// OpenStore opens the SQLite store with the settings from cfg.
func OpenStore(cfg config.Config, logger *slog.Logger) (*store.Store, error) {
	sc := store.DefaultConfig(cfg.DBPath())
	sc.BusyTimeout = cfg.BusyTimeout()
	sc.MaxRetries = cfg.MaxRetries
	sc.Logger = logger
	st, err := store.New(sc)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

// Tools returns every MCP tool handler bound to st, in registration order.
func Tools(st *store.Store) []Tool {
	return []Tool{
		// --- Projects ---
		tools.NewCreateProjectTool(st),
		tools.NewListProjectsTool(st),
		tools.NewAddDirectoryTool(st),
		tools.NewProjectContextTool(st),

		// --- Feature tree ---
		tools.NewCreateFeatureTool(st),
		tools.NewUpdateFeatureTool(st),
		tools.NewDeleteFeatureTool(st),
		tools.NewGetFeatureTool(st),
		tools.NewListFeaturesTool(st),
		tools.NewFeatureTreeTool(st),
		tools.NewPlanFeaturesTool(st),

		// --- Sessions and tasks ---
		tools.NewCreateSessionTool(st),
		tools.NewSessionStatusTool(st),
		tools.NewCompleteSessionTool(st),
		tools.NewCreateTaskTool(st),
		tools.NewUpdateTaskTool(st),
		tools.NewListTasksTool(st),
		tools.NewTaskContextTool(st),
		tools.NewAddNoteTool(st),

		// --- History ---
		tools.NewFeatureHistoryTool(st),
		tools.NewAppendHistoryTool(st),
	}
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use manifest effectively.
func serverInstructions() string {
	return `You have access to manifest, a feature tree with work sessions.

## Model
- A PROJECT owns one tree of FEATURES. Features nest; a feature with no
  children is a LEAF. Work only ever happens on leaves.
- Feature states: proposed (◇), specified (○), implemented (●), deprecated (✗).
- A SESSION is one episode of work on a leaf feature, with a list of TASKS.
  A feature has at most one active session.
- Tasks move pending -> running -> completed | failed. Completed and failed
  are final.
- complete_session SQUASHES the session: it writes one permanent history
  entry for the feature and deletes the session and its tasks.

## Workflow
1. get_project_context (by directory) to find the project and its tree.
2. Pick a leaf feature. If a feature is too big, add child features with
   create_feature and work on those instead. To lay out many features at
   once, call plan_features with confirm=false, review, then confirm=true.
3. create_session with a goal and an initial task list.
4. For each task: update_task status=running, do the work, add_note for
   decisions worth keeping, then update_task status=completed or failed.
5. complete_session with a summary, files_changed and commits.

## Outcomes
- The session succeeds only if EVERY task is completed. The feature then
  moves to implemented (or feature_state) and its version increments.
- Any failed, pending or running task makes the session failed. The feature
  is left unchanged but the history entry is still written.

## Errors
Tool errors start with a code in brackets: [not_found], [invalid_parent],
[not_leaf], [session_already_active], [session_not_active],
[invalid_transition], [invalid_input], [storage_failure]. Branch on the code,
not the message.`
}
