package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/manifest/internal/models"
	"github.com/HendryAvila/manifest/internal/store"
)

var taskStatuses = []string{
	string(models.TaskPending),
	string(models.TaskRunning),
	string(models.TaskCompleted),
	string(models.TaskFailed),
}

// CreateTaskTool handles the create_task MCP tool.
type CreateTaskTool struct {
	store *store.Store
}

// NewCreateTaskTool creates a CreateTaskTool.
func NewCreateTaskTool(s *store.Store) *CreateTaskTool {
	return &CreateTaskTool{store: s}
}

// Definition returns the MCP tool definition for create_task.
func (t *CreateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("create_task",
		mcp.WithDescription(
			"Add a task to an active session. Pass parent_id to nest it under "+
				"another task of the same session. New tasks start pending.",
		),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("parent_id", mcp.Description("Parent task ID")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		mcp.WithString("scope", mcp.Description("What the task covers")),
		mcp.WithString("agent_type", mcp.Enum(agentTypes...), mcp.Description("Agent assigned to the task")),
	)
}

// Handle processes the create_task tool call.
func (t *CreateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errRes := requireString(req, "session_id")
	if errRes != nil {
		return errRes, nil
	}
	task, err := t.store.CreateTask(ctx, sessionID, models.CreateTaskInput{
		ParentID:  optID(req, "parent_id"),
		Title:     req.GetString("title", ""),
		Scope:     optString(req, "scope"),
		AgentType: models.AgentType(req.GetString("agent_type", "")),
	})
	if err != nil {
		return errorResult("create task", err), nil
	}
	return jsonResult(task)
}

// ─── UpdateTaskTool ─────────────────────────────────────────────────────────

// UpdateTaskTool handles the update_task MCP tool.
type UpdateTaskTool struct {
	store *store.Store
}

// NewUpdateTaskTool creates an UpdateTaskTool.
func NewUpdateTaskTool(s *store.Store) *UpdateTaskTool {
	return &UpdateTaskTool{store: s}
}

// Definition returns the MCP tool definition for update_task.
func (t *UpdateTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("update_task",
		mcp.WithDescription(
			"Report progress on a task. Status moves pending -> running -> completed "+
				"or failed; completed and failed are final.",
		),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("status", mcp.Enum(taskStatuses...), mcp.Description("New status")),
		mcp.WithString("agent_type", mcp.Enum(agentTypes...), mcp.Description("Agent working the task")),
		mcp.WithString("worktree_path", mcp.Description("Worktree the agent uses")),
		mcp.WithString("branch", mcp.Description("Branch the agent works on")),
	)
}

// Handle processes the update_task tool call.
func (t *UpdateTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireString(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	in := models.UpdateTaskInput{
		WorktreePath: optString(req, "worktree_path"),
		Branch:       optString(req, "branch"),
	}
	if v := optString(req, "status"); v != nil {
		st := models.TaskStatus(*v)
		in.Status = &st
	}
	if v := optString(req, "agent_type"); v != nil {
		at := models.AgentType(*v)
		in.AgentType = &at
	}
	task, err := t.store.UpdateTask(ctx, id, in)
	if err != nil {
		return errorResult("update task", err), nil
	}
	return jsonResult(task)
}

// ─── ListTasksTool ──────────────────────────────────────────────────────────

// ListTasksTool handles the list_session_tasks MCP tool.
type ListTasksTool struct {
	store *store.Store
}

// NewListTasksTool creates a ListTasksTool.
func NewListTasksTool(s *store.Store) *ListTasksTool {
	return &ListTasksTool{store: s}
}

// Definition returns the MCP tool definition for list_session_tasks.
func (t *ListTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("list_session_tasks",
		mcp.WithDescription("List a session's tasks in creation order, optionally filtered by status."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("status", mcp.Enum(taskStatuses...), mcp.Description("Only tasks with this status")),
	)
}

// Handle processes the list_session_tasks tool call.
func (t *ListTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errRes := requireString(req, "session_id")
	if errRes != nil {
		return errRes, nil
	}
	tasks, err := t.store.ListTasks(ctx, sessionID)
	if err != nil {
		return errorResult("list tasks", err), nil
	}
	status := models.TaskStatus(req.GetString("status", ""))
	out := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if status == "" || task.Status == status {
			out = append(out, task)
		}
	}
	return jsonResult(out)
}

// ─── TaskContextTool ────────────────────────────────────────────────────────

// TaskContextTool handles the get_task_context MCP tool.
type TaskContextTool struct {
	store *store.Store
}

// NewTaskContextTool creates a TaskContextTool.
func NewTaskContextTool(s *store.Store) *TaskContextTool {
	return &TaskContextTool{store: s}
}

// Definition returns the MCP tool definition for get_task_context.
func (t *TaskContextTool) Definition() mcp.Tool {
	return mcp.NewTool("get_task_context",
		mcp.WithDescription(
			"Get everything an agent needs to work a task: the task and its notes, "+
				"the session goal, the feature with its details, and the project's "+
				"standing instructions.",
		),
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
	)
}

type taskContext struct {
	Task         models.Task                 `json:"task"`
	Notes        []models.ImplementationNote `json:"notes"`
	Session      models.Session              `json:"session"`
	Feature      models.Feature              `json:"feature"`
	Instructions *string                     `json:"project_instructions,omitempty"`
}

// Handle processes the get_task_context tool call.
func (t *TaskContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := requireString(req, "id")
	if errRes != nil {
		return errRes, nil
	}
	task, err := t.store.GetTask(ctx, id)
	if err != nil {
		return errorResult("load task", err), nil
	}
	if task == nil {
		return mcp.NewToolResultError(fmt.Sprintf("[not_found] task %q not found", id)), nil
	}
	notes, err := t.store.ListTaskNotes(ctx, id)
	if err != nil {
		return errorResult("load task notes", err), nil
	}
	sess, err := t.store.GetSession(ctx, task.SessionID)
	if err != nil {
		return errorResult("load session", err), nil
	}
	if sess == nil {
		return mcp.NewToolResultError(fmt.Sprintf("[not_found] session %q not found", task.SessionID)), nil
	}
	f, err := t.store.GetFeature(ctx, sess.FeatureID)
	if err != nil {
		return errorResult("load feature", err), nil
	}
	if f == nil {
		return mcp.NewToolResultError(fmt.Sprintf("[not_found] feature %q not found", sess.FeatureID)), nil
	}
	p, err := t.store.GetProject(ctx, f.ProjectID)
	if err != nil {
		return errorResult("load project", err), nil
	}

	out := taskContext{Task: *task, Notes: notes, Session: *sess, Feature: *f}
	if out.Notes == nil {
		out.Notes = []models.ImplementationNote{}
	}
	if p != nil {
		out.Instructions = p.Instructions
	}
	return jsonResult(out)
}

// ─── AddNoteTool ────────────────────────────────────────────────────────────

// AddNoteTool handles the add_note MCP tool.
type AddNoteTool struct {
	store *store.Store
}

// NewAddNoteTool creates an AddNoteTool.
func NewAddNoteTool(s *store.Store) *AddNoteTool {
	return &AddNoteTool{store: s}
}

// Definition returns the MCP tool definition for add_note.
func (t *AddNoteTool) Definition() mcp.Tool {
	return mcp.NewTool("add_note",
		mcp.WithDescription(
			"Attach an implementation note to a task or to a feature. Task notes are "+
				"folded into the history entry when the session is completed.",
		),
		mcp.WithString("task_id", mcp.Description("Task ID (exclusive with feature_id)")),
		mcp.WithString("feature_id", mcp.Description("Feature ID (exclusive with task_id)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note text")),
		mcp.WithArray("files_changed", stringItems, mcp.Description("Files the note refers to")),
	)
}

// Handle processes the add_note tool call.
func (t *AddNoteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := t.store.AddNote(ctx, models.AddNoteInput{
		TaskID:       optID(req, "task_id"),
		FeatureID:    optID(req, "feature_id"),
		Content:      req.GetString("content", ""),
		FilesChanged: stringSlice(req, "files_changed"),
	})
	if err != nil {
		return errorResult("add note", err), nil
	}
	return jsonResult(n)
}
