package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/manifest/internal/models"
	"github.com/HendryAvila/manifest/internal/store"
)

// --- Test helpers ---

type handler interface {
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	cfg := store.DefaultConfig(filepath.Join(t.TempDir(), "manifest.db"))
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := store.New(cfg)
	if err != nil {
		t.Fatalf("setup: open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// call invokes a tool handler with the given arguments.
func call(t *testing.T, h handler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := h.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	return result
}

// callOK invokes a handler, fails on a tool error and decodes the JSON text
// into out when out is non-nil.
func callOK(t *testing.T, h handler, args map[string]any, out any) string {
	t.Helper()
	result := call(t, h, args)
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	if out != nil {
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("decode result: %v\n%s", err, text)
		}
	}
	return text
}

// expectCode asserts a tool error carrying the given code.
func expectCode(t *testing.T, result *mcp.CallToolResult, code string) {
	t.Helper()
	if !isErrorResult(result) {
		t.Fatalf("expected [%s] error, got success: %s", code, getResultText(result))
	}
	if text := getResultText(result); !strings.HasPrefix(text, "["+code+"]") {
		t.Errorf("expected [%s] prefix, got: %s", code, text)
	}
}

func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func seedProject(t *testing.T, s *store.Store) models.Project {
	t.Helper()
	var p models.Project
	callOK(t, NewCreateProjectTool(s), map[string]any{
		"name":         "shop",
		"instructions": "run make check before committing",
	}, &p)
	return p
}

func seedFeature(t *testing.T, s *store.Store, projectID, parentID, title string) models.Feature {
	t.Helper()
	args := map[string]any{"project_id": projectID, "title": title}
	if parentID != "" {
		args["parent_id"] = parentID
	}
	var f models.Feature
	callOK(t, NewCreateFeatureTool(s), args, &f)
	return f
}

// --- ErrorCode ---

func TestErrorCode(t *testing.T) {
	cases := map[error]string{
		store.ErrNotFound:             "not_found",
		store.ErrInvalidParent:        "invalid_parent",
		store.ErrNotLeaf:              "not_leaf",
		store.ErrSessionAlreadyActive: "session_already_active",
		store.ErrSessionNotActive:     "session_not_active",
		store.ErrInvalidTransition:    "invalid_transition",
		store.ErrInvalidInput:         "invalid_input",
		store.ErrStorage:              "storage_failure",
		fmt.Errorf("boom"):            "internal",
	}
	for err, want := range cases {
		if got := ErrorCode(fmt.Errorf("wrapped: %w", err)); got != want {
			t.Errorf("ErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}

// --- Projects ---

func TestCreateProjectTool_MissingName(t *testing.T) {
	s := newTestStore(t)
	expectCode(t, call(t, NewCreateProjectTool(s), map[string]any{}), "invalid_input")
}

func TestProjectContextTool_ByDirectory(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	root := seedFeature(t, s, p.ID, "", "Checkout")
	seedFeature(t, s, p.ID, root.ID, "Payments")

	callOK(t, NewAddDirectoryTool(s), map[string]any{
		"project_id": p.ID,
		"path":       "/work/shop",
		"is_primary": true,
	}, nil)

	var got projectContext
	callOK(t, NewProjectContextTool(s), map[string]any{"directory": "/work/shop/cmd/api"}, &got)
	if got.Project.ID != p.ID {
		t.Fatalf("project = %q, want %q", got.Project.ID, p.ID)
	}
	if len(got.Project.Directories) != 1 || !got.Project.Directories[0].IsPrimary {
		t.Errorf("directories = %+v", got.Project.Directories)
	}
	if want := "Checkout\n└── ◇ Payments\n"; got.Tree != want {
		t.Errorf("tree = %q, want %q", got.Tree, want)
	}
}

func TestProjectContextTool_NoMatch(t *testing.T) {
	s := newTestStore(t)
	expectCode(t, call(t, NewProjectContextTool(s), map[string]any{"directory": "/nowhere"}), "not_found")
	expectCode(t, call(t, NewProjectContextTool(s), map[string]any{}), "invalid_input")
}

func TestListProjectsTool_EmptyIsArray(t *testing.T) {
	s := newTestStore(t)
	text := callOK(t, NewListProjectsTool(s), nil, nil)
	if strings.TrimSpace(text) != "[]" {
		t.Errorf("expected empty JSON array, got %s", text)
	}
}

// --- Features ---

func TestCreateFeatureTool_EmptyParentIsRoot(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)

	var f models.Feature
	callOK(t, NewCreateFeatureTool(s), map[string]any{
		"project_id": p.ID,
		"parent_id":  "",
		"title":      "Search",
		"priority":   float64(2),
	}, &f)
	if f.ParentID != nil {
		t.Errorf("parent = %v, want root", *f.ParentID)
	}
	if f.State != models.FeatureProposed || f.Version != 1 || f.Priority != 2 {
		t.Errorf("unexpected feature: %+v", f)
	}
}

func TestCreateFeatureTool_InvalidState(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	expectCode(t, call(t, NewCreateFeatureTool(s), map[string]any{
		"project_id": p.ID,
		"title":      "Search",
		"state":      "done",
	}), "invalid_input")
}

func TestUpdateFeatureTool_ReparentAndRoot(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	a := seedFeature(t, s, p.ID, "", "A")
	b := seedFeature(t, s, p.ID, "", "B")

	var moved models.Feature
	callOK(t, NewUpdateFeatureTool(s), map[string]any{"id": b.ID, "parent_id": a.ID}, &moved)
	if moved.ParentID == nil || *moved.ParentID != a.ID {
		t.Fatalf("parent = %v, want %q", moved.ParentID, a.ID)
	}
	if moved.Version != 2 {
		t.Errorf("version = %d, want 2", moved.Version)
	}

	expectCode(t, call(t, NewUpdateFeatureTool(s), map[string]any{"id": a.ID, "parent_id": b.ID}), "invalid_parent")

	var root models.Feature
	callOK(t, NewUpdateFeatureTool(s), map[string]any{"id": b.ID, "parent_id": ""}, &root)
	if root.ParentID != nil {
		t.Errorf("expected root after empty parent_id, got %v", *root.ParentID)
	}
	stored, err := s.GetFeature(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetFeature: %v", err)
	}
	if stored == nil || stored.ParentID != nil {
		t.Errorf("stored feature = %+v, want root", stored)
	}
}

func TestListFeaturesTool_Modes(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	root := seedFeature(t, s, p.ID, "", "Root")
	seedFeature(t, s, p.ID, root.ID, "Child")

	var roots, children, all []models.Feature
	callOK(t, NewListFeaturesTool(s), map[string]any{"project_id": p.ID}, &roots)
	callOK(t, NewListFeaturesTool(s), map[string]any{"parent_id": root.ID}, &children)
	callOK(t, NewListFeaturesTool(s), map[string]any{"project_id": p.ID, "all": true}, &all)

	if len(roots) != 1 || roots[0].Title != "Root" {
		t.Errorf("roots = %+v", roots)
	}
	if len(children) != 1 || children[0].Title != "Child" {
		t.Errorf("children = %+v", children)
	}
	if len(all) != 2 {
		t.Errorf("all = %d features, want 2", len(all))
	}

	expectCode(t, call(t, NewListFeaturesTool(s), map[string]any{}), "invalid_input")
	expectCode(t, call(t, NewListFeaturesTool(s), map[string]any{"parent_id": "missing"}), "not_found")
}

func TestFeatureTreeTool_Formats(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	root := seedFeature(t, s, p.ID, "", "Auth")
	seedFeature(t, s, p.ID, root.ID, "Login")

	text := callOK(t, NewFeatureTreeTool(s), map[string]any{"project_id": p.ID}, nil)
	if text != "Auth\n└── ◇ Login\n" {
		t.Errorf("text tree = %q", text)
	}

	var nodes []*models.TreeNode
	callOK(t, NewFeatureTreeTool(s), map[string]any{"feature_id": root.ID, "format": "json"}, &nodes)
	if len(nodes) != 1 || len(nodes[0].Children) != 1 || nodes[0].Children[0].Title != "Login" {
		t.Errorf("json tree = %+v", nodes)
	}

	expectCode(t, call(t, NewFeatureTreeTool(s), map[string]any{"feature_id": "missing"}), "not_found")
}

func TestGetFeatureTool(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	f := seedFeature(t, s, p.ID, "", "Export")

	var view featureView
	callOK(t, NewGetFeatureTool(s), map[string]any{"id": f.ID}, &view)
	if !view.IsLeaf || view.ActiveSession != nil {
		t.Errorf("view = %+v", view)
	}
	expectCode(t, call(t, NewGetFeatureTool(s), map[string]any{"id": "missing"}), "not_found")
}

func TestDeleteFeatureTool(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	f := seedFeature(t, s, p.ID, "", "Temp")

	callOK(t, NewDeleteFeatureTool(s), map[string]any{"id": f.ID}, nil)
	expectCode(t, call(t, NewDeleteFeatureTool(s), map[string]any{"id": f.ID}), "not_found")
}

func TestPlanFeaturesTool_ProposalCreatesNothing(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	features := []any{
		map[string]any{"title": "Auth", "children": []any{
			map[string]any{"title": "Login", "priority": float64(1)},
		}},
	}

	var got planResult
	callOK(t, NewPlanFeaturesTool(s), map[string]any{"project_id": p.ID, "features": features}, &got)
	if got.Created || len(got.CreatedFeatureIDs) != 0 {
		t.Errorf("unconfirmed plan created features: %+v", got)
	}
	if len(got.ProposedFeatures) != 1 || len(got.ProposedFeatures[0].Children) != 1 {
		t.Errorf("proposal not echoed: %+v", got.ProposedFeatures)
	}
	all, err := s.ListFeatures(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("ListFeatures: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no features, got %d", len(all))
	}

	expectCode(t, call(t, NewPlanFeaturesTool(s), map[string]any{
		"project_id": "missing", "features": features,
	}), "not_found")
	expectCode(t, call(t, NewPlanFeaturesTool(s), map[string]any{
		"project_id": p.ID, "features": []any{map[string]any{"title": ""}},
	}), "invalid_input")
	expectCode(t, call(t, NewPlanFeaturesTool(s), map[string]any{"project_id": p.ID}), "invalid_input")
}

func TestPlanFeaturesTool_ConfirmCreatesTree(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	billing := seedFeature(t, s, p.ID, "", "Billing")

	var got planResult
	callOK(t, NewPlanFeaturesTool(s), map[string]any{
		"project_id": p.ID,
		"parent_id":  billing.ID,
		"confirm":    true,
		"features": []any{
			map[string]any{"title": "Invoices", "details": "PDF export", "children": []any{
				map[string]any{"title": "Reminders"},
			}},
		},
	}, &got)
	if !got.Created || len(got.CreatedFeatureIDs) != 2 {
		t.Fatalf("unexpected result: %+v", got)
	}

	text := callOK(t, NewFeatureTreeTool(s), map[string]any{"feature_id": billing.ID}, nil)
	want := "Billing\n└── ○ Invoices\n    └── ○ Reminders\n"
	if text != want {
		t.Errorf("tree = %q, want %q", text, want)
	}
}

func TestUpdateFeatureTool_DesiredDetails(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	f := seedFeature(t, s, p.ID, "", "Search")

	var got models.Feature
	callOK(t, NewUpdateFeatureTool(s), map[string]any{"id": f.ID, "desired_details": "fuzzy matching"}, &got)
	if got.DesiredDetails == nil || *got.DesiredDetails != "fuzzy matching" {
		t.Errorf("desired_details = %v", got.DesiredDetails)
	}

	var cleared models.Feature
	callOK(t, NewUpdateFeatureTool(s), map[string]any{"id": f.ID, "desired_details": ""}, &cleared)
	if cleared.DesiredDetails != nil {
		t.Errorf("expected desired_details cleared, got %q", *cleared.DesiredDetails)
	}
}

// --- Sessions and tasks ---

func TestCreateSessionTool_NotLeaf(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	root := seedFeature(t, s, p.ID, "", "Root")
	seedFeature(t, s, p.ID, root.ID, "Child")

	expectCode(t, call(t, NewCreateSessionTool(s), map[string]any{
		"feature_id": root.ID,
		"goal":       "do it",
	}), "not_leaf")
}

func TestCreateSessionTool_AlreadyActive(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	f := seedFeature(t, s, p.ID, "", "Leaf")

	args := map[string]any{"feature_id": f.ID, "goal": "first"}
	callOK(t, NewCreateSessionTool(s), args, nil)
	expectCode(t, call(t, NewCreateSessionTool(s), args), "session_already_active")
}

func TestCreateSessionTool_MalformedTasks(t *testing.T) {
	s := newTestStore(t)
	expectCode(t, call(t, NewCreateSessionTool(s), map[string]any{
		"feature_id": "x",
		"goal":       "g",
		"tasks":      "not a list",
	}), "invalid_input")
}

func TestSessionWorkflow_SquashIntoHistory(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	f := seedFeature(t, s, p.ID, "", "Password Login")

	var created models.SessionWithTasks
	callOK(t, NewCreateSessionTool(s), map[string]any{
		"feature_id": f.ID,
		"goal":       "ship login",
		"tasks": []any{
			map[string]any{"title": "form", "agent_type": "claude"},
			map[string]any{"title": "api"},
		},
	}, &created)
	if len(created.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(created.Tasks))
	}

	var sub models.Task
	callOK(t, NewCreateTaskTool(s), map[string]any{
		"session_id": created.Session.ID,
		"parent_id":  created.Tasks[1].ID,
		"title":      "rate limit",
	}, &sub)

	callOK(t, NewAddNoteTool(s), map[string]any{
		"task_id":       created.Tasks[0].ID,
		"feature_id":    "",
		"content":       "used the shared form component",
		"files_changed": []any{"web/login.tsx"},
	}, nil)

	var ctxView taskContext
	callOK(t, NewTaskContextTool(s), map[string]any{"id": created.Tasks[0].ID}, &ctxView)
	if ctxView.Session.Goal != "ship login" || len(ctxView.Notes) != 1 {
		t.Errorf("task context = %+v", ctxView)
	}
	if ctxView.Instructions == nil || *ctxView.Instructions != "run make check before committing" {
		t.Errorf("instructions = %v", ctxView.Instructions)
	}

	for _, id := range []string{created.Tasks[0].ID, created.Tasks[1].ID, sub.ID} {
		callOK(t, NewUpdateTaskTool(s), map[string]any{"id": id, "status": "running", "branch": "feat/login"}, nil)
	}
	expectCode(t, call(t, NewUpdateTaskTool(s), map[string]any{"id": sub.ID, "status": "pending"}), "invalid_transition")
	for _, id := range []string{created.Tasks[0].ID, created.Tasks[1].ID, sub.ID} {
		callOK(t, NewUpdateTaskTool(s), map[string]any{"id": id, "status": "completed"}, nil)
	}

	var running []models.Task
	callOK(t, NewListTasksTool(s), map[string]any{"session_id": created.Session.ID, "status": "running"}, &running)
	if len(running) != 0 {
		t.Errorf("running tasks = %d, want 0", len(running))
	}

	var status models.SessionStatusView
	callOK(t, NewSessionStatusTool(s), map[string]any{"feature_id": f.ID}, &status)
	if status.Session.ID != created.Session.ID || len(status.Tasks) != 3 {
		t.Errorf("status = %+v", status)
	}

	var done models.CompletionResult
	callOK(t, NewCompleteSessionTool(s), map[string]any{
		"session_id":    created.Session.ID,
		"summary":       "login shipped",
		"files_changed": []any{"api/login.go"},
		"commits":       []any{map[string]any{"sha": "abc123", "message": "add login"}},
	}, &done)
	if done.Session.Status != models.SessionCompleted {
		t.Errorf("outcome = %s, want completed", done.Session.Status)
	}
	if done.Feature.State != models.FeatureImplemented || done.Feature.Version != 2 {
		t.Errorf("feature = %+v", done.Feature)
	}
	wantFiles := []string{"api/login.go", "web/login.tsx"}
	if strings.Join(done.History.FilesChanged, ",") != strings.Join(wantFiles, ",") {
		t.Errorf("files = %v, want %v", done.History.FilesChanged, wantFiles)
	}

	var details models.HistoryDetails
	if done.History.Details == nil {
		t.Fatal("history details missing")
	}
	if err := json.Unmarshal([]byte(*done.History.Details), &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if details.TaskCounts["completed"] != 3 || len(details.Commits) != 1 {
		t.Errorf("details = %+v", details)
	}

	var history []models.FeatureHistory
	callOK(t, NewFeatureHistoryTool(s), map[string]any{"feature_id": f.ID}, &history)
	if len(history) != 1 || history[0].Summary != "login shipped" {
		t.Errorf("history = %+v", history)
	}

	expectCode(t, call(t, NewSessionStatusTool(s), map[string]any{"session_id": created.Session.ID}), "not_found")
	expectCode(t, call(t, NewSessionStatusTool(s), map[string]any{"feature_id": f.ID}), "session_not_active")
	expectCode(t, call(t, NewCompleteSessionTool(s), map[string]any{
		"session_id": created.Session.ID,
		"summary":    "again",
	}), "not_found")
}

func TestCompleteSessionTool_FailedLeavesFeature(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	f := seedFeature(t, s, p.ID, "", "Flaky")

	var created models.SessionWithTasks
	callOK(t, NewCreateSessionTool(s), map[string]any{
		"feature_id": f.ID,
		"goal":       "try",
		"tasks":      []any{map[string]any{"title": "only"}},
	}, &created)

	var done models.CompletionResult
	callOK(t, NewCompleteSessionTool(s), map[string]any{
		"session_id": created.Session.ID,
		"summary":    "gave up",
	}, &done)
	if done.Session.Status != models.SessionFailed {
		t.Errorf("outcome = %s, want failed", done.Session.Status)
	}
	if done.Feature.State != models.FeatureProposed || done.Feature.Version != 1 {
		t.Errorf("feature changed on failure: %+v", done.Feature)
	}
}

func TestCompleteSessionTool_MissingArgs(t *testing.T) {
	s := newTestStore(t)
	expectCode(t, call(t, NewCompleteSessionTool(s), map[string]any{"summary": "x"}), "invalid_input")
}

// --- History and notes ---

func TestAppendHistoryTool(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	f := seedFeature(t, s, p.ID, "", "Docs")

	callOK(t, NewAppendHistoryTool(s), map[string]any{
		"feature_id": f.ID,
		"summary":    "first",
	}, nil)
	callOK(t, NewAppendHistoryTool(s), map[string]any{
		"feature_id": f.ID,
		"summary":    "second",
		"details":    `{"source":"manual"}`,
	}, nil)
	expectCode(t, call(t, NewAppendHistoryTool(s), map[string]any{
		"feature_id": f.ID,
		"summary":    "bad",
		"details":    "{not json",
	}), "invalid_input")

	var history []models.FeatureHistory
	callOK(t, NewFeatureHistoryTool(s), map[string]any{"feature_id": f.ID, "limit": float64(1)}, &history)
	if len(history) != 1 || history[0].Summary != "second" {
		t.Errorf("history = %+v", history)
	}
}

func TestAddNoteTool_Targets(t *testing.T) {
	s := newTestStore(t)
	p := seedProject(t, s)
	f := seedFeature(t, s, p.ID, "", "Notes")

	callOK(t, NewAddNoteTool(s), map[string]any{"feature_id": f.ID, "content": "decided on sqlite"}, nil)
	expectCode(t, call(t, NewAddNoteTool(s), map[string]any{"content": "orphan"}), "invalid_input")
	expectCode(t, call(t, NewAddNoteTool(s), map[string]any{"task_id": "missing", "content": "x"}), "not_found")

	var view featureView
	callOK(t, NewGetFeatureTool(s), map[string]any{"id": f.ID}, &view)
	if len(view.Notes) != 1 {
		t.Errorf("notes = %d, want 1", len(view.Notes))
	}
}
