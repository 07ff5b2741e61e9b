// Package models defines the entities tracked by manifest: projects, the
// feature tree, ephemeral work sessions with their tasks, and the permanent
// feature history produced when a session is squashed.
//
// Enumerations are closed string types. Each one has an exhaustive Parse
// function that rejects unknown text, so values read back from storage are
// never silently defaulted.
package models

import "fmt"

// --- Feature state enum ---

// FeatureState is the lifecycle state of a feature.
type FeatureState string

const (
	FeatureProposed    FeatureState = "proposed"
	FeatureSpecified   FeatureState = "specified"
	FeatureImplemented FeatureState = "implemented"
	FeatureDeprecated  FeatureState = "deprecated"
)

// validFeatureStates is the set of allowed feature states.
var validFeatureStates = map[FeatureState]bool{
	FeatureProposed:    true,
	FeatureSpecified:   true,
	FeatureImplemented: true,
	FeatureDeprecated:  true,
}

// ParseFeatureState maps persisted or user-supplied text to a FeatureState.
func ParseFeatureState(s string) (FeatureState, error) {
	st := FeatureState(s)
	if !validFeatureStates[st] {
		return "", fmt.Errorf("invalid feature state %q: must be one of: proposed, specified, implemented, deprecated", s)
	}
	return st, nil
}

// --- Session status enum ---

// SessionStatus is the status of a work session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

var validSessionStatuses = map[SessionStatus]bool{
	SessionActive:    true,
	SessionCompleted: true,
	SessionFailed:    true,
}

// ParseSessionStatus maps text to a SessionStatus.
func ParseSessionStatus(s string) (SessionStatus, error) {
	st := SessionStatus(s)
	if !validSessionStatuses[st] {
		return "", fmt.Errorf("invalid session status %q: must be one of: active, completed, failed", s)
	}
	return st, nil
}

// IsTerminal reports whether no transition leaves this status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// --- Task status enum ---

// TaskStatus is the execution status of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

var validTaskStatuses = map[TaskStatus]bool{
	TaskPending:   true,
	TaskRunning:   true,
	TaskCompleted: true,
	TaskFailed:    true,
}

// ParseTaskStatus maps text to a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(s)
	if !validTaskStatuses[st] {
		return "", fmt.Errorf("invalid task status %q: must be one of: pending, running, completed, failed", s)
	}
	return st, nil
}

// --- Agent type enum ---

// AgentType identifies the external agent a task is assigned to.
// The zero value means unassigned.
type AgentType string

const (
	AgentNone   AgentType = ""
	AgentClaude AgentType = "claude"
	AgentGemini AgentType = "gemini"
	AgentCodex  AgentType = "codex"
)

var validAgentTypes = map[AgentType]bool{
	AgentClaude: true,
	AgentGemini: true,
	AgentCodex:  true,
}

// ParseAgentType maps text to an AgentType. Empty text is AgentNone.
func ParseAgentType(s string) (AgentType, error) {
	if s == "" {
		return AgentNone, nil
	}
	at := AgentType(s)
	if !validAgentTypes[at] {
		return "", fmt.Errorf("invalid agent type %q: must be one of: claude, gemini, codex", s)
	}
	return at, nil
}

// --- Entities ---

// Project is the top-level container for a feature tree.
type Project struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// ProjectDirectory binds a filesystem path to a project.
type ProjectDirectory struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	Path      string  `json:"path"`
	GitRemote *string `json:"git_remote,omitempty"`
	IsPrimary bool    `json:"is_primary"`
	CreatedAt string  `json:"created_at"`
}

// ProjectWithDirectories is a project plus its registered directories.
type ProjectWithDirectories struct {
	Project
	Directories []ProjectDirectory `json:"directories"`
}

// Feature is a persistent node in a project's capability tree.
// Leafness is not stored; see store.IsLeaf.
type Feature struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	ParentID  *string `json:"parent_id,omitempty"`
	Title     string  `json:"title"`
	Details   *string `json:"details,omitempty"`
	// DesiredDetails describes the intended behavior when it differs from
	// Details; nil when the feature already matches.
	DesiredDetails *string      `json:"desired_details,omitempty"`
	State          FeatureState `json:"state"`
	Priority       int          `json:"priority"`
	Version        int64        `json:"version"`
	CreatedAt      string       `json:"created_at"`
	UpdatedAt      string       `json:"updated_at"`
}

// TreeNode is a feature with its nested children.
type TreeNode struct {
	Feature
	Children []*TreeNode `json:"children"`
}

// Session is one ephemeral work episode on a leaf feature.
type Session struct {
	ID                   string        `json:"id"`
	FeatureID            string        `json:"feature_id"`
	Goal                 string        `json:"goal"`
	Status               SessionStatus `json:"status"`
	FeatureVersionBefore *int64        `json:"feature_version_before,omitempty"`
	FeatureVersionAfter  *int64        `json:"feature_version_after,omitempty"`
	CreatedAt            string        `json:"created_at"`
	CompletedAt          *string       `json:"completed_at,omitempty"`
}

// Task is a unit of work within a session.
type Task struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	ParentID     *string    `json:"parent_id,omitempty"`
	Title        string     `json:"title"`
	Scope        *string    `json:"scope,omitempty"`
	Status       TaskStatus `json:"status"`
	AgentType    AgentType  `json:"agent_type,omitempty"`
	WorktreePath *string    `json:"worktree_path,omitempty"`
	Branch       *string    `json:"branch,omitempty"`
	CreatedAt    string     `json:"created_at"`
}

// SessionWithTasks is returned by session creation.
type SessionWithTasks struct {
	Session Session `json:"session"`
	Tasks   []Task  `json:"tasks"`
}

// FeatureSummary is the minimal feature view embedded in session status.
type FeatureSummary struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	State FeatureState `json:"state"`
}

// SessionStatusView is a session with its feature and tasks.
type SessionStatusView struct {
	Session Session        `json:"session"`
	Feature FeatureSummary `json:"feature"`
	Tasks   []Task         `json:"tasks"`
}

// FeatureHistory is an append-only record of one squashed session, or of a
// manually appended entry. FeatureID is nil once the feature is deleted.
type FeatureHistory struct {
	ID           string   `json:"id"`
	FeatureID    *string  `json:"feature_id,omitempty"`
	SessionID    *string  `json:"session_id,omitempty"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed,omitempty"`
	Author       *string  `json:"author,omitempty"`
	Details      *string  `json:"details,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// ImplementationNote is a free-form annotation on a task or a feature.
type ImplementationNote struct {
	ID           string   `json:"id"`
	FeatureID    *string  `json:"feature_id,omitempty"`
	TaskID       *string  `json:"task_id,omitempty"`
	Content      string   `json:"content"`
	FilesChanged []string `json:"files_changed,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// CommitRef references a git commit produced during a session.
type CommitRef struct {
	SHA     string  `json:"sha"`
	Message string  `json:"message"`
	Author  *string `json:"author,omitempty"`
}

// CompletionResult is returned by a session squash.
type CompletionResult struct {
	Session Session        `json:"session"`
	History FeatureHistory `json:"history_entry"`
	Feature Feature        `json:"feature"`
}
