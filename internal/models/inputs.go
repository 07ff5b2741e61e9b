package models

import (
	"errors"
	"strings"
)

// CreateProjectInput holds the input for creating a project.
type CreateProjectInput struct {
	Name         string  `json:"name"`
	Description  *string `json:"description,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
}

// Validate checks required fields.
func (in CreateProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("'name' is required")
	}
	return nil
}

// UpdateProjectInput holds partial update fields for a project.
// Nil fields keep their stored value.
type UpdateProjectInput struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
}

// Validate checks supplied fields.
func (in UpdateProjectInput) Validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return errors.New("'name' cannot be empty")
	}
	return nil
}

// AddDirectoryInput holds the input for binding a directory to a project.
type AddDirectoryInput struct {
	Path      string  `json:"path"`
	GitRemote *string `json:"git_remote,omitempty"`
	IsPrimary bool    `json:"is_primary"`
}

// Validate checks required fields.
func (in AddDirectoryInput) Validate() error {
	if strings.TrimSpace(in.Path) == "" {
		return errors.New("'path' is required")
	}
	return nil
}

// CreateFeatureInput holds the input for creating a feature.
type CreateFeatureInput struct {
	ProjectID      string        `json:"project_id"`
	ParentID       *string       `json:"parent_id,omitempty"`
	Title          string        `json:"title"`
	Details        *string       `json:"details,omitempty"`
	DesiredDetails *string       `json:"desired_details,omitempty"`
	State          *FeatureState `json:"state,omitempty"`
	Priority       *int          `json:"priority,omitempty"`
}

// Validate checks required fields and enum values.
func (in CreateFeatureInput) Validate() error {
	if in.ProjectID == "" {
		return errors.New("'project_id' is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("'title' is required")
	}
	if in.State != nil {
		if _, err := ParseFeatureState(string(*in.State)); err != nil {
			return err
		}
	}
	return nil
}

// UpdateFeatureInput holds partial update fields for a feature. Only non-nil
// fields are written.
type UpdateFeatureInput struct {
	ParentID *string       `json:"parent_id,omitempty"`
	Title    *string       `json:"title,omitempty"`
	Details  *string       `json:"details,omitempty"`
	State    *FeatureState `json:"state,omitempty"`
	Priority *int          `json:"priority,omitempty"`
	// DesiredDetails set to an empty string clears the target description.
	DesiredDetails *string `json:"desired_details,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (in UpdateFeatureInput) IsEmpty() bool {
	return in.ParentID == nil && in.Title == nil && in.Details == nil &&
		in.DesiredDetails == nil && in.State == nil && in.Priority == nil
}

// Validate checks supplied fields.
func (in UpdateFeatureInput) Validate() error {
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return errors.New("'title' cannot be empty")
	}
	if in.State != nil {
		if _, err := ParseFeatureState(string(*in.State)); err != nil {
			return err
		}
	}
	return nil
}

// ProposedFeature is one node of a planned feature tree. Children become
// features under it.
type ProposedFeature struct {
	Title    string            `json:"title"`
	Details  *string           `json:"details,omitempty"`
	Priority int               `json:"priority"`
	Children []ProposedFeature `json:"children,omitempty"`
}

// Validate checks the node and its whole subtree.
func (p ProposedFeature) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("every proposed feature needs a 'title'")
	}
	for _, c := range p.Children {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CountProposed returns the number of nodes in a proposed forest.
func CountProposed(features []ProposedFeature) int {
	n := len(features)
	for _, f := range features {
		n += CountProposed(f.Children)
	}
	return n
}

// CreateTaskInput holds the input for creating a task in a session.
type CreateTaskInput struct {
	ParentID  *string   `json:"parent_id,omitempty"`
	Title     string    `json:"title"`
	Scope     *string   `json:"scope,omitempty"`
	AgentType AgentType `json:"agent_type,omitempty"`
}

// Validate checks required fields and enum values.
func (in CreateTaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("'title' is required")
	}
	if _, err := ParseAgentType(string(in.AgentType)); err != nil {
		return err
	}
	return nil
}

// UpdateTaskInput holds the fields an agent reports while working.
type UpdateTaskInput struct {
	Status       *TaskStatus `json:"status,omitempty"`
	AgentType    *AgentType  `json:"agent_type,omitempty"`
	WorktreePath *string     `json:"worktree_path,omitempty"`
	Branch       *string     `json:"branch,omitempty"`
}

// IsEmpty reports whether no field was supplied.
func (in UpdateTaskInput) IsEmpty() bool {
	return in.Status == nil && in.AgentType == nil && in.WorktreePath == nil && in.Branch == nil
}

// Validate checks enum values.
func (in UpdateTaskInput) Validate() error {
	if in.Status != nil {
		if _, err := ParseTaskStatus(string(*in.Status)); err != nil {
			return err
		}
	}
	if in.AgentType != nil {
		if _, err := ParseAgentType(string(*in.AgentType)); err != nil {
			return err
		}
	}
	return nil
}

// CreateSessionInput holds the input for starting a session on a leaf
// feature. Initial tasks are created top-level in the same transaction.
type CreateSessionInput struct {
	FeatureID string            `json:"feature_id"`
	Goal      string            `json:"goal"`
	Tasks     []CreateTaskInput `json:"tasks,omitempty"`
}

// Validate checks required fields and every initial task.
func (in CreateSessionInput) Validate() error {
	if in.FeatureID == "" {
		return errors.New("'feature_id' is required")
	}
	if strings.TrimSpace(in.Goal) == "" {
		return errors.New("'goal' is required")
	}
	for _, t := range in.Tasks {
		if err := t.Validate(); err != nil {
			return err
		}
		if t.ParentID != nil {
			return errors.New("initial tasks cannot reference a parent task")
		}
	}
	return nil
}

// CompleteSessionInput holds the squash parameters.
type CompleteSessionInput struct {
	Summary      string      `json:"summary"`
	FilesChanged []string    `json:"files_changed,omitempty"`
	Author       *string     `json:"author,omitempty"`
	Commits      []CommitRef `json:"commits,omitempty"`
	// FeatureState overrides the state a successful session advances the
	// feature to. Defaults to implemented. Ignored when the session fails.
	FeatureState *FeatureState `json:"feature_state,omitempty"`
}

// Validate checks required fields.
func (in CompleteSessionInput) Validate() error {
	if strings.TrimSpace(in.Summary) == "" {
		return errors.New("'summary' is required")
	}
	if in.FeatureState != nil {
		if _, err := ParseFeatureState(string(*in.FeatureState)); err != nil {
			return err
		}
	}
	for _, c := range in.Commits {
		if c.SHA == "" {
			return errors.New("commit 'sha' is required")
		}
	}
	return nil
}

// AddNoteInput attaches a note to exactly one of a task or a feature.
type AddNoteInput struct {
	FeatureID    *string  `json:"feature_id,omitempty"`
	TaskID       *string  `json:"task_id,omitempty"`
	Content      string   `json:"content"`
	FilesChanged []string `json:"files_changed,omitempty"`
}

// Validate checks the target and content.
func (in AddNoteInput) Validate() error {
	if (in.FeatureID == nil) == (in.TaskID == nil) {
		return errors.New("exactly one of 'feature_id' or 'task_id' is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return errors.New("'content' is required")
	}
	return nil
}

// AppendHistoryInput records a history entry outside a session squash.
type AppendHistoryInput struct {
	FeatureID    string   `json:"feature_id"`
	Summary      string   `json:"summary"`
	FilesChanged []string `json:"files_changed,omitempty"`
	Author       *string  `json:"author,omitempty"`
	Details      *string  `json:"details,omitempty"`
}

// Validate checks required fields.
func (in AppendHistoryInput) Validate() error {
	if in.FeatureID == "" {
		return errors.New("'feature_id' is required")
	}
	if strings.TrimSpace(in.Summary) == "" {
		return errors.New("'summary' is required")
	}
	return nil
}
