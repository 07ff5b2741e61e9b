package models

import (
	"fmt"
	"sort"
)

// --- Task state machine ---
//
// pending -> running -> completed | failed. Completed and failed are
// terminal. Status is only ever changed by an explicit agent report.

var allowedTaskTransitions = map[TaskStatus]map[TaskStatus]struct{}{
	TaskPending: {TaskRunning: {}},
	TaskRunning: {TaskCompleted: {}, TaskFailed: {}},
}

// CanTransitionTask checks whether a task may move from one status to another.
func CanTransitionTask(from, to TaskStatus) error {
	if IsTaskTerminal(from) {
		return fmt.Errorf("task status %q is terminal", from)
	}
	if _, ok := allowedTaskTransitions[from][to]; !ok {
		return fmt.Errorf("illegal task transition %s -> %s", from, to)
	}
	return nil
}

// IsTaskTerminal reports whether the task status admits no further transition.
func IsTaskTerminal(s TaskStatus) bool {
	return s == TaskCompleted || s == TaskFailed
}

// --- Squash outcome ---

// SessionOutcome decides how a session ends from the statuses of its tasks.
// A session succeeds only when every task completed. Any failed task, and any
// task still pending or running, makes the session failed. A session with no
// tasks succeeds.
func SessionOutcome(tasks []Task) SessionStatus {
	for _, t := range tasks {
		if t.Status != TaskCompleted {
			return SessionFailed
		}
	}
	return SessionCompleted
}

// --- History details payload ---

// HistoryDetails is the JSON body stored in feature_history.details for a
// squashed session.
type HistoryDetails struct {
	Outcome              SessionStatus  `json:"outcome"`
	Goal                 string         `json:"goal"`
	FeatureVersionBefore *int64         `json:"feature_version_before,omitempty"`
	FeatureVersionAfter  *int64         `json:"feature_version_after,omitempty"`
	TaskCounts           map[string]int `json:"task_counts"`
	Tasks                []TaskOutcome  `json:"tasks"`
	Commits              []CommitRef    `json:"commits,omitempty"`
}

// TaskOutcome is the per-task breakdown kept after the task row is deleted.
type TaskOutcome struct {
	ID           string     `json:"id"`
	ParentID     *string    `json:"parent_id,omitempty"`
	Title        string     `json:"title"`
	Scope        *string    `json:"scope,omitempty"`
	Status       TaskStatus `json:"status"`
	AgentType    AgentType  `json:"agent_type,omitempty"`
	Branch       *string    `json:"branch,omitempty"`
	WorktreePath *string    `json:"worktree_path,omitempty"`
	Notes        []string   `json:"notes,omitempty"`
}

// BuildHistoryDetails aggregates tasks and their notes into a deterministic
// payload. Tasks keep the order given (creation order); notes are keyed by
// task ID and keep their order.
func BuildHistoryDetails(sess Session, tasks []Task, notes map[string][]ImplementationNote, commits []CommitRef) HistoryDetails {
	d := HistoryDetails{
		Outcome:              SessionOutcome(tasks),
		Goal:                 sess.Goal,
		FeatureVersionBefore: sess.FeatureVersionBefore,
		FeatureVersionAfter:  sess.FeatureVersionAfter,
		TaskCounts: map[string]int{
			string(TaskPending):   0,
			string(TaskRunning):   0,
			string(TaskCompleted): 0,
			string(TaskFailed):    0,
		},
		Tasks:   make([]TaskOutcome, 0, len(tasks)),
		Commits: commits,
	}
	for _, t := range tasks {
		d.TaskCounts[string(t.Status)]++
		out := TaskOutcome{
			ID:           t.ID,
			ParentID:     t.ParentID,
			Title:        t.Title,
			Scope:        t.Scope,
			Status:       t.Status,
			AgentType:    t.AgentType,
			Branch:       t.Branch,
			WorktreePath: t.WorktreePath,
		}
		for _, n := range notes[t.ID] {
			out.Notes = append(out.Notes, n.Content)
		}
		d.Tasks = append(d.Tasks, out)
	}
	return d
}

// MergeFiles returns the sorted union of the given file lists with blanks
// removed. Nil when the union is empty.
func MergeFiles(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, l := range lists {
		for _, f := range l {
			if f == "" {
				continue
			}
			seen[f] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
