package models

import (
	"reflect"
	"strings"
	"testing"
)

// --- CanTransitionTask ---

func TestCanTransitionTask_Allowed(t *testing.T) {
	allowed := [][2]TaskStatus{
		{TaskPending, TaskRunning},
		{TaskRunning, TaskCompleted},
		{TaskRunning, TaskFailed},
	}
	for _, tr := range allowed {
		if err := CanTransitionTask(tr[0], tr[1]); err != nil {
			t.Errorf("%s -> %s should be allowed: %v", tr[0], tr[1], err)
		}
	}
}

func TestCanTransitionTask_Rejected(t *testing.T) {
	rejected := [][2]TaskStatus{
		{TaskPending, TaskCompleted},
		{TaskPending, TaskFailed},
		{TaskPending, TaskPending},
		{TaskRunning, TaskRunning},
		{TaskRunning, TaskPending},
		{TaskCompleted, TaskRunning},
		{TaskFailed, TaskRunning},
		{TaskCompleted, TaskFailed},
	}
	for _, tr := range rejected {
		if err := CanTransitionTask(tr[0], tr[1]); err == nil {
			t.Errorf("%s -> %s should be rejected", tr[0], tr[1])
		}
	}
}

func TestCanTransitionTask_TerminalStatuses(t *testing.T) {
	for _, s := range []TaskStatus{TaskPending, TaskRunning, TaskCompleted, TaskFailed} {
		terminal := s == TaskCompleted || s == TaskFailed
		if got := IsTaskTerminal(s); got != terminal {
			t.Errorf("IsTaskTerminal(%s) = %v, want %v", s, got, terminal)
		}
		if !terminal {
			continue
		}
		err := CanTransitionTask(s, TaskRunning)
		if err == nil || !strings.Contains(err.Error(), "terminal") {
			t.Errorf("%s -> running: got %v, want terminal error", s, err)
		}
	}
}

// --- SessionOutcome ---

func TestSessionOutcome(t *testing.T) {
	tests := []struct {
		name     string
		statuses []TaskStatus
		want     SessionStatus
	}{
		{"no tasks", nil, SessionCompleted},
		{"all completed", []TaskStatus{TaskCompleted, TaskCompleted}, SessionCompleted},
		{"one failed", []TaskStatus{TaskCompleted, TaskFailed}, SessionFailed},
		{"one pending", []TaskStatus{TaskCompleted, TaskPending}, SessionFailed},
		{"one running", []TaskStatus{TaskRunning}, SessionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := make([]Task, len(tt.statuses))
			for i, s := range tt.statuses {
				tasks[i] = Task{ID: string(rune('a' + i)), Status: s}
			}
			if got := SessionOutcome(tasks); got != tt.want {
				t.Errorf("SessionOutcome = %s, want %s", got, tt.want)
			}
		})
	}
}

// --- BuildHistoryDetails ---

func TestBuildHistoryDetails_AggregatesTasksAndNotes(t *testing.T) {
	before := int64(3)
	sess := Session{ID: "s1", Goal: "login", FeatureVersionBefore: &before}
	tasks := []Task{
		{ID: "t1", Title: "form", Status: TaskCompleted, AgentType: AgentClaude},
		{ID: "t2", Title: "api", Status: TaskFailed},
	}
	notes := map[string][]ImplementationNote{
		"t1": {{Content: "used htmx"}, {Content: "added csrf"}},
	}

	d := BuildHistoryDetails(sess, tasks, notes, nil)

	if d.Outcome != SessionFailed {
		t.Errorf("Outcome = %s, want failed", d.Outcome)
	}
	if d.Goal != "login" {
		t.Errorf("Goal = %q", d.Goal)
	}
	if d.TaskCounts["completed"] != 1 || d.TaskCounts["failed"] != 1 || d.TaskCounts["pending"] != 0 {
		t.Errorf("TaskCounts = %v", d.TaskCounts)
	}
	if len(d.Tasks) != 2 || d.Tasks[0].ID != "t1" || d.Tasks[1].ID != "t2" {
		t.Fatalf("Tasks order = %+v", d.Tasks)
	}
	if !reflect.DeepEqual(d.Tasks[0].Notes, []string{"used htmx", "added csrf"}) {
		t.Errorf("Notes = %v", d.Tasks[0].Notes)
	}
	if d.FeatureVersionBefore == nil || *d.FeatureVersionBefore != 3 {
		t.Errorf("FeatureVersionBefore = %v", d.FeatureVersionBefore)
	}
}

// --- MergeFiles ---

func TestMergeFiles(t *testing.T) {
	got := MergeFiles([]string{"b.go", "a.go"}, []string{"a.go", "", "c.go"})
	want := []string{"a.go", "b.go", "c.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeFiles = %v, want %v", got, want)
	}
	if MergeFiles(nil, []string{""}) != nil {
		t.Error("MergeFiles of blanks should be nil")
	}
}
