package models

import (
	"strings"
	"testing"
)

// --- Enum parsing ---

func TestParseFeatureState_AllValid(t *testing.T) {
	for _, s := range []string{"proposed", "specified", "implemented", "deprecated"} {
		got, err := ParseFeatureState(s)
		if err != nil {
			t.Errorf("ParseFeatureState(%q) error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseFeatureState(%q) = %q", s, got)
		}
	}
}

func TestParseFeatureState_RejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "done", "Proposed", "living"} {
		if _, err := ParseFeatureState(s); err == nil {
			t.Errorf("ParseFeatureState(%q) should fail", s)
		}
	}
}

func TestParseSessionStatus(t *testing.T) {
	for _, s := range []string{"active", "completed", "failed"} {
		if _, err := ParseSessionStatus(s); err != nil {
			t.Errorf("ParseSessionStatus(%q) error: %v", s, err)
		}
	}
	if _, err := ParseSessionStatus("paused"); err == nil {
		t.Error("ParseSessionStatus(paused) should fail")
	}
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	if SessionActive.IsTerminal() {
		t.Error("active should not be terminal")
	}
	if !SessionCompleted.IsTerminal() || !SessionFailed.IsTerminal() {
		t.Error("completed and failed should be terminal")
	}
}

func TestParseTaskStatus(t *testing.T) {
	for _, s := range []string{"pending", "running", "completed", "failed"} {
		if _, err := ParseTaskStatus(s); err != nil {
			t.Errorf("ParseTaskStatus(%q) error: %v", s, err)
		}
	}
	_, err := ParseTaskStatus("blocked")
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("ParseTaskStatus(blocked) error = %v, want mention of value", err)
	}
}

func TestParseAgentType(t *testing.T) {
	got, err := ParseAgentType("")
	if err != nil || got != AgentNone {
		t.Errorf("ParseAgentType(\"\") = %q, %v; want none", got, err)
	}
	for _, s := range []string{"claude", "gemini", "codex"} {
		if _, err := ParseAgentType(s); err != nil {
			t.Errorf("ParseAgentType(%q) error: %v", s, err)
		}
	}
	if _, err := ParseAgentType("copilot"); err == nil {
		t.Error("ParseAgentType(copilot) should fail")
	}
}

// --- Input validation ---

func TestCreateFeatureInput_Validate(t *testing.T) {
	bad := FeatureState("shipped")
	tests := []struct {
		name    string
		in      CreateFeatureInput
		wantErr bool
	}{
		{"ok", CreateFeatureInput{ProjectID: "p", Title: "Auth"}, false},
		{"missing project", CreateFeatureInput{Title: "Auth"}, true},
		{"blank title", CreateFeatureInput{ProjectID: "p", Title: "  "}, true},
		{"bad state", CreateFeatureInput{ProjectID: "p", Title: "Auth", State: &bad}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateFeatureInput_IsEmpty(t *testing.T) {
	if !(UpdateFeatureInput{}).IsEmpty() {
		t.Error("zero input should be empty")
	}
	p := 3
	if (UpdateFeatureInput{Priority: &p}).IsEmpty() {
		t.Error("input with priority should not be empty")
	}
}

func TestCreateSessionInput_RejectsParentedInitialTasks(t *testing.T) {
	parent := "t-1"
	in := CreateSessionInput{
		FeatureID: "f",
		Goal:      "login",
		Tasks:     []CreateTaskInput{{Title: "form", ParentID: &parent}},
	}
	if err := in.Validate(); err == nil {
		t.Error("expected error for initial task with parent")
	}
}

func TestAddNoteInput_ExactlyOneTarget(t *testing.T) {
	f, tk := "f", "t"
	if err := (AddNoteInput{Content: "x"}).Validate(); err == nil {
		t.Error("no target should fail")
	}
	if err := (AddNoteInput{FeatureID: &f, TaskID: &tk, Content: "x"}).Validate(); err == nil {
		t.Error("two targets should fail")
	}
	if err := (AddNoteInput{TaskID: &tk, Content: "x"}).Validate(); err != nil {
		t.Errorf("task target should pass: %v", err)
	}
}

func TestCompleteSessionInput_Validate(t *testing.T) {
	if err := (CompleteSessionInput{}).Validate(); err == nil {
		t.Error("missing summary should fail")
	}
	in := CompleteSessionInput{Summary: "done", Commits: []CommitRef{{Message: "no sha"}}}
	if err := in.Validate(); err == nil {
		t.Error("commit without sha should fail")
	}
}
