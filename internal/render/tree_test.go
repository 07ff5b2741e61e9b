package render

import (
	"strings"
	"testing"

	"github.com/HendryAvila/manifest/internal/models"
)

func node(title string, state models.FeatureState, children ...*models.TreeNode) *models.TreeNode {
	return &models.TreeNode{
		Feature:  models.Feature{Title: title, State: state},
		Children: children,
	}
}

func TestTree_SingleRoot(t *testing.T) {
	got := Tree([]*models.TreeNode{node("Authentication", models.FeatureProposed)}, Options{})
	if got != "Authentication\n" {
		t.Errorf("Tree = %q", got)
	}
}

func TestTree_Nested(t *testing.T) {
	tree := []*models.TreeNode{
		node("Authentication", models.FeatureProposed,
			node("Password Login", models.FeatureImplemented),
			node("OAuth Integration", models.FeatureSpecified,
				node("Google Provider", models.FeatureProposed),
				node("GitHub Provider", models.FeatureProposed),
			),
			node("Legacy Basic Auth", models.FeatureDeprecated),
		),
	}
	want := "Authentication\n" +
		"├── ● Password Login\n" +
		"├── ○ OAuth Integration\n" +
		"│   ├── ◇ Google Provider\n" +
		"│   └── ◇ GitHub Provider\n" +
		"└── ✗ Legacy Basic Auth\n"
	if got := Tree(tree, Options{}); got != want {
		t.Errorf("Tree =\n%s\nwant\n%s", got, want)
	}
}

func TestTree_LastBranchUsesBlankContinuation(t *testing.T) {
	tree := []*models.TreeNode{
		node("Root", models.FeatureProposed,
			node("A", models.FeatureProposed,
				node("A1", models.FeatureSpecified),
			),
		),
		node("Second", models.FeatureImplemented),
	}
	want := "Root\n└── ◇ A\n    └── ○ A1\nSecond\n"
	if got := Tree(tree, Options{}); got != want {
		t.Errorf("Tree = %q, want %q", got, want)
	}
}

func TestTree_Color(t *testing.T) {
	tree := []*models.TreeNode{node("Root", models.FeatureProposed, node("A", models.FeatureImplemented))}
	got := Tree(tree, Options{Color: true})
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected ANSI escapes, got %q", got)
	}
	if !strings.Contains(got, "●") || !strings.Contains(got, " A\n") {
		t.Errorf("symbol or title missing: %q", got)
	}
}

func TestLegend(t *testing.T) {
	got := Legend(Options{})
	for _, want := range []string{"◇ proposed", "○ specified", "● implemented", "✗ deprecated"} {
		if !strings.Contains(got, want) {
			t.Errorf("Legend missing %q: %q", want, got)
		}
	}
}
