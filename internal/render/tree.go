// Package render draws feature trees as ASCII art.
package render

import (
	"strings"

	"github.com/fatih/color"

	"github.com/HendryAvila/manifest/internal/models"
)

// State symbols.
const (
	SymbolProposed    = "◇"
	SymbolSpecified   = "○"
	SymbolImplemented = "●"
	SymbolDeprecated  = "✗"
)

// Options controls rendering.
type Options struct {
	// Color wraps state symbols in ANSI colours.
	Color bool
}

type palette map[models.FeatureState]*color.Color

func newPalette(enabled bool) palette {
	p := palette{
		models.FeatureProposed:    color.New(color.FgHiBlack),
		models.FeatureSpecified:   color.New(color.FgYellow),
		models.FeatureImplemented: color.New(color.FgGreen),
		models.FeatureDeprecated:  color.New(color.FgRed),
	}
	for _, c := range p {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Symbol returns the marker for a feature state.
func Symbol(s models.FeatureState) string {
	switch s {
	case models.FeatureSpecified:
		return SymbolSpecified
	case models.FeatureImplemented:
		return SymbolImplemented
	case models.FeatureDeprecated:
		return SymbolDeprecated
	default:
		return SymbolProposed
	}
}

// Tree renders a forest. Roots print as their bare title; descendants get a
// branch and a state symbol:
//
//	Authentication
//	├── ● Password Login
//	├── ○ OAuth Integration
//	│   └── ◇ GitHub Provider
//	└── ✗ Legacy Basic Auth
func Tree(nodes []*models.TreeNode, opts Options) string {
	var b strings.Builder
	p := newPalette(opts.Color)
	for _, n := range nodes {
		b.WriteString(n.Title)
		b.WriteByte('\n')
		writeChildren(&b, n.Children, "", p)
	}
	return b.String()
}

func writeChildren(b *strings.Builder, children []*models.TreeNode, prefix string, p palette) {
	for i, c := range children {
		last := i == len(children)-1
		branch, cont := "├── ", "│   "
		if last {
			branch, cont = "└── ", "    "
		}
		b.WriteString(prefix)
		b.WriteString(branch)
		b.WriteString(p[c.State].Sprint(Symbol(c.State)))
		b.WriteByte(' ')
		b.WriteString(c.Title)
		b.WriteByte('\n')
		writeChildren(b, c.Children, prefix+cont, p)
	}
}

// Legend lists every state with its symbol.
func Legend(opts Options) string {
	p := newPalette(opts.Color)
	states := []models.FeatureState{
		models.FeatureProposed, models.FeatureSpecified,
		models.FeatureImplemented, models.FeatureDeprecated,
	}
	parts := make([]string, 0, len(states))
	for _, s := range states {
		parts = append(parts, p[s].Sprint(Symbol(s))+" "+string(s))
	}
	return strings.Join(parts, "  ")
}
