// Package explain renders a Resolution and its emitted directives for
// human inspection (spec A3 "Explain/dry-run rendering"): `reups explain`
// prints this instead of emitting shell commands.
package explain

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/natelust/reups/internal/resolve"
	"github.com/natelust/reups/internal/setup"
)

var (
	colorProduct = lipgloss.Color("#06B6D4")
	colorVersion = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#EAB308")
	colorMuted   = lipgloss.Color("#6B7280")
	colorHeader  = lipgloss.Color("#7C3AED")

	styleHeader    = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)
	styleProduct   = lipgloss.NewStyle().Foreground(colorProduct)
	styleVersion   = lipgloss.NewStyle().Foreground(colorVersion)
	styleWarning   = lipgloss.NewStyle().Foreground(colorWarning)
	styleMuted     = lipgloss.NewStyle().Foreground(colorMuted)
	styleDirective = lipgloss.NewStyle().PaddingLeft(2)
)

// Resolution renders a resolve.Resolution's topological order, one line per
// node, dependency-first.
func Resolution(res *resolve.Resolution) string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Resolution") + "\n")
	for i, node := range res.Order {
		fmt.Fprintf(&b, "  %2d. %s %s\n", i+1,
			styleProduct.Render(node.Product),
			styleVersion.Render(string(node.Version)))
	}
	if res.Warnings != nil && len(res.Warnings.Errors) > 0 {
		b.WriteString("\n" + styleWarning.Render("Warnings") + "\n")
		for _, w := range res.Warnings.Errors {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

// Directives renders an ordered list of emitted setup directives as a
// human-readable (not shell-executable) summary, grouped the same way
// internal/setup emits them.
func Directives(out *setup.Output) string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Directives") + "\n")
	for _, d := range out.Directives {
		b.WriteString(styleDirective.Render(describe(d)) + "\n")
	}
	if len(out.Warnings) > 0 {
		b.WriteString("\n" + styleWarning.Render("Warnings") + "\n")
		for _, w := range out.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

func describe(d setup.Directive) string {
	switch d.Kind {
	case setup.DirExport:
		return fmt.Sprintf("export %s=%s", d.Var, d.Value)
	case setup.DirUnset:
		return fmt.Sprintf("unset %s", d.Var)
	case setup.DirAlias:
		return fmt.Sprintf("alias %s=%s", d.Var, d.Value)
	case setup.DirUnalias:
		return fmt.Sprintf("unalias %s", d.Var)
	case setup.DirSource:
		return fmt.Sprintf("source %s", d.Path)
	default:
		return styleMuted.Render(fmt.Sprintf("unknown directive kind %d", d.Kind))
	}
}
