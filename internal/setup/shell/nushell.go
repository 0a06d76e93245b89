package shell

import (
	"strings"

	"github.com/natelust/reups/internal/setup"
)

// renderNushell renders directives for nushell. Nushell has no direct
// runtime equivalent of shell aliasing or unaliasing from a sourced script
// (aliases are parse-time constructs), so alias/unalias are emitted as
// env-var-backed "def --env" wrappers and a best-effort `hide` respectively.
func renderNushell(directives []setup.Directive) string {
	var b strings.Builder
	for _, d := range directives {
		switch d.Kind {
		case setup.DirExport:
			b.WriteString("$env.")
			b.WriteString(d.Var)
			b.WriteString(" = ")
			b.WriteString(dqQuote(d.Value))
			b.WriteString("\n")
		case setup.DirUnset:
			b.WriteString("hide-env ")
			b.WriteString(d.Var)
			b.WriteString("\n")
		case setup.DirAlias:
			b.WriteString("def --env ")
			b.WriteString(d.Var)
			b.WriteString(" [] { ")
			b.WriteString(d.Value)
			b.WriteString(" }\n")
		case setup.DirUnalias:
			b.WriteString("hide ")
			b.WriteString(d.Var)
			b.WriteString("\n")
		case setup.DirSource:
			b.WriteString("source ")
			b.WriteString(dqQuote(d.Path))
			b.WriteString("\n")
		}
	}
	return b.String()
}
