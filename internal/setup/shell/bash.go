package shell

import (
	"strings"

	"github.com/natelust/reups/internal/setup"
)

// renderBash renders directives as a POSIX-compatible bash script:
// export/unset/alias/unalias/source with single-quoted literals.
func renderBash(directives []setup.Directive) string {
	var b strings.Builder
	for _, d := range directives {
		switch d.Kind {
		case setup.DirExport:
			b.WriteString("export ")
			b.WriteString(d.Var)
			b.WriteString("=")
			b.WriteString(shQuote(d.Value))
			b.WriteString("\n")
		case setup.DirUnset:
			b.WriteString("unset ")
			b.WriteString(d.Var)
			b.WriteString("\n")
		case setup.DirAlias:
			b.WriteString("alias ")
			b.WriteString(d.Var)
			b.WriteString("=")
			b.WriteString(shQuote(d.Value))
			b.WriteString("\n")
		case setup.DirUnalias:
			b.WriteString("unalias ")
			b.WriteString(d.Var)
			b.WriteString("\n")
		case setup.DirSource:
			b.WriteString("source ")
			b.WriteString(shQuote(d.Path))
			b.WriteString("\n")
		}
	}
	return b.String()
}
