package shell

import (
	"strings"

	"github.com/natelust/reups/internal/setup"
)

// renderFish renders directives for fish, which spells variable export/unset
// and aliasing differently from POSIX shells (spec §4.6).
func renderFish(directives []setup.Directive) string {
	var b strings.Builder
	for _, d := range directives {
		switch d.Kind {
		case setup.DirExport:
			b.WriteString("set -gx ")
			b.WriteString(d.Var)
			b.WriteString(" ")
			b.WriteString(dqQuote(d.Value))
			b.WriteString("\n")
		case setup.DirUnset:
			b.WriteString("set -e ")
			b.WriteString(d.Var)
			b.WriteString("\n")
		case setup.DirAlias:
			b.WriteString("alias ")
			b.WriteString(d.Var)
			b.WriteString(" ")
			b.WriteString(dqQuote(d.Value))
			b.WriteString("\n")
		case setup.DirUnalias:
			b.WriteString("functions -e ")
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
