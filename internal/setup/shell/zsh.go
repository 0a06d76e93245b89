package shell

import "github.com/natelust/reups/internal/setup"

// renderZsh renders directives for zsh. Zsh's export/unset/alias/unalias/
// source syntax is identical to bash for these directive kinds, so this
// reuses renderBash's implementation rather than duplicating it.
func renderZsh(directives []setup.Directive) string {
	return renderBash(directives)
}
