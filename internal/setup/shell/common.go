// Package shell renders a dialect-independent []setup.Directive into the
// shell-specific script a caller's login shell can evaluate (spec §4.6). The
// dialect is always an explicit parameter, never detected from $SHELL, so
// rendering stays pure and deterministic (spec §8 testable property 1).
package shell

import (
	"fmt"
	"strings"

	"github.com/natelust/reups/internal/setup"
)

// Dialect identifies a supported shell.
type Dialect int

const (
	Bash Dialect = iota
	Zsh
	Fish
	Nushell
)

func (d Dialect) String() string {
	switch d {
	case Bash:
		return "bash"
	case Zsh:
		return "zsh"
	case Fish:
		return "fish"
	case Nushell:
		return "nushell"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

// ParseDialect maps a shell name (as typically reported by $SHELL's
// basename) to a Dialect.
func ParseDialect(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "bash":
		return Bash, true
	case "zsh":
		return Zsh, true
	case "fish":
		return Fish, true
	case "nu", "nushell":
		return Nushell, true
	default:
		return 0, false
	}
}

// Render dispatches to the dialect-specific generator, producing a script
// that applies every directive in order when sourced.
func Render(dialect Dialect, directives []setup.Directive) (string, error) {
	switch dialect {
	case Bash:
		return renderBash(directives), nil
	case Zsh:
		return renderZsh(directives), nil
	case Fish:
		return renderFish(directives), nil
	case Nushell:
		return renderNushell(directives), nil
	default:
		return "", fmt.Errorf("shell: unsupported dialect %s", dialect)
	}
}

// shQuote single-quotes s for POSIX shells, escaping embedded single quotes
// with the standard '"'"' trick.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// dqQuote double-quotes s for dialects (fish, nushell) whose string literals
// use backslash escaping.
func dqQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
