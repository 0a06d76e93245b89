package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natelust/reups/internal/ident"
	"github.com/natelust/reups/internal/resolve"
	"github.com/natelust/reups/internal/setup"
	"github.com/natelust/reups/internal/setup/shell"
)

var flagSetupShell string

var setupCmd = &cobra.Command{
	Use:   "setup <product> [version]",
	Short: "Resolve product and print the shell script that sets it up",
	Long: `Resolves <product> (optionally pinned to [version]) against the
configured stacks and prints a shell script that, once eval'd, applies every
resulting environment mutation. A caller shell function typically wraps this
as: reups() { eval "$(command reups setup "$@")"; }`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appCtxFrom(cmd.Context())

		dialect, ok := shell.ParseDialect(flagSetupShell)
		if !ok {
			return fmt.Errorf("unsupported --shell %q", flagSetupShell)
		}

		d, err := openDB(cmd.Context(), a)
		if err != nil {
			return err
		}

		var version ident.Version
		if len(args) == 2 {
			version = ident.Version(args[1])
		}
		req := resolve.NewRequest(args[0], version, a.cfg.TagPreference)

		res, err := resolve.Resolve(d, req)
		if err != nil {
			return err
		}
		logWarnings(a, res.Warnings)

		out, err := setup.Setup(res, environMap())
		if err != nil {
			return err
		}
		for _, w := range out.Warnings {
			a.logger.Warn(w)
		}

		script, err := shell.Render(dialect, out.Directives)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), script)
		return nil
	},
}

func init() {
	setupCmd.Flags().StringVar(&flagSetupShell, "shell", "bash", "target shell dialect (bash|zsh|fish|nu)")
}
