package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natelust/reups/internal/setup"
	"github.com/natelust/reups/internal/setup/shell"
)

var flagUnsetupShell string

var unsetupCmd = &cobra.Command{
	Use:   "unsetup <product>",
	Short: "Print the shell script that undoes a prior setup of product",
	Args:  cobra.ExactArgs(1),
	// unsetup only decodes the reserved REUPS_SETUP_<PRODUCT> record from the
	// caller's environment; it needs neither the stack list nor the cache.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		dialect, ok := shell.ParseDialect(flagUnsetupShell)
		if !ok {
			return fmt.Errorf("unsupported --shell %q", flagUnsetupShell)
		}

		out, err := setup.Unsetup(args[0], environMap())
		if err != nil {
			return err
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
	unsetupCmd.Flags().StringVar(&flagUnsetupShell, "shell", "bash", "target shell dialect (bash|zsh|fish|nu)")
}
