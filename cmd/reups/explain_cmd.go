package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natelust/reups/internal/explain"
	"github.com/natelust/reups/internal/ident"
	"github.com/natelust/reups/internal/resolve"
	"github.com/natelust/reups/internal/setup"
)

var explainCmd = &cobra.Command{
	Use:   "explain <product> [version]",
	Short: "Show the resolution and directives setup would apply, without applying them",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appCtxFrom(cmd.Context())

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

		out, err := setup.Setup(res, environMap())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), explain.Resolution(res))
		fmt.Fprintln(cmd.OutOrStdout(), explain.Directives(out))
		return nil
	},
}
