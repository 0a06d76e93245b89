package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <product>",
	Short: "List every installed version of product across the configured stacks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := appCtxFrom(cmd.Context())

		d, err := openDB(cmd.Context(), a)
		if err != nil {
			return err
		}

		versions := d.ListVersions(args[0])
		if len(versions) == 0 {
			return fmt.Errorf("%s: no installed versions found in any configured stack", args[0])
		}

		best, _ := d.BestVersion(args[0], a.cfg.TagPreference)
		for _, v := range versions {
			marker := " "
			if v.Version == best.Version {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-20s %s\n", marker, v.Version, v.InstallDir)
		}
		return nil
	},
}
