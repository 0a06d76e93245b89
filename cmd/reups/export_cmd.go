package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natelust/reups/internal/stack"
)

var flagExportVerify bool

var exportCmd = &cobra.Command{
	Use:   "export <stack-root> <snapshot-path>",
	Short: "Scan stack-root and write its JSON snapshot to snapshot-path",
	Long: `Demonstrates the snapshot round trip the companion exporter tool
(out of scope for this repository, spec §6) is expected to produce: scans
stack-root directly and writes the same JSON snapshot format
internal/stack.LoadSnapshot consumes as an alternative to a directory walk.`,
	Args: cobra.ExactArgs(2),
	// export operates on an explicit stack-root argument, not the configured
	// stack list, so it does not need a loaded config or an open cache.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		root, path := args[0], args[1]

		enum, err := stack.Scan(root)
		if err != nil {
			return err
		}
		if err := stack.WriteSnapshot(enum, path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote snapshot for %s (%d versions, %d tags) to %s\n",
			root, len(enum.Versions), len(enum.Tags), path)

		if !flagExportVerify {
			return nil
		}

		reloaded, err := stack.LoadSnapshot(path)
		if err != nil {
			return fmt.Errorf("export: verify round trip: %w", err)
		}
		if len(reloaded.Versions) != len(enum.Versions) || len(reloaded.Tags) != len(enum.Tags) {
			return fmt.Errorf("export: round-trip mismatch: scanned %d versions/%d tags, reloaded %d/%d",
				len(enum.Versions), len(enum.Tags), len(reloaded.Versions), len(reloaded.Tags))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "round trip verified")
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&flagExportVerify, "verify", false, "reload the written snapshot and confirm it round trips")
}
