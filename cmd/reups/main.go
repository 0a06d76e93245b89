// reups is a fast, drop-in-compatible front end for an EUPS-style product
// stack: it resolves a product's dependency graph across one or more stacks
// and emits the shell directives needed to set up (or undo) its environment.
//
// Usage:
//
//	reups setup <product> [version] [flags]
//	reups unsetup <product>
//	reups list <product>
//	reups explain <product> [version]
//	reups export <stack-root> <snapshot-path>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd.SetContext(ctx)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reups: %v\n", err)
		os.Exit(1)
	}
}
