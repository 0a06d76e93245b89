package main

import (
	"github.com/spf13/cobra"

	"github.com/natelust/reups/internal/rconfig"
)

var (
	flagConfigPath    string
	flagStacks        []string
	flagTagPreference []string
	flagUserTagDir    string
	flagCacheDir      string
	flagLogLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "reups",
	Short: "Resolve and apply EUPS-style product environments",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildAppCtx(flagConfigPath, configOverrides{
			stacks:        flagStacks,
			tagPreference: flagTagPreference,
			userTagDir:    flagUserTagDir,
			cacheDir:      flagCacheDir,
			logLevel:      flagLogLevel,
		})
		if err != nil {
			return err
		}
		cmd.SetContext(withAppCtx(cmd.Context(), a))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", rconfig.DefaultPath(), "path to config file")
	rootCmd.PersistentFlags().StringSliceVar(&flagStacks, "stacks", nil, "stack roots, overrides config (comma-separated)")
	rootCmd.PersistentFlags().StringSliceVar(&flagTagPreference, "tags", nil, "tag preference order, overrides config (comma-separated)")
	rootCmd.PersistentFlags().StringVar(&flagUserTagDir, "user-tag-dir", "", "user tag override directory, overrides config")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "cache directory, overrides config")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error, overrides config")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(unsetupCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(exportCmd)
}
