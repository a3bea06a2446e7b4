package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var userFlag string
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &userFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "steelloop",
		Short:         "Steel Loop content pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (defaults to $STEELLOOP_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Acting user id (defaults to $STEELLOOP_USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print results as JSON")

	rootCmd.AddCommand(newWorkerCommand(ctx))
	rootCmd.AddCommand(newProjectCommand(ctx))
	rootCmd.AddCommand(newAccountCommand(ctx))
	rootCmd.AddCommand(newSparksCommand(ctx))
	rootCmd.AddCommand(newDraftsCommand(ctx))
	rootCmd.AddCommand(newPipelineCommand(ctx))
	rootCmd.AddCommand(newVaultCommand(ctx))
	rootCmd.AddCommand(newScoreCommand(ctx))

	return rootCmd
}
