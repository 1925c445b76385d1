package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

// newRootCmd creates the root apiary-voice command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "apiary-voice",
		Short:         "Voice-driven beehive inspection",
		Long:          "apiary-voice walks a beekeeper through a spoken hive inspection\nand stores the answers locally or in the shared database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", defaultConfigPath, "path to config file")

	cmd.AddCommand(
		newInterviewCmd(),
		newSyncCmd(),
		newPendingCmd(),
		newRecordsCmd(),
		newQuestionsCmd(),
		newApiariesCmd(),
	)
	return cmd
}
