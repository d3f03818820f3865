package main

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:          "warden",
	Short:        "Discord moderation bot with a graduated strike system",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func init() {
	RootCmd.AddCommand(
		runCmd,
		checkCmd,
		strikeIDCmd,
		dictionaryCmd,
	)
}
