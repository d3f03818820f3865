package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strike-warden/internal/utils"
)

var strikeIDCmd = &cobra.Command{
	Use:   "strike-id",
	Short: "Convert between strike IDs and log message IDs",
}

var strikeIDEncodeCmd = &cobra.Command{
	Use:   "encode <message-id>",
	Short: "Encode a strike log message ID as a strike ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := utils.ConvertBase(args[0], 10, utils.MaxBase)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var strikeIDDecodeCmd = &cobra.Command{
	Use:   "decode <strike-id>",
	Short: "Decode a strike ID back to its log message ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := utils.ConvertBase(args[0], utils.MaxBase, 10)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	strikeIDCmd.AddCommand(strikeIDEncodeCmd, strikeIDDecodeCmd)
}
