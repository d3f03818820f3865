package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"strike-warden/internal/badwords"
	"strike-warden/internal/utils"
)

var (
	checkDevelopment    bool
	checkShift          int
	checkStrikesPerMute int
)

var checkCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Scan text against the built-in dictionary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkStrikesPerMute < 1 {
			return fmt.Errorf("strikes-per-mute must be at least 1")
		}
		matcher, err := badwords.Compile(badwords.Default(checkDevelopment), 1/float64(checkStrikesPerMute+1))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		result, ok := matcher.Scan(strings.Join(args, " "), checkShift)
		if !ok {
			fmt.Fprintln(out, "clean")
			return nil
		}
		fmt.Fprintf(out, "censored: %s\n", result.Censored)
		fmt.Fprintf(out, "strikes:  %g\n", result.Strikes)
		for tier, words := range result.Words {
			if len(words) == 0 {
				continue
			}
			fmt.Fprintf(out, "tier %d:   %s\n", tier, utils.JoinWithAnd(words))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkDevelopment, "development", false, "include the development-only test words")
	checkCmd.Flags().IntVar(&checkShift, "shift", 0, "tiers subtracted from each match's weight")
	checkCmd.Flags().IntVar(&checkStrikesPerMute, "strikes-per-mute", 3, "strikes per mute, sets the partial strike floor")
}
