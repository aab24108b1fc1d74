package main

import (
	"github.com/spf13/cobra"

	"github.com/irfndi/quant-regime/internal/positioning"
)

func newPositioningCmd(format *string) *cobra.Command {
	var (
		weeks    int
		lookback int
		seed     uint64
	)

	cmd := &cobra.Command{
		Use:   "positioning",
		Short: "Simulate futures positioning and report crowded trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := positioning.NewService(weeks, seed).Report(cmd.Context(), lookback)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), *format, report)
		},
	}

	f := cmd.Flags()
	f.IntVar(&weeks, "weeks", positioning.DefaultWeeks, "Weeks of history per contract")
	f.IntVar(&lookback, "lookback", positioning.DefaultLookback, "Weeks in the z-score window")
	f.Uint64Var(&seed, "seed", 0, "Random seed (0 draws a random one)")
	return cmd
}
