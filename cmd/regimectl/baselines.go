package main

import (
	"github.com/spf13/cobra"

	"github.com/irfndi/quant-regime/internal/correlation"
)

func newBaselinesCmd(format *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "baselines",
		Short: "Print the 1Y and 5Y baseline tables, merged with an optional override file",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := correlation.LoadBaselines(file, correlation.DefaultUniverse())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), *format, map[string]map[string]float64{
				"one_year":  b.OneYear,
				"five_year": b.FiveYear,
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML baseline override file")
	return cmd
}
