package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the regimectl command tree. Every subcommand runs the
// engine in-process; nothing talks to a server.
func newRootCmd() *cobra.Command {
	var format string

	root := &cobra.Command{
		Use:   "regimectl",
		Short: "Offline runs of the correlation, regime and positioning engines",
		Long: `regimectl runs the quant-regime engines locally and prints the result.

Examples:
  regimectl simulate --seed 42 --window 90
  regimectl regime --snapshot snapshot.json --correlations
  regimectl positioning --lookback 26 --format json`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&format, "format", "yaml", "Output format (yaml|json)")

	root.AddCommand(
		newSimulateCmd(&format),
		newRegimeCmd(&format),
		newPositioningCmd(&format),
		newBaselinesCmd(&format),
	)
	return root
}
