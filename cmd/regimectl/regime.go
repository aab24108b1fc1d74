package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/irfndi/quant-regime/internal/marketdata"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/regime"
)

func newRegimeCmd(format *string) *cobra.Command {
	var (
		snapshotPath string
		correlations bool
		seed         uint64
	)

	cmd := &cobra.Command{
		Use:   "regime",
		Short: "Score the composite market regime from a snapshot file",
		Long: `Classify the six regime indicators from a market snapshot (the same JSON
document accepted by PUT /api/v1/market/snapshot) and print the composite.

With --correlations a correlation simulation runs first and its alerts feed
the stock-bond indicator when the snapshot carries no SPY-TLT reading.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(snapshotPath)
			if err != nil {
				return err
			}

			opts := []regime.Option{regime.WithClock(func() time.Time { return time.Now().UTC() })}
			if correlations {
				summaries, err := simulatedAlerts(cmd.Context(), seed)
				if err != nil {
					return err
				}
				opts = append(opts, regime.WithAlertLoader(staticAlerts(summaries)))
			}

			svc := regime.NewService(marketdata.NewStaticSource(marketdata.FromSnapshot(snap)), opts...)
			return render(cmd.OutOrStdout(), *format, svc.Recompute(cmd.Context()).State)
		},
	}

	f := cmd.Flags()
	f.StringVar(&snapshotPath, "snapshot", "", "Path to a market snapshot JSON file")
	f.BoolVar(&correlations, "correlations", false, "Feed simulated correlation alerts into the stock-bond indicator")
	f.Uint64Var(&seed, "seed", 0, "Random seed for --correlations (0 draws a random one)")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

// staticAlerts serves one simulation's alert summary as the cached one.
type staticAlerts []models.AlertSummary

func (a staticAlerts) LoadAlerts(ctx context.Context) ([]models.AlertSummary, bool, error) {
	return a, true, nil
}

func readSnapshot(path string) (models.MarketSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap models.MarketSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.MarketSnapshot{}, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if err := marketdata.Validate(snap); err != nil {
		return models.MarketSnapshot{}, err
	}
	return snap, nil
}
