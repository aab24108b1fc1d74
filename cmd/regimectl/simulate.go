package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/irfndi/quant-regime/internal/correlation"
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/quant"
)

type simulateOptions struct {
	days          int
	seed          uint64
	window        int
	mode          string
	perturbation  float64
	baselineFile  string
	stockBondFlip float64
	deviation     float64
	severe        float64
}

// simulation is the printed result of one simulate run.
type simulation struct {
	Window     int                      `json:"window"`
	Days       int                      `json:"days"`
	Headline   string                   `json:"headline"`
	Counts     models.AlertCounts       `json:"counts"`
	Alerts     []models.RegimeAlert     `json:"alerts"`
	Comparison []models.ComparisonRow   `json:"comparison"`
	Matrix     models.CorrelationMatrix `json:"matrix"`
}

func newSimulateCmd(format *string) *cobra.Command {
	def := correlation.DefaultSimulatorConfig()
	th := correlation.DefaultThresholds()
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate correlated returns and classify the resulting matrix",
		Long: `Simulate daily returns for the cross-asset universe, estimate the rolling
correlation matrix and report regime alerts against the baselines.

Examples:
  regimectl simulate
  regimectl simulate --seed 42 --window 30 --mode nearest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			monitor, err := buildMonitor(opts)
			if err != nil {
				return err
			}
			view, err := monitor.ChangeWindow(cmd.Context(), opts.window)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), *format, simulation{
				Window:     view.Window,
				Days:       view.Days,
				Headline:   correlation.Headline(view.Counts),
				Counts:     view.Counts,
				Alerts:     view.Alerts,
				Comparison: view.Comparison,
				Matrix:     view.Matrix,
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.days, "days", def.Days, "Trading days to simulate")
	f.Uint64Var(&opts.seed, "seed", 0, "Random seed (0 draws a random one)")
	f.IntVar(&opts.window, "window", 60, "Rolling window in days (30, 60 or 90)")
	f.StringVar(&opts.mode, "mode", string(def.Mode), "Factorization mode (floor|nearest)")
	f.Float64Var(&opts.perturbation, "perturbation", def.Perturbation, "Baseline noise amplitude")
	f.StringVar(&opts.baselineFile, "baselines", "", "YAML file overriding the built-in baselines")
	f.Float64Var(&opts.stockBondFlip, "stock-bond-flip", th.StockBondFlip, "SPY-TLT level above which stock-bond has flipped")
	f.Float64Var(&opts.deviation, "deviation", th.Deviation, "Minimum deviation from the 1Y baseline that raises an alert")
	f.Float64Var(&opts.severe, "severe", th.Severe, "Deviation at which an alert becomes high severity")
	return cmd
}

func buildMonitor(opts simulateOptions) (*correlation.Monitor, error) {
	universe := correlation.DefaultUniverse()
	baselines, err := correlation.LoadBaselines(opts.baselineFile, universe)
	if err != nil {
		return nil, err
	}
	mode, err := correlation.ParseFactorizationMode(opts.mode)
	if err != nil {
		return nil, err
	}

	th := correlation.DefaultThresholds()
	th.StockBondFlip = opts.stockBondFlip
	th.Deviation = opts.deviation
	th.Severe = opts.severe

	sim := correlation.NewSimulator(universe, baselines, correlation.SimulatorConfig{
		Days:         opts.days,
		Perturbation: opts.perturbation,
		Mode:         mode,
	}, correlation.WithGaussian(quant.NewGaussian(opts.seed)))

	cfg := correlation.DefaultMonitorConfig()
	cfg.Days = opts.days
	return correlation.NewMonitor(sim, correlation.NewClassifier(universe, baselines, th), cfg), nil
}

// simulatedAlerts runs one default simulation and reduces its alerts to the
// cached form the regime engine reads.
func simulatedAlerts(ctx context.Context, seed uint64) ([]models.AlertSummary, error) {
	def := correlation.DefaultSimulatorConfig()
	th := correlation.DefaultThresholds()
	monitor, err := buildMonitor(simulateOptions{
		days:          def.Days,
		seed:          seed,
		mode:          string(def.Mode),
		perturbation:  def.Perturbation,
		stockBondFlip: th.StockBondFlip,
		deviation:     th.Deviation,
		severe:        th.Severe,
	})
	if err != nil {
		return nil, err
	}
	return correlation.Summarize(monitor.Init(ctx).Alerts), nil
}
