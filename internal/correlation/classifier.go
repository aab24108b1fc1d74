package correlation

import (
	"fmt"
	"math"
	"sort"

	"github.com/irfndi/quant-regime/internal/models"
)

// Thresholds are the alert rule constants. They carry no statistical
// derivation and are exposed as configuration.
type Thresholds struct {
	StockBondFlip      float64 `mapstructure:"stock_bond_flip"`
	VIXEquityWeakening float64 `mapstructure:"vix_equity_weakening"`
	DollarEMDecoupling float64 `mapstructure:"dollar_em_decoupling"`
	Deviation          float64 `mapstructure:"deviation"`
	Severe             float64 `mapstructure:"severe"`
}

// DefaultThresholds returns the stock rule set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StockBondFlip:      0,
		VIXEquityWeakening: -0.5,
		DollarEMDecoupling: -0.3,
		Deviation:          0.30,
		Severe:             0.4,
	}
}

const (
	AlertTypeStockBondFlip  = "Stock-Bond Correlation Flip"
	AlertTypeVIXDecoupling  = "VIX-Equity Decoupling"
	AlertTypeDollarEM       = "Dollar-EM Decoupling"
	AlertTypeSignificantDev = "Significant Deviation"
)

// pairRule is a named single-pair check evaluated before the generic scan.
type pairRule struct {
	a, b        string
	kind        models.AlertKind
	title       string
	description string
	threshold   func(Thresholds) float64
}

var pairRules = []pairRule{
	{
		a: "SPY", b: "TLT",
		kind:  models.AlertSignFlip,
		title: AlertTypeStockBondFlip,
		description: "Stock-bond correlation has turned positive. Risk assets and safe havens are moving together, " +
			"which points to an inflation-driven regime or a liquidity squeeze.",
		threshold: func(t Thresholds) float64 { return t.StockBondFlip },
	},
	{
		a: "SPY", b: "VIX",
		kind:  models.AlertWeakening,
		title: AlertTypeVIXDecoupling,
		description: "VIX is less negatively correlated with equities than usual. Hedging demand may be abnormally low " +
			"or the vol surface distorted, so tail risk may be underpriced.",
		threshold: func(t Thresholds) float64 { return t.VIXEquityWeakening },
	},
	{
		a: "DXY", b: "EEM",
		kind:  models.AlertDecoupling,
		title: AlertTypeDollarEM,
		description: "EM equities are less sensitive to dollar strength than historical norms. Possible causes are " +
			"capital flow shifts, local central bank intervention or commodity-driven EM resilience.",
		threshold: func(t Thresholds) float64 { return t.DollarEMDecoupling },
	},
}

// Classifier compares a correlation matrix with the 1-year baselines.
type Classifier struct {
	universe   *Universe
	baselines  Baselines
	thresholds Thresholds
}

// NewClassifier creates a classifier.
func NewClassifier(u *Universe, b Baselines, t Thresholds) *Classifier {
	return &Classifier{universe: u, baselines: b, thresholds: t}
}

// Thresholds returns the rule constants in use.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Classify emits alerts for m, high severity first and then by descending
// deviation. Pairs without a baseline are skipped. The output depends only
// on m, so repeated calls return identical lists.
func (c *Classifier) Classify(m models.CorrelationMatrix) []models.RegimeAlert {
	alerts := make([]models.RegimeAlert, 0)
	ruled := make(map[string]bool, len(pairRules))

	for _, rule := range pairRules {
		key := c.universe.PairKey(rule.a, rule.b)
		ruled[key] = true

		current, ok := m.Get(rule.a, rule.b)
		if !ok || math.IsNaN(current) {
			continue
		}
		baseline, ok := c.baselines.OneYearFor(key)
		if !ok {
			continue
		}
		if current <= rule.threshold(c.thresholds) {
			continue
		}
		alerts = append(alerts, models.RegimeAlert{
			Pair:        key,
			PairName:    c.universe.PairName(rule.a, rule.b),
			Current:     current,
			Baseline:    baseline,
			Kind:        rule.kind,
			Type:        rule.title,
			Severity:    c.severity(math.Abs(current - baseline)),
			Direction:   models.DirectionUp,
			Description: rule.description,
		})
	}

	for i, a := range m.Symbols {
		for j := i + 1; j < len(m.Symbols); j++ {
			b := m.Symbols[j]
			key := c.universe.PairKey(a, b)
			if ruled[key] {
				continue
			}
			baseline, ok := c.baselines.OneYearFor(key)
			if !ok {
				continue
			}

			current := m.Values[i][j]
			if math.IsNaN(current) {
				continue
			}
			deviation := math.Abs(current - baseline)
			if deviation <= c.thresholds.Deviation {
				continue
			}

			direction, text := models.DirectionDown, "more negative"
			if current > baseline {
				direction, text = models.DirectionUp, "more positive"
			}
			first, second, _ := SplitPair(key)
			alerts = append(alerts, models.RegimeAlert{
				Pair:      key,
				PairName:  c.universe.PairName(first, second),
				Current:   current,
				Baseline:  baseline,
				Kind:      models.AlertDeviation,
				Type:      AlertTypeSignificantDev,
				Severity:  c.severity(deviation),
				Direction: direction,
				Description: fmt.Sprintf("Correlation is %s than 1Y average by %.2f. "+
					"This pair has moved outside normal bounds and warrants monitoring.", text, deviation),
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		hi, hj := alerts[i].Severity == models.SeverityHigh, alerts[j].Severity == models.SeverityHigh
		if hi != hj {
			return hi
		}
		return alerts[i].Deviation() > alerts[j].Deviation()
	})

	return alerts
}

func (c *Classifier) severity(deviation float64) models.Severity {
	if deviation > c.thresholds.Severe {
		return models.SeverityHigh
	}
	return models.SeverityModerate
}

// Summarize reduces alerts to the shape cached for other dashboard widgets.
func Summarize(alerts []models.RegimeAlert) []models.AlertSummary {
	out := make([]models.AlertSummary, len(alerts))
	for i, a := range alerts {
		out[i] = models.AlertSummary{
			Pair:     a.Pair,
			Type:     a.Type,
			Severity: a.Severity,
			Message:  a.Type + ": " + a.PairName,
		}
	}
	return out
}

// Count tallies alerts by severity.
func Count(alerts []models.RegimeAlert) models.AlertCounts {
	counts := models.AlertCounts{Total: len(alerts)}
	for _, a := range alerts {
		if a.Severity == models.SeverityHigh {
			counts.High++
		} else {
			counts.Moderate++
		}
	}
	return counts
}

// Headline is the alert panel header line.
func Headline(c models.AlertCounts) string {
	switch c.Total {
	case 0:
		return "All Correlations Normal"
	case 1:
		return fmt.Sprintf("1 alert (%d severe, %d moderate)", c.High, c.Moderate)
	default:
		return fmt.Sprintf("%d alerts (%d severe, %d moderate)", c.Total, c.High, c.Moderate)
	}
}
