// Package regime reduces six market indicators to a composite Risk-On /
// Neutral / Risk-Off regime and keeps a log of bucket transitions between
// evaluations.
package regime

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/irfndi/quant-regime/internal/models"
)

// Indicator keys, in evaluation order.
const (
	KeyVIX          = "vix"
	KeyYieldCurve   = "yieldCurve"
	KeyStockBond    = "stockBondCorr"
	KeyCreditStress = "creditStress"
	KeyDollarTrend  = "dollarTrend"
	KeyEquityTrend  = "equityTrend"
)

// NoDataLabel is the label of an indicator without input.
const NoDataLabel = "No Data"

const noDataDisplay = "--"

// Bound selects how a threshold table is matched.
type Bound int

const (
	// UpperBound buckets match when value < Limit.
	UpperBound Bound = iota
	// LowerBound buckets match when value >= Limit.
	LowerBound
)

// Bucket is one row of an indicator's threshold table. The last bucket of a
// table is the catch-all and its Limit is ignored.
type Bucket struct {
	Limit float64
	Label string
	Color models.ColorTag
	Score float64
}

// Indicator describes one regime input: its weight in the composite, its
// threshold table and how raw values are displayed.
type Indicator struct {
	Key     string
	Name    string
	Weight  float64
	Bound   Bound
	Buckets []Bucket
	Format  func(float64) string
}

// Display formatters round half away from zero on the decimal value, so a
// reading never prints as negative zero.
func fixed2(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

func basisPoints(v float64) string { return decimal.NewFromFloat(v).StringFixed(0) + "bp" }

func signedPct(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.Sign() >= 0 {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// Indicators is the fixed indicator set. Weights sum to 1.
var Indicators = []Indicator{
	{
		Key: KeyVIX, Name: "VIX Regime", Weight: 0.25, Bound: UpperBound, Format: fixed2,
		Buckets: []Bucket{
			{15, "Low", models.ColorGreen, -1},
			{20, "Normal", models.ColorYellow, -0.3},
			{30, "Elevated", models.ColorOrange, 0.5},
			{math.Inf(1), "Crisis", models.ColorRed, 1},
		},
	},
	{
		Key: KeyYieldCurve, Name: "Yield Curve", Weight: 0.20, Bound: LowerBound, Format: basisPoints,
		Buckets: []Bucket{
			{50, "Steep", models.ColorGreen, -1},
			{0, "Flat", models.ColorYellow, 0.2},
			{math.Inf(-1), "Inverted", models.ColorRed, 1},
		},
	},
	{
		Key: KeyStockBond, Name: "Stock-Bond Corr", Weight: 0.15, Bound: UpperBound, Format: fixed2,
		Buckets: []Bucket{
			{-0.2, "Normal", models.ColorGreen, -1},
			{0.1, "Transitioning", models.ColorYellow, 0.2},
			{math.Inf(1), "Flipped", models.ColorRed, 1},
		},
	},
	{
		Key: KeyCreditStress, Name: "Credit Stress", Weight: 0.15, Bound: UpperBound, Format: fixed2,
		Buckets: []Bucket{
			{15, "Low", models.ColorGreen, -1},
			{20, "Moderate", models.ColorYellow, -0.2},
			{25, "Elevated", models.ColorOrange, 0.5},
			{math.Inf(1), "High", models.ColorRed, 1},
		},
	},
	{
		Key: KeyDollarTrend, Name: "Dollar Trend", Weight: 0.10, Bound: UpperBound, Format: signedPct,
		Buckets: []Bucket{
			{-0.3, "Weakening", models.ColorGreen, -0.5},
			{0.3, "Stable", models.ColorYellow, 0},
			{math.Inf(1), "Strengthening", models.ColorOrange, 0.7},
		},
	},
	{
		Key: KeyEquityTrend, Name: "Equity Trend", Weight: 0.15, Bound: LowerBound, Format: signedPct,
		Buckets: []Bucket{
			{0.5, "Bullish", models.ColorGreen, -1},
			{-0.5, "Neutral", models.ColorYellow, 0},
			{math.Inf(-1), "Bearish", models.ColorRed, 1},
		},
	},
}

// Lookup returns the indicator with the given key.
func Lookup(key string) (Indicator, bool) {
	for _, ind := range Indicators {
		if ind.Key == key {
			return ind, true
		}
	}
	return Indicator{}, false
}

// Classify buckets a raw value. A nil or NaN value yields the neutral
// "No Data" classification with score 0.
func (ind Indicator) Classify(raw *float64) models.IndicatorClassification {
	out := models.IndicatorClassification{Key: ind.Key, Name: ind.Name}
	if raw == nil || math.IsNaN(*raw) {
		out.DisplayValue = noDataDisplay
		out.Label = NoDataLabel
		out.Color = models.ColorYellow
		return out
	}

	v := *raw
	b := ind.bucket(v)
	out.DisplayValue = ind.Format(v)
	out.Label = b.Label
	out.Color = b.Color
	out.Score = b.Score
	out.RawValue = &v
	return out
}

func (ind Indicator) bucket(v float64) Bucket {
	last := len(ind.Buckets) - 1
	for _, b := range ind.Buckets[:last] {
		switch ind.Bound {
		case UpperBound:
			if v < b.Limit {
				return b
			}
		case LowerBound:
			if v >= b.Limit {
				return b
			}
		}
	}
	return ind.Buckets[last]
}

// Classify buckets raw values for every indicator. Keys missing from raw
// are classified as "No Data".
func Classify(raw map[string]*float64) map[string]models.IndicatorClassification {
	out := make(map[string]models.IndicatorClassification, len(Indicators))
	for _, ind := range Indicators {
		out[ind.Key] = ind.Classify(raw[ind.Key])
	}
	return out
}
