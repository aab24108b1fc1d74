package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ColorTag is the traffic-light bucket color consumed by renderers.
type ColorTag string

const (
	ColorGreen  ColorTag = "green"
	ColorYellow ColorTag = "yellow"
	ColorOrange ColorTag = "orange"
	ColorRed    ColorTag = "red"
)

// RegimeLabel is the overall market regime.
type RegimeLabel string

const (
	RegimeRiskOn  RegimeLabel = "Risk-On"
	RegimeNeutral RegimeLabel = "Neutral"
	RegimeRiskOff RegimeLabel = "Risk-Off"
)

// IndicatorClassification is the bucket one regime indicator falls into.
// RawValue is nil when the input was unavailable.
type IndicatorClassification struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	DisplayValue string   `json:"value"`
	Label        string   `json:"label"`
	Color        ColorTag `json:"color"`
	Score        float64  `json:"score"`
	RawValue     *float64 `json:"raw_value"`
}

// Available reports whether the indicator had input data.
func (c IndicatorClassification) Available() bool {
	return c.RawValue != nil
}

// OverallRegime is the composite score and its label.
type OverallRegime struct {
	Score float64     `json:"score"`
	Label RegimeLabel `json:"label"`
	Color ColorTag    `json:"color"`
	Hex   string      `json:"hex"`
}

// CompositeRegimeState is one full regime evaluation.
type CompositeRegimeState struct {
	Indicators map[string]IndicatorClassification `json:"indicators"`
	Overall    OverallRegime                      `json:"overall"`
	Timestamp  time.Time                          `json:"timestamp"`
}

// RegimeChange is one entry of the regime change log.
type RegimeChange struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Indicator string    `json:"indicator"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// MarketMetrics are the live readings the regime scorer consumes. Any reading
// may be invalid (unavailable); unavailable readings classify as "No Data".
type MarketMetrics struct {
	VIX           decimal.NullDecimal `json:"vix"`
	TenYearYield  decimal.NullDecimal `json:"ten_year_yield"`
	FiveYearYield decimal.NullDecimal `json:"five_year_yield"`
	// Spread2s10s is a precomputed curve spread in basis points. It wins over
	// the 10Y-5Y difference when present.
	Spread2s10s    decimal.NullDecimal `json:"spread_2s10s"`
	SpreadInverted bool                `json:"spread_inverted"`
	DXYChange      decimal.NullDecimal `json:"dxy_change"`
	DXYLevel       decimal.NullDecimal `json:"dxy_level"`
	SPXChange      decimal.NullDecimal `json:"spx_change"`
	SPXLevel       decimal.NullDecimal `json:"spx_level"`
	// StockBondCorrelation is an explicit SPY-TLT correlation reading.
	StockBondCorrelation decimal.NullDecimal `json:"stock_bond_correlation"`
	CreditStress         decimal.NullDecimal `json:"credit_stress"`
	// EquityCloses is an optional daily close history, oldest first.
	EquityCloses []float64 `json:"equity_closes,omitempty"`
	AsOf         time.Time `json:"as_of"`
}
