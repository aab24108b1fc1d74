package regime

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"

	"github.com/irfndi/quant-regime/internal/models"
)

const (
	stockBondPair = "SPY-TLT"

	// Proxy stock-bond readings used when only the alert cache is known.
	flippedProxy = 0.15
	normalProxy  = -0.35

	fastTrendPeriod = 50
	slowTrendPeriod = 200
)

// AlertSnapshot is the cached correlation alert list. Found is false when
// no alert cache exists, which differs from an empty list.
type AlertSnapshot struct {
	Alerts []models.AlertSummary
	Found  bool
}

// Inputs derives the raw value of every indicator from market metrics and
// the cached correlation alerts. Unavailable inputs are nil.
func Inputs(m models.MarketMetrics, alerts AlertSnapshot) map[string]*float64 {
	return map[string]*float64{
		KeyVIX:          floatOf(m.VIX),
		KeyYieldCurve:   yieldCurve(m),
		KeyStockBond:    stockBond(m, alerts),
		KeyCreditStress: creditStress(m),
		KeyDollarTrend:  floatOf(m.DXYChange),
		KeyEquityTrend:  equityTrend(m),
	}
}

func floatOf(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func ptr(f float64) *float64 { return &f }

// yieldCurve is the curve spread in basis points. A precomputed spread wins
// over the 10Y-5Y difference; the inverted flag forces it negative.
func yieldCurve(m models.MarketMetrics) *float64 {
	if m.Spread2s10s.Valid {
		spread := m.Spread2s10s.Decimal
		if m.SpreadInverted {
			spread = spread.Abs().Neg()
		}
		return ptr(spread.InexactFloat64())
	}
	if m.TenYearYield.Valid && m.FiveYearYield.Valid {
		bp := m.TenYearYield.Decimal.Sub(m.FiveYearYield.Decimal).Mul(decimal.NewFromInt(100))
		return ptr(bp.InexactFloat64())
	}
	return nil
}

func stockBond(m models.MarketMetrics, alerts AlertSnapshot) *float64 {
	if v := floatOf(m.StockBondCorrelation); v != nil {
		return v
	}
	if !alerts.Found {
		return nil
	}
	for _, a := range alerts.Alerts {
		if a.Pair == stockBondPair {
			return ptr(flippedProxy)
		}
	}
	return ptr(normalProxy)
}

// creditStress falls back to VIX as a proxy.
func creditStress(m models.MarketMetrics) *float64 {
	if v := floatOf(m.CreditStress); v != nil {
		return v
	}
	return floatOf(m.VIX)
}

// equityTrend is the 50 vs 200 day SMA spread in percent when enough closes
// are known, otherwise the daily S&P 500 change.
func equityTrend(m models.MarketMetrics) *float64 {
	if v, ok := smaSpread(m.EquityCloses); ok {
		return ptr(v)
	}
	return floatOf(m.SPXChange)
}

func smaSpread(closes []float64) (float64, bool) {
	if len(closes) < slowTrendPeriod {
		return 0, false
	}
	fast := lastSMA(closes, fastTrendPeriod)
	slow := lastSMA(closes, slowTrendPeriod)
	if slow == 0 {
		return 0, false
	}
	return (fast - slow) / slow * 100, true
}

func lastSMA(values []float64, period int) float64 {
	sma := trend.NewSmaWithPeriod[float64](period)
	out := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
	if len(out) == 0 {
		return 0
	}
	return out[len(out)-1]
}
