// Package correlation simulates cross-asset returns, estimates rolling
// correlation matrices and classifies them against historical baselines.
package correlation

import (
	"fmt"
	"math"
	"strings"

	"github.com/irfndi/quant-regime/internal/models"
)

// TradingDays converts annualized volatility to daily.
const TradingDays = 252

// Universe is the ordered instrument set the monitor works on. Pair keys,
// matrix rows and simulation order all follow the instrument order.
type Universe struct {
	instruments []models.Instrument
	index       map[string]int
	annualVols  map[string]float64
}

// NewUniverse validates and indexes an instrument list. Every instrument
// needs a positive annualized volatility.
func NewUniverse(instruments []models.Instrument, annualVols map[string]float64) (*Universe, error) {
	if len(instruments) < 2 {
		return nil, fmt.Errorf("universe needs at least 2 instruments, got %d", len(instruments))
	}

	u := &Universe{
		instruments: make([]models.Instrument, len(instruments)),
		index:       make(map[string]int, len(instruments)),
		annualVols:  make(map[string]float64, len(instruments)),
	}
	copy(u.instruments, instruments)

	for i, inst := range instruments {
		if inst.Symbol == "" || strings.Contains(inst.Symbol, "-") {
			return nil, fmt.Errorf("invalid instrument symbol %q", inst.Symbol)
		}
		if _, dup := u.index[inst.Symbol]; dup {
			return nil, fmt.Errorf("duplicate instrument %s", inst.Symbol)
		}
		vol, ok := annualVols[inst.Symbol]
		if !ok || vol <= 0 {
			return nil, fmt.Errorf("instrument %s has no positive annual volatility", inst.Symbol)
		}
		u.index[inst.Symbol] = i
		u.annualVols[inst.Symbol] = vol
	}

	return u, nil
}

// DefaultUniverse returns the eight cross-asset instruments the dashboard monitors.
func DefaultUniverse() *Universe {
	u, err := NewUniverse([]models.Instrument{
		{Symbol: "SPY", DisplayName: "S&P 500", Category: models.CategoryEquity},
		{Symbol: "TLT", DisplayName: "20Y Treasury", Category: models.CategoryFixedIncome},
		{Symbol: "GLD", DisplayName: "Gold", Category: models.CategoryCommodity},
		{Symbol: "DXY", DisplayName: "Dollar Index", Category: models.CategoryFX},
		{Symbol: "VIX", DisplayName: "VIX", Category: models.CategoryVolatility},
		{Symbol: "HYG", DisplayName: "High Yield", Category: models.CategoryCredit},
		{Symbol: "USO", DisplayName: "Oil", Category: models.CategoryCommodity},
		{Symbol: "EEM", DisplayName: "EM Equities", Category: models.CategoryEquity},
	}, map[string]float64{
		"SPY": 0.18, "TLT": 0.15, "GLD": 0.16, "DXY": 0.08,
		"VIX": 0.80, "HYG": 0.08, "USO": 0.35, "EEM": 0.22,
	})
	if err != nil {
		panic(err)
	}
	return u
}

// Len is the number of instruments.
func (u *Universe) Len() int { return len(u.instruments) }

// Instruments returns a copy of the instrument list.
func (u *Universe) Instruments() []models.Instrument {
	out := make([]models.Instrument, len(u.instruments))
	copy(out, u.instruments)
	return out
}

// Symbols returns the symbols in universe order.
func (u *Universe) Symbols() []string {
	out := make([]string, len(u.instruments))
	for i, inst := range u.instruments {
		out[i] = inst.Symbol
	}
	return out
}

// Index returns the position of symbol in the universe.
func (u *Universe) Index(symbol string) (int, bool) {
	i, ok := u.index[symbol]
	return i, ok
}

// Instrument looks up reference data for symbol.
func (u *Universe) Instrument(symbol string) (models.Instrument, bool) {
	i, ok := u.index[symbol]
	if !ok {
		return models.Instrument{}, false
	}
	return u.instruments[i], true
}

// DailyVol is the instrument's annualized volatility scaled to one trading day.
func (u *Universe) DailyVol(symbol string) float64 {
	return u.annualVols[symbol] / math.Sqrt(TradingDays)
}

// PairKey returns the canonical "A-B" key for two symbols, ordered by
// universe position. Symbols outside the universe sort after known ones and
// alphabetically among themselves.
func (u *Universe) PairKey(a, b string) string {
	ia, okA := u.index[a]
	ib, okB := u.index[b]
	switch {
	case okA && okB:
		if ia <= ib {
			return a + "-" + b
		}
		return b + "-" + a
	case okA:
		return a + "-" + b
	case okB:
		return b + "-" + a
	case a <= b:
		return a + "-" + b
	default:
		return b + "-" + a
	}
}

// Canonical rewrites any "A-B" key into its canonical order.
func (u *Universe) Canonical(key string) (string, bool) {
	a, b, ok := SplitPair(key)
	if !ok {
		return "", false
	}
	return u.PairKey(a, b), true
}

// PairName renders "S&P 500 / 20Y Treasury" style labels, falling back to
// the raw symbols.
func (u *Universe) PairName(a, b string) string {
	name := func(s string) string {
		if inst, ok := u.Instrument(s); ok {
			return inst.DisplayName
		}
		return s
	}
	return name(a) + " / " + name(b)
}

// SplitPair splits "A-B" into its symbols.
func SplitPair(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, "-")
	if !ok || a == "" || b == "" || strings.Contains(b, "-") {
		return "", "", false
	}
	return a, b, true
}
