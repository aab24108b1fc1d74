// Package positioning simulates weekly speculative futures positioning and
// flags contracts whose net position sits at a statistical extreme.
package positioning

import (
	"math"
	"slices"
	"time"

	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/quant"
)

const (
	DefaultWeeks    = 104
	DefaultLookback = 52
	// ExtremeZ is the |z| above which a net position is extreme.
	ExtremeZ = 2.0

	ExtremeLong  = "LONG"
	ExtremeShort = "SHORT"

	shockMultiplier = 0.05
	driftMultiplier = 0.02
	positionFloor   = 1000
	oiNoise         = 0.03
	oiCoverage      = 1.5
)

// Params drives the mean-reverting simulation of one contract.
type Params struct {
	BaseLong   float64
	BaseShort  float64
	BaseOI     float64
	Drift      float64
	Vol        float64
	MeanRevert float64
}

// Spec is a tracked contract and its simulation parameters.
type Spec struct {
	models.Contract
	Params Params
}

// Contracts lists the tracked futures in display order.
var Contracts = []Spec{
	{models.Contract{Symbol: "ES", Name: "E-Mini S&P 500", Category: models.CategoryEquity}, Params{280000, 210000, 2800000, 0.02, 0.08, 0.05}},
	{models.Contract{Symbol: "TY", Name: "10-Year T-Note", Category: models.CategoryFixedIncome}, Params{420000, 550000, 4200000, -0.01, 0.06, 0.04}},
	{models.Contract{Symbol: "GC", Name: "Gold", Category: models.CategoryCommodity}, Params{310000, 85000, 520000, 0.015, 0.10, 0.03}},
	{models.Contract{Symbol: "CL", Name: "Crude Oil WTI", Category: models.CategoryCommodity}, Params{520000, 180000, 1900000, -0.005, 0.12, 0.04}},
	{models.Contract{Symbol: "NG", Name: "Natural Gas", Category: models.CategoryEnergy}, Params{120000, 160000, 1200000, -0.02, 0.15, 0.06}},
	{models.Contract{Symbol: "EC", Name: "Euro FX", Category: models.CategoryFX}, Params{195000, 140000, 680000, 0.01, 0.09, 0.05}},
	{models.Contract{Symbol: "JY", Name: "Japanese Yen", Category: models.CategoryFX}, Params{55000, 150000, 260000, -0.015, 0.11, 0.04}},
	{models.Contract{Symbol: "DX", Name: "US Dollar Index", Category: models.CategoryFX}, Params{32000, 12000, 58000, 0.008, 0.10, 0.05}},
}

// Simulate produces weeks of weekly records for spec, oldest first, with the
// last record dated one week before now's day.
func Simulate(g *quant.Gaussian, spec Spec, weeks int, now time.Time) []models.PositioningRecord {
	p := spec.Params
	long := quant.MeanReversion{
		Target: p.BaseLong, Speed: p.MeanRevert, Drift: p.Drift * driftMultiplier,
		Vol: p.Vol, ShockMul: shockMultiplier, Floor: positionFloor,
	}
	short := quant.MeanReversion{
		Target: p.BaseShort, Speed: p.MeanRevert, Drift: -p.Drift * driftMultiplier,
		Vol: p.Vol, ShockMul: shockMultiplier, Floor: positionFloor,
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, -7*weeks)

	curLong, curShort := p.BaseLong, p.BaseShort
	records := make([]models.PositioningRecord, 0, weeks)
	for i := 0; i < weeks; i++ {
		curLong = math.Round(long.Step(g, curLong))
		curShort = math.Round(short.Step(g, curShort))

		oi := math.Max((curLong+curShort)*oiCoverage, math.Round(p.BaseOI+p.BaseOI*g.Next()*oiNoise))
		net := curLong - curShort
		records = append(records, models.PositioningRecord{
			Date:         start.AddDate(0, 0, 7*i),
			Long:         curLong,
			Short:        curShort,
			OpenInterest: oi,
			Net:          net,
			NetPctOI:     net / oi * 100,
		})
	}
	return records
}

// Compute summarizes the last lookback records. ok is false when records is
// empty.
func Compute(c models.Contract, records []models.PositioningRecord, lookback int) (models.PositioningMetrics, bool) {
	if len(records) == 0 {
		return models.PositioningMetrics{}, false
	}
	window := records
	if lookback > 0 && lookback < len(records) {
		window = records[len(records)-lookback:]
	}

	current := window[len(window)-1]
	previous := current
	if len(window) >= 2 {
		previous = window[len(window)-2]
	}

	nets := make([]float64, len(window))
	pcts := make([]float64, len(window))
	for i, r := range window {
		nets[i] = r.Net
		pcts[i] = r.NetPctOI
	}
	netZ := quant.ZScore(nets, current.Net)
	pctZ := quant.ZScore(pcts, current.NetPctOI)

	m := models.PositioningMetrics{
		Symbol:       c.Symbol,
		Name:         c.Name,
		Category:     c.Category,
		CurrentNet:   current.Net,
		CurrentLong:  current.Long,
		CurrentShort: current.Short,
		OpenInterest: current.OpenInterest,
		NetPctOI:     current.NetPctOI,
		ZScore:       netZ.Z,
		PctZScore:    pctZ.Z,
		Mean:         netZ.Mean,
		StdDev:       netZ.StdDev,
		WeeklyChange: current.Net - previous.Net,
		ReportDate:   current.Date,
	}
	if previous.Net != 0 {
		m.WeeklyChangePct = (current.Net - previous.Net) / math.Abs(previous.Net) * 100
	}
	if math.Abs(m.ZScore) > ExtremeZ {
		m.IsExtreme = true
		m.ExtremeType = ExtremeShort
		if m.ZScore > 0 {
			m.ExtremeType = ExtremeLong
		}
	}
	return m, true
}

// Extremes returns the extreme contracts, largest |z| first.
func Extremes(metrics []models.PositioningMetrics) []models.PositioningExtreme {
	var out []models.PositioningExtreme
	for _, m := range metrics {
		if m.IsExtreme {
			out = append(out, models.PositioningExtreme{Symbol: m.Symbol, ZScore: m.ZScore, Type: m.ExtremeType, Net: m.CurrentNet})
		}
	}
	slices.SortStableFunc(out, func(a, b models.PositioningExtreme) int {
		da, db := math.Abs(a.ZScore), math.Abs(b.ZScore)
		switch {
		case da > db:
			return -1
		case da < db:
			return 1
		}
		return 0
	})
	return out
}
