package correlation

import (
	"math"
	"sort"

	"github.com/irfndi/quant-regime/internal/models"
)

// KeyPairs are the pairs highlighted in the baseline comparison table.
var KeyPairs = []string{
	"SPY-TLT", "SPY-VIX", "SPY-GLD", "SPY-HYG", "SPY-EEM",
	"TLT-GLD", "TLT-VIX", "VIX-HYG", "DXY-EEM", "DXY-GLD",
	"GLD-USO", "HYG-EEM", "DXY-USO", "VIX-EEM", "USO-EEM",
}

// DeltaClass buckets an absolute delta: red above 0.30, yellow above 0.15.
func DeltaClass(absDelta float64) models.ColorTag {
	switch {
	case absDelta > 0.30:
		return models.ColorRed
	case absDelta > 0.15:
		return models.ColorYellow
	default:
		return models.ColorGreen
	}
}

// Compare builds the comparison table for pairs, sorted by |delta1Y|
// descending. Pairs with no 1-year baseline or not in m are dropped.
func Compare(u *Universe, b Baselines, m models.CorrelationMatrix, pairs []string) []models.ComparisonRow {
	rows := make([]models.ComparisonRow, 0, len(pairs))

	for _, pair := range pairs {
		key, ok := u.Canonical(pair)
		if !ok {
			continue
		}
		s1, s2, _ := SplitPair(key)
		current, ok := m.Get(s1, s2)
		if !ok {
			continue
		}
		base1, ok := b.OneYearFor(key)
		if !ok {
			continue
		}

		row := models.ComparisonRow{
			Pair:       key,
			PairName:   u.PairName(s1, s2),
			Current:    current,
			Baseline1Y: base1,
			Delta1Y:    current - base1,
			Delta5Y:    current - base1,
		}
		if base5, ok := b.FiveYearFor(key); ok {
			row.Baseline5Y = &base5
			row.Delta5Y = current - base5
		}
		row.DeltaClass = DeltaClass(math.Abs(row.Delta1Y))
		row.DeltaClass5Y = DeltaClass(math.Abs(row.Delta5Y))
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].Delta1Y) > math.Abs(rows[j].Delta1Y)
	})
	return rows
}
