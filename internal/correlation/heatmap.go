package correlation

import (
	"math"

	"github.com/irfndi/quant-regime/internal/models"
)

// Strength labels |r|: Strong > 0.7, Moderate > 0.4, Weak > 0.15.
func Strength(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs > 0.7:
		return "Strong"
	case abs > 0.4:
		return "Moderate"
	case abs > 0.15:
		return "Weak"
	default:
		return "Negligible"
	}
}

func signName(r float64) string {
	switch {
	case r > 0:
		return "Positive"
	case r < 0:
		return "Negative"
	default:
		return "Zero"
	}
}

// Heatmap flattens m into row-major cells annotated for rendering.
// Off-diagonal cells carry their delta versus the 1-year baseline when known.
func Heatmap(u *Universe, b Baselines, m models.CorrelationMatrix) []models.HeatmapCell {
	n := len(m.Symbols)
	cells := make([]models.HeatmapCell, 0, n*n)

	for i, rs := range m.Symbols {
		for j, cs := range m.Symbols {
			v := m.Values[i][j]
			cell := models.HeatmapCell{
				Row:        i,
				Col:        j,
				Value:      v,
				RowSymbol:  rs,
				ColSymbol:  cs,
				IsDiagonal: i == j,
			}
			if i != j {
				cell.Strength = Strength(v)
				cell.Direction = signName(v)
				if base, ok := b.OneYearFor(u.PairKey(rs, cs)); ok {
					delta := v - base
					cell.Versus1Y = &delta
				}
			}
			cells = append(cells, cell)
		}
	}
	return cells
}
