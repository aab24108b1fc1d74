package correlation

import (
	"github.com/irfndi/quant-regime/internal/models"
	"github.com/irfndi/quant-regime/internal/quant"
)

// RollingMatrix estimates the Pearson correlation matrix of symbols over the
// last min(window, len) observations. The upper triangle is computed and
// mirrored; the diagonal is exactly 1. A symbol missing from returns
// correlates 0 with everything else.
func RollingMatrix(symbols []string, returns models.ReturnSeries, window int) models.CorrelationMatrix {
	n := len(symbols)
	values := quant.NewSquare(n)

	tails := make([][]float64, n)
	for i, sym := range symbols {
		tails[i] = quant.Tail(returns.Returns[sym], window)
	}

	for i := 0; i < n; i++ {
		values[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			r := quant.Pearson(tails[i], tails[j])
			values[i][j] = r
			values[j][i] = r
		}
	}

	return models.CorrelationMatrix{
		Symbols: append([]string(nil), symbols...),
		Window:  window,
		Values:  values,
	}
}
