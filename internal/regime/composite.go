package regime

import (
	"time"

	"github.com/irfndi/quant-regime/internal/models"
)

const (
	riskOnBelow  = -0.3
	riskOffAbove = 0.3
)

// Score is the weighted average of the available indicator scores,
// normalized by the weights actually present. Indicators without data are
// left out of both sums; with none available the score is 0.
func Score(indicators map[string]models.IndicatorClassification) float64 {
	var sum, weights float64
	for _, ind := range Indicators {
		c, ok := indicators[ind.Key]
		if !ok || !c.Available() {
			continue
		}
		sum += c.Score * ind.Weight
		weights += ind.Weight
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

// Overall labels a composite score.
func Overall(score float64) models.OverallRegime {
	switch {
	case score < riskOnBelow:
		return models.OverallRegime{Score: score, Label: models.RegimeRiskOn, Color: models.ColorGreen, Hex: "#3fb950"}
	case score < riskOffAbove:
		return models.OverallRegime{Score: score, Label: models.RegimeNeutral, Color: models.ColorYellow, Hex: "#d29922"}
	default:
		return models.OverallRegime{Score: score, Label: models.RegimeRiskOff, Color: models.ColorRed, Hex: "#f85149"}
	}
}

// Evaluate classifies raw indicator values and scores the result.
func Evaluate(raw map[string]*float64, at time.Time) models.CompositeRegimeState {
	indicators := Classify(raw)
	return models.CompositeRegimeState{
		Indicators: indicators,
		Overall:    Overall(Score(indicators)),
		Timestamp:  at,
	}
}
