package quant

import (
	"github.com/montanaflynn/stats"
)

// Standardized describes where an observation sits in its lookback window.
type Standardized struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Z      float64 `json:"z_score"`
}

// ZScore standardizes current against values using the population standard
// deviation. A flat or empty window yields a zero z-score.
func ZScore(values []float64, current float64) Standardized {
	if len(values) == 0 {
		return Standardized{}
	}

	data := stats.Float64Data(values)
	mean, err := stats.Mean(data)
	if err != nil {
		return Standardized{}
	}
	sd, err := stats.StandardDeviationPopulation(data)
	if err != nil || sd == 0 {
		return Standardized{Mean: mean, StdDev: sd}
	}

	return Standardized{Mean: mean, StdDev: sd, Z: (current - mean) / sd}
}
