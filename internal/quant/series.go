package quant

// CorrelatedSeries draws days observations of len(l) correlated variables.
// Each day takes fresh independent normals z, correlates them as L·z and
// multiplies variable i by scales[i]. The result is indexed [variable][day].
func CorrelatedSeries(g *Gaussian, l [][]float64, scales []float64, days int) [][]float64 {
	n := len(l)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, 0, days)
	}

	z := make([]float64, n)
	for d := 0; d < days; d++ {
		g.Fill(z)
		x := MulLower(l, z)
		for i := 0; i < n; i++ {
			scale := 1.0
			if i < len(scales) {
				scale = scales[i]
			}
			out[i] = append(out[i], x[i]*scale)
		}
	}

	return out
}

// MeanReversion parameterizes one step of a mean-reverting level process.
type MeanReversion struct {
	Target   float64
	Speed    float64
	Drift    float64
	Vol      float64
	ShockMul float64
	Floor    float64
}

// Step advances current by one period: pull toward Target, proportional
// drift, and a Gaussian shock scaled by the current level.
func (m MeanReversion) Step(g *Gaussian, current float64) float64 {
	revert := (m.Target - current) * m.Speed
	drift := current * m.Drift
	shock := current * m.Vol * g.Next() * m.ShockMul
	next := current + revert + drift + shock
	if next < m.Floor {
		return m.Floor
	}
	return next
}
