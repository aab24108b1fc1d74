package quant

import "math"

// Pearson returns the linear correlation of x and y over their common length
// using the single-pass sum formula. Each series is first scaled by its
// largest magnitude so the sums cannot overflow. The result is clipped to
// [-1, 1]. It is 0 when fewer than two observations are available, either
// series has zero variance or holds a non-finite value.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}

	sx, sy := maxAbs(x[:n]), maxAbs(y[:n])
	if sx == 0 || sy == 0 || math.IsInf(sx, 0) || math.IsNaN(sx) || math.IsInf(sy, 0) || math.IsNaN(sy) {
		return 0
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := 0; i < n; i++ {
		xi, yi := x[i]/sx, y[i]/sy
		sumX += xi
		sumY += yi
		sumXY += xi * yi
		sumX2 += xi * xi
		sumY2 += yi * yi
	}

	fn := float64(n)
	varX := fn*sumX2 - sumX*sumX
	varY := fn*sumY2 - sumY*sumY
	if varX <= 0 || varY <= 0 {
		return 0
	}

	r := (fn*sumXY - sumX*sumY) / math.Sqrt(varX*varY)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return clamp(r, -1, 1)
}

// maxAbs returns the largest |v|, or NaN when values holds a NaN.
func maxAbs(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			return math.NaN()
		}
		m = max(m, math.Abs(v))
	}
	return m
}

// Tail returns the last min(window, len(values)) elements of values.
func Tail(values []float64, window int) []float64 {
	if window <= 0 || window >= len(values) {
		return values
	}
	return values[len(values)-window:]
}
