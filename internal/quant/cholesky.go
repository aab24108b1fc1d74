package quant

import "math"

// CholeskyFloor is the smallest radicand allowed on the diagonal. Inputs that
// are not positive definite get their pivot raised to this value instead of
// failing, which leaves a near-zero row in the factor.
const CholeskyFloor = 1e-10

// Factorization is the lower-triangular factor of a symmetric matrix.
type Factorization struct {
	L [][]float64
	// FlooredPivots counts diagonal entries whose radicand fell below
	// CholeskyFloor. Non-zero means the input was not positive definite.
	FlooredPivots int
}

// Cholesky factors a symmetric matrix A into L with L·Lᵗ ≈ A.
// It never fails: non-positive pivots are floored at CholeskyFloor.
func Cholesky(a [][]float64) Factorization {
	n := len(a)
	l := NewSquare(n)
	floored := 0

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := 0.0
			for k := 0; k < j; k++ {
				sum += l[i][k] * l[j][k]
			}

			if i == j {
				radicand := a[i][i] - sum
				if radicand < CholeskyFloor {
					radicand = CholeskyFloor
					floored++
				}
				l[i][j] = math.Sqrt(radicand)
			} else {
				l[i][j] = (a[i][j] - sum) / l[j][j]
			}
		}
	}

	return Factorization{L: l, FlooredPivots: floored}
}

// MulLower computes x = L·z using only the lower triangle of l.
func MulLower(l [][]float64, z []float64) []float64 {
	x := make([]float64, len(l))
	for i := range l {
		sum := 0.0
		for k := 0; k <= i && k < len(z); k++ {
			sum += l[i][k] * z[k]
		}
		x[i] = sum
	}
	return x
}

// NewSquare allocates an n×n zero matrix.
func NewSquare(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}
