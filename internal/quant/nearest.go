package quant

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// minEigenvalue is the floor applied to the spectrum in NearestCorrelation.
const minEigenvalue = 1e-8

// NearestCorrelation projects a symmetric matrix with unit diagonal onto a
// positive-definite correlation matrix by clipping negative eigenvalues and
// rescaling back to a unit diagonal. This is a single spectral projection, not
// Higham's alternating projections, so the result is close but not the
// Frobenius-nearest correlation matrix.
//
// The second return value reports whether the input needed repair. When the
// eigendecomposition fails the input is returned unchanged.
func NearestCorrelation(a [][]float64) ([][]float64, bool) {
	n := len(a)
	if n == 0 {
		return a, false
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (a[i][j]+a[j][i])/2)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return a, false
	}

	values := eig.Values(nil)
	repaired := false
	for i, v := range values {
		if v < minEigenvalue {
			values[i] = minEigenvalue
			repaired = true
		}
	}
	if !repaired {
		return a, false
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	var tmp, rebuilt mat.Dense
	tmp.Mul(&vecs, mat.NewDiagDense(n, values))
	rebuilt.Mul(&tmp, vecs.T())

	out := NewSquare(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			scale := math.Sqrt(rebuilt.At(i, i) * rebuilt.At(j, j))
			if i == j {
				out[i][j] = 1.0
				continue
			}
			if scale > 0 {
				out[i][j] = clamp(rebuilt.At(i, j)/scale, -1, 1)
			}
		}
	}

	// Mirror the upper triangle so symmetry is exact after rounding.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out[j][i] = out[i][j]
		}
	}

	return out, true
}

// Reconstruct returns L·Lᵗ for a lower-triangular factor.
func Reconstruct(l [][]float64) [][]float64 {
	n := len(l)
	dense := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dense.Set(i, j, l[i][j])
		}
	}

	var product mat.Dense
	product.Mul(dense, dense.T())

	out := NewSquare(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = product.At(i, j)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
