// Package quant holds the statistical primitives shared by every simulated-data
// consumer: normal draws, Cholesky factorization, correlated series synthesis,
// Pearson correlation and z-scores.
package quant

import (
	"math"
	"math/rand/v2"
)

// Gaussian produces standard-normal draws with the Box-Muller transform.
// It is not safe for concurrent use; give each session its own instance.
type Gaussian struct {
	rng *rand.Rand
}

// NewGaussian creates a generator. A zero seed draws a random seed so every
// call produces fresh values; any other seed makes the stream reproducible.
func NewGaussian(seed uint64) *Gaussian {
	if seed == 0 {
		return &Gaussian{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &Gaussian{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewGaussianFromSource wraps an existing uniform source.
func NewGaussianFromSource(src rand.Source) *Gaussian {
	return &Gaussian{rng: rand.New(src)}
}

// Next returns one draw with mean 0 and variance 1.
func (g *Gaussian) Next() float64 {
	u1 := g.rng.Float64()
	for u1 == 0 {
		u1 = g.rng.Float64()
	}
	u2 := g.rng.Float64()
	return math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
}

// Fill writes len(dst) independent draws into dst.
func (g *Gaussian) Fill(dst []float64) {
	for i := range dst {
		dst[i] = g.Next()
	}
}

// Uniform returns a draw from [0, 1).
func (g *Gaussian) Uniform() float64 {
	return g.rng.Float64()
}

// UniformRange returns a draw from [lo, hi).
func (g *Gaussian) UniformRange(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}
