// Package chebyshev fits and evaluates Chebyshev expansions on [-1, 1] and
// compiles quantum signal processing (QSP) phase factors that reproduce them
// on a block-encoded signal.
package chebyshev

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Series is a truncated Chebyshev expansion Σ_j c_j T_j(x).
type Series struct {
	coeffs []float64
}

// FromCoeffs builds a series from Chebyshev coefficients (c_0 first).
func FromCoeffs(coeffs []float64) (*Series, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("chebyshev: no coefficients")
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Series{coeffs: c}, nil
}

// Interpolate fits a degree-d expansion to f sampled at the d+1
// Chebyshev-Lobatto nodes cos(kπ/d), using a type-I discrete cosine
// transform. The fit is exact when f is a polynomial of degree at most d.
func Interpolate(f func(float64) float64, degree int) (*Series, error) {
	if degree < 1 {
		return nil, fmt.Errorf("chebyshev: degree must be at least 1, got %d", degree)
	}
	nodes := Extrema(degree)
	y := make([]float64, len(nodes))
	for k, x := range nodes {
		y[k] = f(x)
	}

	dct := fourier.NewDCT(len(y))
	raw := dct.Transform(make([]float64, len(y)), y)

	coeffs := make([]float64, degree+1)
	for j := range coeffs {
		coeffs[j] = raw[j] / float64(degree)
	}
	coeffs[0] /= 2
	coeffs[degree] /= 2
	return &Series{coeffs: coeffs}, nil
}

// Extrema returns the Chebyshev-Lobatto nodes cos(kπ/d), k = 0..d, the
// extrema of T_d on [-1, 1].
func Extrema(degree int) []float64 {
	nodes := make([]float64, degree+1)
	for k := range nodes {
		nodes[k] = math.Cos(float64(k) * math.Pi / float64(degree))
	}
	return nodes
}

// Roots returns the roots of T_{d+1}: cos((k+0.5)π/(d+1)), k = 0..d.
func Roots(degree int) []float64 {
	nodes := make([]float64, degree+1)
	for k := range nodes {
		nodes[k] = math.Cos((float64(k) + 0.5) * math.Pi / float64(degree+1))
	}
	return nodes
}

// Degree returns the expansion degree.
func (s *Series) Degree() int { return len(s.coeffs) - 1 }

// Coeffs returns a copy of the Chebyshev coefficients.
func (s *Series) Coeffs() []float64 {
	out := make([]float64, len(s.coeffs))
	copy(out, s.coeffs)
	return out
}

// Eval evaluates the expansion with the Clenshaw recurrence.
func (s *Series) Eval(x float64) float64 {
	var b1, b2 float64
	for j := len(s.coeffs) - 1; j >= 1; j-- {
		b1, b2 = s.coeffs[j]+2*x*b1-b2, b1
	}
	return s.coeffs[0] + x*b1 - b2
}

// PowerCoeffs converts the expansion to monomial coefficients (constant
// first) via the T_{j+1} = 2x T_j - T_{j-1} recurrence.
func (s *Series) PowerCoeffs() []float64 {
	n := len(s.coeffs)
	out := make([]float64, n)

	// tPrev and tCur hold the monomial coefficients of T_{j-1} and T_j.
	tPrev := make([]float64, n)
	tCur := make([]float64, n)
	tPrev[0] = 1
	if n > 1 {
		tCur[1] = 1
	}

	out[0] += s.coeffs[0] * tPrev[0]
	for j := 1; j < n; j++ {
		for k := 0; k <= j; k++ {
			out[k] += s.coeffs[j] * tCur[k]
		}
		if j+1 < n {
			tNext := make([]float64, n)
			for k := 0; k < n-1; k++ {
				tNext[k+1] = 2 * tCur[k]
			}
			for k := 0; k < n; k++ {
				tNext[k] -= tPrev[k]
			}
			tPrev, tCur = tCur, tNext
		}
	}
	return out
}
