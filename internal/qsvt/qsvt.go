// Package qsvt applies polynomial transformations to the singular values of
// a matrix. It is the classical reference for quantum singular value
// transformation circuits: projector runs are benchmarked against it.
package qsvt

import (
	"fmt"
	"math"

	"github.com/aristath/wallcheb/internal/linalg"
)

// coeffTol is the magnitude below which a monomial coefficient is treated as
// absent when classifying parity.
const coeffTol = 1e-12

// Parity classifies a polynomial by the exponents it uses.
type Parity int

const (
	Even Parity = iota
	Odd
)

// PolynomialParity returns the parity of a monomial coefficient list
// (constant term first). Polynomials mixing even and odd exponents are
// rejected; the zero polynomial counts as even.
func PolynomialParity(coeffs []float64) (Parity, error) {
	hasEven, hasOdd := false, false
	for k, c := range coeffs {
		if math.Abs(c) < coeffTol {
			continue
		}
		if k%2 == 0 {
			hasEven = true
		} else {
			hasOdd = true
		}
	}
	if hasEven && hasOdd {
		return Even, fmt.Errorf("qsvt: polynomial mixes even and odd exponents")
	}
	if hasOdd {
		return Odd, nil
	}
	return Even, nil
}

func horner(coeffs []float64, x float64) float64 {
	v := 0.0
	for k := len(coeffs) - 1; k >= 0; k-- {
		v = v*x + coeffs[k]
	}
	return v
}

// ApplyPolynomial transforms the singular values of a square matrix
// M = U diag(σ) V†: even polynomials map to V diag(p(σ)) V†, preserving the
// right singular subspaces, and odd polynomials to U diag(p(σ)) V†.
func ApplyPolynomial(m *linalg.Matrix, coeffs []float64) (*linalg.Matrix, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("qsvt: no coefficients")
	}
	parity, err := PolynomialParity(coeffs)
	if err != nil {
		return nil, err
	}

	u, sigma, v, err := linalg.SVDComplex(m)
	if err != nil {
		return nil, fmt.Errorf("qsvt: %w", err)
	}

	n := len(sigma)
	left := v
	if parity == Odd {
		left = u
	}

	// left · diag(p(σ)) · V†, with the diagonal folded into column scaling.
	scaled := linalg.Zeros(n, n)
	for k := 0; k < n; k++ {
		p := complex(horner(coeffs, sigma[k]), 0)
		col := left.Col(k)
		for i := range col {
			col[i] *= p
		}
		scaled.SetCol(k, col)
	}
	return scaled.Mul(v.Dagger()), nil
}
