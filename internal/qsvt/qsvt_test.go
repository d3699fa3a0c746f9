package qsvt

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/wallcheb/internal/linalg"
)

func TestPolynomialParity(t *testing.T) {
	p, err := PolynomialParity([]float64{-1, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, Even, p)

	p, err = PolynomialParity([]float64{0, 0.75, 0, 0.25})
	require.NoError(t, err)
	assert.Equal(t, Odd, p)

	_, err = PolynomialParity([]float64{1, 1})
	require.Error(t, err)

	p, err = PolynomialParity([]float64{0, 0})
	require.NoError(t, err)
	assert.Equal(t, Even, p)
}

func TestApplyEvenPolynomialOnDiagonal(t *testing.T) {
	m := linalg.FromRows([][]complex128{
		{0.5, 0},
		{0, 0.25},
	})

	// p(x) = 2x² - 1.
	got, err := ApplyPolynomial(m, []float64{-1, 0, 2})
	require.NoError(t, err)

	assert.InDelta(t, -0.5, real(got.At(0, 0)), 1e-9)
	assert.InDelta(t, -0.875, real(got.At(1, 1)), 1e-9)
	assert.InDelta(t, 0, cmplx.Abs(got.At(0, 1)), 1e-9)
}

func TestApplyOddPolynomialCubesMatrix(t *testing.T) {
	m := linalg.FromRows([][]complex128{
		{0.5, 0},
		{0, 0.25},
	})

	got, err := ApplyPolynomial(m, []float64{0, 0, 0, 1})
	require.NoError(t, err)

	want := m.Mul(m).Mul(m)
	require.True(t, want.EqualWithin(got, 1e-9))
}

func TestApplyIdentityPolynomialReconstructs(t *testing.T) {
	m := linalg.FromRows([][]complex128{
		{-0.5, 0},
		{0, 0.25},
	})

	got, err := ApplyPolynomial(m, []float64{0, 1})
	require.NoError(t, err)
	require.True(t, m.EqualWithin(got, 1e-9))
}

func TestApplyPolynomialDegenerateSingularValues(t *testing.T) {
	s := complex(0.8/math.Sqrt2, 0)
	m := linalg.FromRows([][]complex128{
		{s, s},
		{s, -s},
	})

	// Even: all singular values are 0.8, so the result is p(0.8) * I.
	got, err := ApplyPolynomial(m, []float64{-1, 0, 2})
	require.NoError(t, err)
	want := linalg.Identity(2).ScaleC(complex(2*0.8*0.8-1, 0))
	require.True(t, want.EqualWithin(got, 1e-9))

	// Odd: x³ cubes the matrix.
	got, err = ApplyPolynomial(m, []float64{0, 0, 0, 1})
	require.NoError(t, err)
	cube := m.Mul(m).Mul(m)
	require.True(t, cube.EqualWithin(got, 1e-9))
}

func TestApplyPolynomialValidation(t *testing.T) {
	m := linalg.Zeros(2, 3)
	_, err := ApplyPolynomial(m, []float64{0, 1})
	require.Error(t, err)

	sq := linalg.Identity(2)
	_, err = ApplyPolynomial(sq, nil)
	require.Error(t, err)

	_, err = ApplyPolynomial(sq, []float64{1, 1})
	require.Error(t, err)
}
