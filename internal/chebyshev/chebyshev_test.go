package chebyshev

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateIsExactOnPolynomials(t *testing.T) {
	// T_2(x) = 2x² - 1.
	s, err := Interpolate(func(x float64) float64 { return 2*x*x - 1 }, 2)
	require.NoError(t, err)
	coeffs := s.Coeffs()
	require.Len(t, coeffs, 3)
	assert.InDelta(t, 0, coeffs[0], 1e-12)
	assert.InDelta(t, 0, coeffs[1], 1e-12)
	assert.InDelta(t, 1, coeffs[2], 1e-12)

	// x³ = (3 T_1 + T_3) / 4.
	s, err = Interpolate(func(x float64) float64 { return x * x * x }, 3)
	require.NoError(t, err)
	coeffs = s.Coeffs()
	assert.InDelta(t, 0, coeffs[0], 1e-12)
	assert.InDelta(t, 0.75, coeffs[1], 1e-12)
	assert.InDelta(t, 0, coeffs[2], 1e-12)
	assert.InDelta(t, 0.25, coeffs[3], 1e-12)
}

func TestInterpolateConvergesForSmoothFunctions(t *testing.T) {
	s, err := Interpolate(math.Exp, 12)
	require.NoError(t, err)

	for _, x := range []float64{-1, -0.6, -0.1, 0, 0.35, 0.99} {
		assert.InDeltaf(t, math.Exp(x), s.Eval(x), 1e-8, "x = %g", x)
	}
}

func TestInterpolateRejectsDegreeZero(t *testing.T) {
	_, err := Interpolate(math.Exp, 0)
	require.Error(t, err)
}

func TestExtremaAndRoots(t *testing.T) {
	ex := Extrema(4)
	require.Len(t, ex, 5)
	assert.InDelta(t, 1, ex[0], 1e-15)
	assert.InDelta(t, -1, ex[4], 1e-15)
	for i := 1; i < len(ex); i++ {
		assert.Less(t, ex[i], ex[i-1])
	}

	for _, r := range Roots(3) {
		assert.Greater(t, r, -1.0)
		assert.Less(t, r, 1.0)
		// Roots of T_4 satisfy T_4(r) = cos(4 acos r) = 0.
		assert.InDelta(t, 0, math.Cos(4*math.Acos(r)), 1e-12)
	}
}

func TestPowerCoeffs(t *testing.T) {
	s, err := FromCoeffs([]float64{0, 0, 1})
	require.NoError(t, err)
	pc := s.PowerCoeffs()
	assert.InDelta(t, -1, pc[0], 1e-12)
	assert.InDelta(t, 0, pc[1], 1e-12)
	assert.InDelta(t, 2, pc[2], 1e-12)

	// 1 + 2 T_1 + 3 T_2 = -2 + 2x + 6x².
	s, err = FromCoeffs([]float64{1, 2, 3})
	require.NoError(t, err)
	pc = s.PowerCoeffs()
	assert.InDelta(t, -2, pc[0], 1e-12)
	assert.InDelta(t, 2, pc[1], 1e-12)
	assert.InDelta(t, 6, pc[2], 1e-12)

	// Power form and Clenshaw agree.
	x := 0.3
	horner := 0.0
	for j := len(pc) - 1; j >= 0; j-- {
		horner = horner*x + pc[j]
	}
	assert.InDelta(t, s.Eval(x), horner, 1e-12)
}

func TestResponseWithZeroPhasesIsChebyshev(t *testing.T) {
	// All-zero phases give U = W(x)^d, whose [0,0] entry is T_d(x).
	for _, d := range []int{1, 2, 3, 5} {
		phi := make([]float64, d+1)
		for _, x := range []float64{-0.9, -0.3, 0.1, 0.7} {
			want := math.Cos(float64(d) * math.Acos(x))
			got := Response(phi, x)
			assert.InDeltaf(t, want, real(got), 1e-12, "degree %d, x = %g", d, x)
			assert.InDeltaf(t, 0, imag(got), 1e-12, "degree %d, x = %g", d, x)
		}
	}
}

func TestSampleResponseGrid(t *testing.T) {
	// Zero phases at degree 3 sample T_3(x) = 4x³ - 3x.
	samples, err := SampleResponse(make([]float64, 4), 5)
	require.NoError(t, err)
	require.Len(t, samples, 5)

	wantX := []float64{-1, -0.5, 0, 0.5, 1}
	wantRe := []float64{-1, 1, 0, -1, 1}
	for i, s := range samples {
		assert.InDelta(t, wantX[i], s.X, 1e-12)
		assert.InDelta(t, wantRe[i], s.Re, 1e-12)
		assert.InDelta(t, 0, s.Im, 1e-12)
	}

	_, err = SampleResponse(nil, 5)
	assert.Error(t, err)
	_, err = SampleResponse([]float64{0.1, 0.2}, 1)
	assert.Error(t, err)
}

func TestQSPCircuitMatchesResponse(t *testing.T) {
	phi := []float64{0.3, -0.7, 1.1}
	x := 0.25

	c, err := QSPCircuit(phi, x, false)
	require.NoError(t, err)
	u, err := c.Unitary()
	require.NoError(t, err)

	want := Response(phi, x)
	assert.InDelta(t, 0, cmplx.Abs(u.At(0, 0)-want), 1e-9)
}

func TestQSPCircuitValidation(t *testing.T) {
	_, err := QSPCircuit([]float64{0.1}, 0.5, true)
	require.Error(t, err)

	_, err = QSPCircuit([]float64{0.1, 0.2}, 1.5, true)
	require.Error(t, err)
}

func TestCompilePhasesFitsChebyshev(t *testing.T) {
	target := func(x float64) float64 { return 2*x*x - 1 }

	phases, err := CompilePhases(target, 2)
	require.NoError(t, err)
	require.Len(t, phases.Phi, 3)

	// Symmetric convention.
	assert.InDelta(t, phases.Phi[0], phases.Phi[2], 1e-9)
	assert.Less(t, phases.Loss, 1e-3)

	dTilde := 2
	for i := 1; i <= dTilde; i++ {
		x := math.Cos(float64(2*i-1) * math.Pi / (4 * float64(dTilde)))
		assert.InDeltaf(t, target(x), real(Response(phases.Phi, x)), 0.05, "sample %d", i)
	}
}

func TestCompilePhasesRejectsDegreeZero(t *testing.T) {
	_, err := CompilePhases(func(x float64) float64 { return 1 }, 0)
	require.Error(t, err)
}

func TestReflectionConversion(t *testing.T) {
	p := &Phases{Phi: []float64{0.1, 0.2, 0.3}}
	got := p.Reflection()
	require.Len(t, got, 2)
	assert.InDelta(t, -2*(0.2-math.Pi/2), got[0], 1e-12)
	assert.InDelta(t, -2*(0.1+0.3+math.Pi/2), got[1], 1e-12)
}
