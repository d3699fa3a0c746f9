package hamiltonian

import (
	"fmt"
	"math"

	"github.com/aristath/wallcheb/internal/pauli"
)

// WallShifts returns the wall-Chebyshev shift values a_1 < ... < a_m for a
// spectrum starting at s with largest eigenvalue emax. The shifts sit on a
// cosine grid inside the damped band [s, s + R]:
//
//	a_v = s + R/2 * (1 - cos(v*pi/(m+0.5)))  with  R = alpha*(emax-s)
//
// m = 0 yields an empty list, the identity filter.
func WallShifts(s, emax float64, m int, alpha float64) ([]float64, error) {
	if m < 0 {
		return nil, fmt.Errorf("shifts: degree must be >= 0, got %d", m)
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("shifts: alpha must be in (0, 1], got %g", alpha)
	}
	if emax < s {
		return nil, fmt.Errorf("shifts: emax %g lies below spectrum start %g", emax, s)
	}
	r := alpha * (emax - s)
	shifts := make([]float64, m)
	for v := 1; v <= m; v++ {
		shifts[v-1] = s + r/2*(1-math.Cos(float64(v)*math.Pi/(float64(m)+0.5)))
	}
	return shifts, nil
}

// ShiftedOperators returns the wall product factors H - a*I, one operator
// per shift, each compressed.
func ShiftedOperators(op *pauli.Operator, shifts []float64) []*pauli.Operator {
	out := make([]*pauli.Operator, len(shifts))
	for k, a := range shifts {
		shifted := op.Copy()
		shifted.AddScalar(complex(-a, 0))
		out[k] = shifted.Compress()
	}
	return out
}
