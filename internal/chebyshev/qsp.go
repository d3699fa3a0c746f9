package chebyshev

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/wallcheb/internal/circuit"
)

// Phases holds QSP phase factors in the standard convention, symmetric in
// index reversal, together with the fit residual at the sample points.
type Phases struct {
	Phi  []float64
	Loss float64
}

// Degree returns the degree of the realized polynomial.
func (p *Phases) Degree() int { return len(p.Phi) - 1 }

// Response computes the matrix element U_φ[0,0] of the QSP unitary
//
//	U_φ = e^{iφ_0 Z} Π_{k=1..d} W(x) e^{iφ_k Z}
//
// with the signal operator W(x) = [[x, i√(1-x²)], [i√(1-x²), x]]. For
// well-fitted phases, Re U_φ[0,0] tracks the target polynomial.
func Response(phi []float64, x float64) complex128 {
	return responseElements(phi, x)
}

func responseElements(phi []float64, x float64) complex128 {
	s := math.Sqrt(math.Max(0, 1-x*x))
	w00 := complex(x, 0)
	w01 := complex(0, s)

	e := cmplx.Exp(complex(0, phi[0]))
	u00, u01, u10, u11 := e, complex(0, 0), complex(0, 0), cmplx.Conj(e)
	for _, p := range phi[1:] {
		n00 := u00*w00 + u01*w01
		n01 := u00*w01 + u01*w00
		n10 := u10*w00 + u11*w01
		n11 := u10*w01 + u11*w00
		e = cmplx.Exp(complex(0, p))
		u00, u01 = n00*e, n01*cmplx.Conj(e)
		u10, u11 = n10*e, n11*cmplx.Conj(e)
	}
	return u00
}

// ResponseSample is one point of a QSP response curve. The imaginary part
// measures how far the phases are from realizing a real polynomial.
type ResponseSample struct {
	X  float64 `json:"x"`
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// SampleResponse evaluates U_φ[0,0] at npoints equally spaced signal values
// spanning [-1, 1].
func SampleResponse(phi []float64, npoints int) ([]ResponseSample, error) {
	if len(phi) == 0 {
		return nil, fmt.Errorf("qsp: need at least one phase")
	}
	if npoints < 2 {
		return nil, fmt.Errorf("qsp: need at least two sample points, got %d", npoints)
	}
	out := make([]ResponseSample, npoints)
	for i := range out {
		x := -1 + 2*float64(i)/float64(npoints-1)
		u := responseElements(phi, x)
		out[i] = ResponseSample{X: x, Re: real(u), Im: imag(u)}
	}
	return out, nil
}

// expandSymmetric rebuilds the full phase list from its symmetric half: the
// reversal repeats the middle element only for odd degree.
func expandSymmetric(hat []float64, degree int) []float64 {
	phi := make([]float64, degree+1)
	copy(phi, hat)
	if degree%2 == 0 {
		for i := 0; i < len(hat)-1; i++ {
			phi[len(hat)+i] = hat[len(hat)-2-i]
		}
	} else {
		for i := 0; i < len(hat); i++ {
			phi[len(hat)+i] = hat[len(hat)-1-i]
		}
	}
	return phi
}

// projectToPhaseBounds clamps phases to [-π, π].
func projectToPhaseBounds(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i, v := range x {
		proj[i] = math.Max(-math.Pi, math.Min(math.Pi, v))
	}
	return proj
}

// CompilePhases fits degree+1 symmetric QSP phases so that Re U_φ[0,0]
// reproduces the target function on [-1, 1]. The symmetry halves the
// parameter count: only ceil((degree+1)/2) phases are optimized, sampled at
// the Chebyshev-like points cos((2i-1)π/(4 d̃)).
func CompilePhases(target func(float64) float64, degree int) (*Phases, error) {
	if degree < 1 {
		return nil, fmt.Errorf("qsp: degree must be at least 1, got %d", degree)
	}
	dTilde := (degree + 2) / 2

	xs := make([]float64, dTilde)
	fv := make([]float64, dTilde)
	for i := 1; i <= dTilde; i++ {
		xs[i-1] = math.Cos(float64(2*i-1) * math.Pi / (4 * float64(dTilde)))
		fv[i-1] = target(xs[i-1])
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			phi := expandSymmetric(projectToPhaseBounds(x), degree)
			total := 0.0
			for i, xi := range xs {
				d := real(Response(phi, xi)) - fv[i]
				total += d * d
			}
			return total
		},
	}

	initial := make([]float64, dTilde)
	initial[0] = math.Pi / 4

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("qsp: optimization failed: %w", err)
	}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}
	if !successStatuses[result.Status] {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil {
			return nil, fmt.Errorf("qsp: optimization failed: %w", err)
		}
		if !successStatuses[result.Status] {
			return nil, fmt.Errorf("qsp: optimization did not converge: status=%v", result.Status)
		}
	}

	hat := projectToPhaseBounds(result.X)
	return &Phases{Phi: expandSymmetric(hat, degree), Loss: result.F}, nil
}

// Reflection converts the standard phases to the reflection convention used
// by projector circuits, returning Rz-ready angles in radians: the two end
// phases merge with a (d-1)π/2 offset, interior phases shift by -π/2, and
// the list reverses.
func (p *Phases) Reflection() []float64 {
	d := len(p.Phi) - 1
	conv := make([]float64, 0, d)
	conv = append(conv, p.Phi[0]+p.Phi[d]+float64(d-1)*math.Pi/2)
	for _, v := range p.Phi[1:d] {
		conv = append(conv, v-math.Pi/2)
	}
	out := make([]float64, len(conv))
	for i, v := range conv {
		out[len(conv)-1-i] = -2 * v
	}
	return out
}

// QSPCircuit builds the single-qubit circuit realizing U_φ at signal value
// x, optionally conjugated by Hadamards to read the response in the X basis.
func QSPCircuit(phi []float64, x float64, hadamards bool) (*circuit.Circuit, error) {
	if len(phi) < 2 {
		return nil, fmt.Errorf("qsp: need at least two phases, got %d", len(phi))
	}
	if x < -1 || x > 1 {
		return nil, fmt.Errorf("qsp: signal value %g outside [-1, 1]", x)
	}
	theta := 2 * math.Acos(x)

	c := circuit.New("U_phi")
	q := c.MustAddRegister("s", 1).Qubits()[0]
	if hadamards {
		c.H(q)
	}
	c.Rz(-2*phi[len(phi)-1], q)
	for k := len(phi) - 2; k >= 0; k-- {
		c.Rx(-theta, q)
		c.Rz(-2*phi[k], q)
	}
	if hadamards {
		c.H(q)
	}
	return c, nil
}
