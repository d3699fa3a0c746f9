package circuit

import (
	"math"
	"math/cmplx"

	"github.com/aristath/wallcheb/internal/linalg"
)

// Single-qubit gate matrices. Rotation gates follow the standard
// half-angle convention R(θ) = exp(-iθ/2 · P).

func xMatrix() *linalg.Matrix {
	return linalg.FromRows([][]complex128{{0, 1}, {1, 0}})
}

func hMatrix() *linalg.Matrix {
	s := complex(1/math.Sqrt2, 0)
	return linalg.FromRows([][]complex128{{s, s}, {s, -s}})
}

func rxMatrix(theta float64) *linalg.Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(0, -math.Sin(theta/2))
	return linalg.FromRows([][]complex128{{c, s}, {s, c}})
}

func ryMatrix(theta float64) *linalg.Matrix {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return linalg.FromRows([][]complex128{{c, -s}, {s, c}})
}

func rzMatrix(theta float64) *linalg.Matrix {
	return linalg.FromRows([][]complex128{
		{cmplx.Exp(complex(0, -theta/2)), 0},
		{0, cmplx.Exp(complex(0, theta/2))},
	})
}

// controlledMatrix embeds u as the all-ones-controlled block on nControl
// control qubits: |1...1><1...1| ⊗ u + (rest) ⊗ I.
func controlledMatrix(u *linalg.Matrix, nControl int) *linalg.Matrix {
	dim, _ := u.Dims()
	blocks := 1 << nControl
	out := linalg.Identity(blocks * dim)
	offset := (blocks - 1) * dim
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			out.Set(offset+i, offset+j, u.At(i, j))
		}
	}
	return out
}

func cxMatrix() *linalg.Matrix {
	return controlledMatrix(xMatrix(), 1)
}

func ccxMatrix() *linalg.Matrix {
	return controlledMatrix(xMatrix(), 2)
}
