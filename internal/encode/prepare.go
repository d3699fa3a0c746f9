package encode

import (
	"fmt"
	"math"

	"github.com/aristath/wallcheb/internal/circuit"
)

// PrepareBox loads the LCU weight distribution onto the prepare register:
// |0...0> -> Σ_k sqrt(w_k / L1) |k>, zero-padded to the register dimension.
type PrepareBox struct {
	*circuit.StatePrepBox
	l1 float64
}

// NewPrepareBox builds the prepare stage from non-negative term weights.
func NewPrepareBox(weights []float64) (*PrepareBox, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("prepare: no weights")
	}
	l1 := 0.0
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("prepare: weight %d is negative (%g)", i, w)
		}
		l1 += w
	}
	if l1 <= 0 {
		return nil, fmt.Errorf("prepare: weights sum to zero")
	}

	dim := 1 << NPrepareQubits(len(weights))
	amps := make([]complex128, dim)
	for k, w := range weights {
		amps[k] = complex(math.Sqrt(w/l1), 0)
	}

	sp, err := circuit.NewStatePrepBox(PrepareRegister, amps)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	return &PrepareBox{StatePrepBox: sp, l1: l1}, nil
}

// L1Norm returns the sum of the weights.
func (b *PrepareBox) L1Norm() float64 { return b.l1 }
