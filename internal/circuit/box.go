package circuit

import (
	"fmt"

	"github.com/aristath/wallcheb/internal/linalg"
	"github.com/aristath/wallcheb/internal/measure"
)

// Box is a reusable circuit fragment over named registers. Boxes carry an
// optional postselection map describing which of their qubits must be
// measured in a given state for the construction to be valid (LCU prepare
// registers, most prominently).
type Box interface {
	Name() string
	Registers() []Register
	Circuit() *Circuit
	Postselect() map[Qubit]int
	Dagger() Box
}

// RegisterBox is the base Box implementation: a named inner circuit plus a
// postselect map. Concrete boxes embed it and add their own accessors.
type RegisterBox struct {
	name       string
	circ       *Circuit
	postselect map[Qubit]int
}

// NewRegisterBox wraps a circuit as a box. The postselect map may be nil.
func NewRegisterBox(name string, circ *Circuit, postselect map[Qubit]int) *RegisterBox {
	ps := make(map[Qubit]int, len(postselect))
	for q, v := range postselect {
		ps[q] = v
	}
	return &RegisterBox{name: name, circ: circ, postselect: ps}
}

// Name returns the box name.
func (b *RegisterBox) Name() string { return b.name }

// Registers returns the inner circuit's registers.
func (b *RegisterBox) Registers() []Register { return b.circ.Registers() }

// Circuit returns the inner circuit.
func (b *RegisterBox) Circuit() *Circuit { return b.circ }

// Postselect returns a copy of the postselection map.
func (b *RegisterBox) Postselect() map[Qubit]int {
	out := make(map[Qubit]int, len(b.postselect))
	for q, v := range b.postselect {
		out[q] = v
	}
	return out
}

// Dagger returns the adjoint box. Postselections do not survive daggering:
// they describe the forward construction.
func (b *RegisterBox) Dagger() Box {
	return NewRegisterBox(b.name+"†", b.circ.Reversed(), nil)
}

// InitialisedCircuit returns a fresh hosting circuit with the box's
// registers, ready for AddBox with an identity register map.
func (b *RegisterBox) InitialisedCircuit() *Circuit {
	host := New(b.name)
	for _, r := range b.Registers() {
		host.MustAddRegister(r.Name, r.Size)
	}
	return host
}

// NQubits returns the box's total qubit count.
func (b *RegisterBox) NQubits() int { return b.circ.NQubits() }

// postselectPositions resolves the postselect map to global positions.
func postselectPositions(c *Circuit, ps map[Qubit]int) (map[int]int, error) {
	out := make(map[int]int, len(ps))
	for q, v := range ps {
		p, err := c.Position(q)
		if err != nil {
			return nil, fmt.Errorf("postselect %s: %w", q, err)
		}
		out[p] = v
	}
	return out, nil
}

// Unitary returns the raw inner circuit unitary.
func (b *RegisterBox) Unitary() (*linalg.Matrix, error) {
	return b.circ.Unitary()
}

// PostselectedUnitary returns the unitary with the box's postselect map
// applied: rows fixed to the selected outcomes, columns to the all-zero
// preparation of the same qubits.
func (b *RegisterBox) PostselectedUnitary() (*linalg.Matrix, error) {
	u, err := b.circ.Unitary()
	if err != nil {
		return nil, err
	}
	if len(b.postselect) == 0 {
		return u, nil
	}
	pos, err := postselectPositions(b.circ, b.postselect)
	if err != nil {
		return nil, err
	}
	return measure.UnitaryPostselect(b.circ.NQubits(), u, pos, nil)
}

// Statevector runs the inner circuit on |0...0>.
func (b *RegisterBox) Statevector() ([]complex128, error) {
	return b.circ.Statevector()
}

// PostselectedStatevector runs the circuit on |0...0> and projects the
// postselected qubits, without renormalizing.
func (b *RegisterBox) PostselectedStatevector() ([]complex128, error) {
	sv, err := b.circ.Statevector()
	if err != nil {
		return nil, err
	}
	if len(b.postselect) == 0 {
		return sv, nil
	}
	pos, err := postselectPositions(b.circ, b.postselect)
	if err != nil {
		return nil, err
	}
	return measure.StatevectorPostselect(b.circ.NQubits(), sv, pos, false)
}
