package encode

import (
	"fmt"

	"github.com/aristath/wallcheb/internal/circuit"
	"github.com/aristath/wallcheb/internal/linalg"
	"github.com/aristath/wallcheb/internal/pauli"
)

// SelectBox applies the k-th term's unitaries to the state register when the
// prepare register is in |k>. Terms are multiplexed in the operator's
// deterministic term order, matching the prepare stage amplitudes.
type SelectBox struct {
	*circuit.RegisterBox
	operator  *pauli.Operator
	terms     []multiplexedTerm
	nPrep     int
	nState    int
	hermitian bool
}

// NewSelectBox builds the select stage of an LCU encoding.
func NewSelectBox(op *pauli.Operator, nState int) (*SelectBox, error) {
	terms, err := decompose(op, nState)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	nPrep := NPrepareQubits(len(terms))

	blocks := make(map[int][]*linalg.Matrix, len(terms))
	hermitian := true
	for k, t := range terms {
		blocks[k] = t.factors
		hermitian = hermitian && t.hermitian
	}
	mux, err := circuit.NewMultiplexedU2Box(PrepareRegister, nPrep, StateRegister, nState, blocks)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	circ := circuit.New("Select")
	circ.MustAddRegister(PrepareRegister, nPrep)
	circ.MustAddRegister(StateRegister, nState)
	if err := circ.AddBox(mux, circuit.IdentityQRegMap(mux.Registers())); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	return &SelectBox{
		RegisterBox: circuit.NewRegisterBox("Select", circ, nil),
		operator:    op.Copy(),
		terms:       terms,
		nPrep:       nPrep,
		nState:      nState,
		hermitian:   hermitian,
	}, nil
}

// Operator returns the multiplexed operator.
func (b *SelectBox) Operator() *pauli.Operator { return b.operator.Copy() }

// NPrepareQubits returns the prepare register width.
func (b *SelectBox) NPrepareQubits() int { return b.nPrep }

// NStateQubits returns the state register width.
func (b *SelectBox) NStateQubits() int { return b.nState }

// IsHermitian reports whether every multiplexed term is Hermitian, which
// makes the select stage self-inverse.
func (b *SelectBox) IsHermitian() bool { return b.hermitian }

// QControl widens the multiplexor index by a control register instead of
// controlling the composite unitary: term k fires on the widened index
// (controlIndex << nPrep) | k and every other index acts as identity.
func (b *SelectBox) QControl(nControl, controlIndex int) (circuit.Box, error) {
	if nControl < 1 {
		return nil, fmt.Errorf("select qcontrol: need at least one control qubit, got %d", nControl)
	}
	if controlIndex < 0 || controlIndex >= 1<<nControl {
		return nil, fmt.Errorf("select qcontrol: control index %d out of range for %d qubits", controlIndex, nControl)
	}

	dim := 1 << b.nState
	u := linalg.Identity(1 << (nControl + b.nPrep + b.nState))
	for k, t := range b.terms {
		block := linalg.KronList(t.factors)
		offset := (controlIndex<<b.nPrep | k) * dim
		for r := 0; r < dim; r++ {
			for c := 0; c < dim; c++ {
				u.Set(offset+r, offset+c, block.At(r, c))
			}
		}
	}

	circ := circuit.New(fmt.Sprintf("QC%d[%d](Select)", nControl, controlIndex))
	control := circ.MustAddRegister(circuit.ControlRegisterName, nControl)
	p := circ.MustAddRegister(PrepareRegister, b.nPrep)
	q := circ.MustAddRegister(StateRegister, b.nState)

	targets := append(append(control.Qubits(), p.Qubits()...), q.Qubits()...)
	if err := circ.AddUnitary("QCSelect", u, targets...); err != nil {
		return nil, fmt.Errorf("select qcontrol: %w", err)
	}
	return circuit.NewRegisterBox(circ.Name(), circ, nil), nil
}
