package encode

import (
	"fmt"

	"github.com/aristath/wallcheb/internal/circuit"
	"github.com/aristath/wallcheb/internal/linalg"
	"github.com/aristath/wallcheb/internal/pauli"
)

// LCUBox is the block encoding prepare; select; prepare† with the prepare
// register postselected to |0...0>. The surviving block on the state
// register is operator / L1Norm.
type LCUBox struct {
	*circuit.RegisterBox
	prepare *PrepareBox
	sel     *SelectBox
}

// NewLCUBox block encodes an operator on nState state qubits.
func NewLCUBox(op *pauli.Operator, nState int) (*LCUBox, error) {
	sel, err := NewSelectBox(op, nState)
	if err != nil {
		return nil, fmt.Errorf("lcu: %w", err)
	}
	weights := make([]float64, len(sel.terms))
	for k, t := range sel.terms {
		weights[k] = t.magnitude
	}
	prepare, err := NewPrepareBox(weights)
	if err != nil {
		return nil, fmt.Errorf("lcu: %w", err)
	}

	circ := circuit.New("LCU")
	p := circ.MustAddRegister(PrepareRegister, sel.nPrep)
	circ.MustAddRegister(StateRegister, sel.nState)

	if err := circ.AddBox(prepare, circuit.IdentityQRegMap(prepare.Registers())); err != nil {
		return nil, fmt.Errorf("lcu: prepare: %w", err)
	}
	if err := circ.AddBox(sel, circuit.IdentityQRegMap(sel.Registers())); err != nil {
		return nil, fmt.Errorf("lcu: select: %w", err)
	}
	unprepare := prepare.Dagger()
	if err := circ.AddBox(unprepare, circuit.IdentityQRegMap(unprepare.Registers())); err != nil {
		return nil, fmt.Errorf("lcu: prepare dagger: %w", err)
	}

	postselect := make(map[circuit.Qubit]int, sel.nPrep)
	for _, q := range p.Qubits() {
		postselect[q] = 0
	}
	return &LCUBox{
		RegisterBox: circuit.NewRegisterBox("LCU", circ, postselect),
		prepare:     prepare,
		sel:         sel,
	}, nil
}

// Prepare returns the prepare stage.
func (b *LCUBox) Prepare() *PrepareBox { return b.prepare }

// Select returns the select stage.
func (b *LCUBox) Select() *SelectBox { return b.sel }

// Operator returns the encoded operator.
func (b *LCUBox) Operator() *pauli.Operator { return b.sel.Operator() }

// L1Norm returns the sum of coefficient magnitudes, the encoding's
// normalization factor.
func (b *LCUBox) L1Norm() float64 { return b.prepare.L1Norm() }

// NPrepareQubits returns the prepare register width.
func (b *LCUBox) NPrepareQubits() int { return b.sel.nPrep }

// NStateQubits returns the state register width.
func (b *LCUBox) NStateQubits() int { return b.sel.nState }

// IsHermitian reports whether the encoded block is Hermitian.
func (b *LCUBox) IsHermitian() bool { return b.sel.hermitian }

// QControl controls only the select stage: the prepare conjugation acts
// trivially on the postselected block when the select does not fire.
func (b *LCUBox) QControl(nControl, controlIndex int) (circuit.Box, error) {
	qcSel, err := b.sel.QControl(nControl, controlIndex)
	if err != nil {
		return nil, fmt.Errorf("lcu qcontrol: %w", err)
	}

	circ := circuit.New(fmt.Sprintf("QC%d[%d](LCU)", nControl, controlIndex))
	circ.MustAddRegister(circuit.ControlRegisterName, nControl)
	p := circ.MustAddRegister(PrepareRegister, b.sel.nPrep)
	circ.MustAddRegister(StateRegister, b.sel.nState)

	if err := circ.AddBox(b.prepare, circuit.IdentityQRegMap(b.prepare.Registers())); err != nil {
		return nil, fmt.Errorf("lcu qcontrol: prepare: %w", err)
	}
	if err := circ.AddBox(qcSel, circuit.IdentityQRegMap(qcSel.Registers())); err != nil {
		return nil, fmt.Errorf("lcu qcontrol: select: %w", err)
	}
	unprepare := b.prepare.Dagger()
	if err := circ.AddBox(unprepare, circuit.IdentityQRegMap(unprepare.Registers())); err != nil {
		return nil, fmt.Errorf("lcu qcontrol: prepare dagger: %w", err)
	}

	postselect := make(map[circuit.Qubit]int, b.sel.nPrep)
	for _, q := range p.Qubits() {
		postselect[q] = 0
	}
	return circuit.NewRegisterBox(circ.Name(), circ, postselect), nil
}

// BlockMatrix returns the postselected block <0|_p U |0>_p, which equals the
// operator matrix divided by the L1 norm.
func (b *LCUBox) BlockMatrix() (*linalg.Matrix, error) {
	return b.PostselectedUnitary()
}

// Encoded returns L1 * BlockMatrix, reconstructing the operator matrix.
func (b *LCUBox) Encoded() (*linalg.Matrix, error) {
	block, err := b.BlockMatrix()
	if err != nil {
		return nil, err
	}
	return block.ScaleC(complex(b.L1Norm(), 0)), nil
}
