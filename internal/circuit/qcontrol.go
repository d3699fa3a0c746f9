package circuit

import "fmt"

// ControlRegisterName is the register added by controlled box wrappers.
const ControlRegisterName = "control"

// QAllControllable is implemented by boxes that have a cheaper or structurally
// different controlled form than wrapping the whole inner unitary (the LCU
// box controls only its select stage, for example).
type QAllControllable interface {
	QControl(nControl, controlIndex int) (Box, error)
}

// QControl returns the controlled form of a box on nControl control qubits,
// active when the control register carries controlIndex. Boxes implementing
// QAllControllable provide their own construction.
func QControl(b Box, nControl, controlIndex int) (Box, error) {
	if qc, ok := b.(QAllControllable); ok {
		return qc.QControl(nControl, controlIndex)
	}
	return NewQControlBox(b, nControl, controlIndex)
}

// QControlBox wraps a box with a control register. The inner circuit runs
// only when the control register is in the controlIndex basis state;
// index bits that are zero are handled by X-conjugation around an
// all-ones-controlled application.
type QControlBox struct {
	*RegisterBox
	inner        Box
	nControl     int
	controlIndex int
}

// NewQControlBox builds the controlled form of a box.
func NewQControlBox(inner Box, nControl, controlIndex int) (*QControlBox, error) {
	if nControl < 1 {
		return nil, fmt.Errorf("qcontrol: need at least one control qubit, got %d", nControl)
	}
	if controlIndex < 0 || controlIndex >= 1<<nControl {
		return nil, fmt.Errorf("qcontrol: control index %d out of range for %d qubits", controlIndex, nControl)
	}
	for _, r := range inner.Registers() {
		if r.Name == ControlRegisterName {
			return nil, fmt.Errorf("qcontrol: inner box %s already has a %q register", inner.Name(), ControlRegisterName)
		}
	}

	circ := New(fmt.Sprintf("QC%d[%d](%s)", nControl, controlIndex, inner.Name()))
	control := circ.MustAddRegister(ControlRegisterName, nControl)
	for _, r := range inner.Registers() {
		circ.MustAddRegister(r.Name, r.Size)
	}

	innerU, err := inner.Circuit().Unitary()
	if err != nil {
		return nil, fmt.Errorf("qcontrol: inner unitary: %w", err)
	}
	targets := append(control.Qubits(), inner.Circuit().Qubits()...)

	// X on the control qubits whose index bit is zero, so the all-ones
	// block fires exactly on controlIndex.
	zeroBits := zeroControlBits(controlIndex, nControl)
	for _, q := range zeroBits {
		circ.X(q)
	}
	if err := circ.appendOp("C"+inner.Name(), controlledMatrix(innerU, nControl), targets...); err != nil {
		return nil, fmt.Errorf("qcontrol: %w", err)
	}
	for _, q := range zeroBits {
		circ.X(q)
	}

	return &QControlBox{
		RegisterBox:  NewRegisterBox(circ.Name(), circ, inner.Postselect()),
		inner:        inner,
		nControl:     nControl,
		controlIndex: controlIndex,
	}, nil
}

// zeroControlBits returns the control qubits whose bit of index is zero
// (bit 0 of the register is the most significant, matching the big-endian
// register convention).
func zeroControlBits(index, nControl int) []Qubit {
	var out []Qubit
	for i := 0; i < nControl; i++ {
		if index>>(nControl-1-i)&1 == 0 {
			out = append(out, Qubit{Reg: ControlRegisterName, Index: i})
		}
	}
	return out
}

// Inner returns the wrapped box.
func (b *QControlBox) Inner() Box { return b.inner }

// ControlRegister returns the control register.
func (b *QControlBox) ControlRegister() Register {
	return Register{Name: ControlRegisterName, Size: b.nControl}
}

// ControlIndex returns the activating basis state of the control register.
func (b *QControlBox) ControlIndex() int { return b.controlIndex }
