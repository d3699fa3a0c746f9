// Package circuit implements register-structured quantum circuits with an
// exact simulator (statevector and unitary), the box abstraction the LCU
// constructions compose with, and controlled/powered box wrappers.
//
// Conventions: registers are ordered as declared; the first qubit of the
// first register is the most significant bit of a computational basis
// index. All gate angles are radians.
package circuit

import "fmt"

// Register is a named group of qubits.
type Register struct {
	Name string
	Size int
}

// Qubit addresses a single qubit within a named register.
type Qubit struct {
	Reg   string
	Index int
}

// String renders the qubit in pytket-like form, e.g. "p[0]".
func (q Qubit) String() string {
	return fmt.Sprintf("%s[%d]", q.Reg, q.Index)
}

// Qubits returns the register's qubits in index order.
func (r Register) Qubits() []Qubit {
	qs := make([]Qubit, r.Size)
	for i := range qs {
		qs[i] = Qubit{Reg: r.Name, Index: i}
	}
	return qs
}

// QRegMap maps a box's registers onto a hosting circuit's registers.
type QRegMap struct {
	byBox map[string]string
}

// NewQRegMap pairs box registers with circuit registers positionally.
// Sizes must match pairwise and no circuit register may be used twice.
func NewQRegMap(boxRegs, circRegs []Register) (QRegMap, error) {
	if len(boxRegs) != len(circRegs) {
		return QRegMap{}, fmt.Errorf("register list length mismatch: %d vs %d", len(boxRegs), len(circRegs))
	}
	byBox := make(map[string]string, len(boxRegs))
	used := make(map[string]bool, len(circRegs))
	for i, br := range boxRegs {
		cr := circRegs[i]
		if br.Size != cr.Size {
			return QRegMap{}, fmt.Errorf("register size mismatch: %s has %d qubits, %s has %d", br.Name, br.Size, cr.Name, cr.Size)
		}
		if _, dup := byBox[br.Name]; dup {
			return QRegMap{}, fmt.Errorf("box register %s mapped twice", br.Name)
		}
		if used[cr.Name] {
			return QRegMap{}, fmt.Errorf("circuit register %s used twice", cr.Name)
		}
		byBox[br.Name] = cr.Name
		used[cr.Name] = true
	}
	return QRegMap{byBox: byBox}, nil
}

// IdentityQRegMap maps registers onto circuit registers of the same name.
func IdentityQRegMap(regs []Register) QRegMap {
	byBox := make(map[string]string, len(regs))
	for _, r := range regs {
		byBox[r.Name] = r.Name
	}
	return QRegMap{byBox: byBox}
}

// Target returns the circuit register name for a box register name.
func (m QRegMap) Target(boxReg string) (string, bool) {
	t, ok := m.byBox[boxReg]
	return t, ok
}

// MapQubit rewrites a box qubit onto the hosting circuit.
func (m QRegMap) MapQubit(q Qubit) (Qubit, error) {
	t, ok := m.byBox[q.Reg]
	if !ok {
		return Qubit{}, fmt.Errorf("box register %s has no mapping", q.Reg)
	}
	return Qubit{Reg: t, Index: q.Index}, nil
}
