package circuit

import (
	"fmt"

	"github.com/aristath/wallcheb/internal/linalg"
)

// operation is a unitary applied to an ordered list of qubits. The first
// listed qubit is the most significant bit of the operation's local index.
type operation struct {
	label  string
	u      *linalg.Matrix
	qubits []Qubit
}

// Circuit is an ordered sequence of unitary operations over named registers.
type Circuit struct {
	name      string
	registers []Register
	index     map[string]int
	ops       []operation
}

// New creates an empty circuit.
func New(name string) *Circuit {
	return &Circuit{name: name, index: make(map[string]int)}
}

// Name returns the circuit name.
func (c *Circuit) Name() string { return c.name }

// AddRegister declares a register and returns it. Duplicate names and
// non-positive sizes are errors.
func (c *Circuit) AddRegister(name string, size int) (Register, error) {
	if size <= 0 {
		return Register{}, fmt.Errorf("register %s must have positive size, got %d", name, size)
	}
	if _, dup := c.index[name]; dup {
		return Register{}, fmt.Errorf("register %s already declared", name)
	}
	r := Register{Name: name, Size: size}
	c.index[name] = len(c.registers)
	c.registers = append(c.registers, r)
	return r, nil
}

// MustAddRegister is AddRegister that panics on error, for fixed layouts.
func (c *Circuit) MustAddRegister(name string, size int) Register {
	r, err := c.AddRegister(name, size)
	if err != nil {
		panic(err)
	}
	return r
}

// Registers returns the registers in declaration order.
func (c *Circuit) Registers() []Register {
	out := make([]Register, len(c.registers))
	copy(out, c.registers)
	return out
}

// Register looks a register up by name.
func (c *Circuit) Register(name string) (Register, bool) {
	i, ok := c.index[name]
	if !ok {
		return Register{}, false
	}
	return c.registers[i], true
}

// NQubits returns the total qubit count.
func (c *Circuit) NQubits() int {
	n := 0
	for _, r := range c.registers {
		n += r.Size
	}
	return n
}

// Qubits returns all qubits in global order.
func (c *Circuit) Qubits() []Qubit {
	out := make([]Qubit, 0, c.NQubits())
	for _, r := range c.registers {
		out = append(out, r.Qubits()...)
	}
	return out
}

// Position returns the global position of a qubit (0 = most significant).
func (c *Circuit) Position(q Qubit) (int, error) {
	offset := 0
	for _, r := range c.registers {
		if r.Name == q.Reg {
			if q.Index < 0 || q.Index >= r.Size {
				return 0, fmt.Errorf("qubit %s out of range (size %d)", q, r.Size)
			}
			return offset + q.Index, nil
		}
		offset += r.Size
	}
	return 0, fmt.Errorf("unknown register %s", q.Reg)
}

// appendOp validates targets and appends the operation.
func (c *Circuit) appendOp(label string, u *linalg.Matrix, qubits ...Qubit) error {
	r, cols := u.Dims()
	if r != cols || r != 1<<len(qubits) {
		return fmt.Errorf("op %s: matrix is %dx%d for %d qubits", label, r, cols, len(qubits))
	}
	seen := make(map[Qubit]bool, len(qubits))
	for _, q := range qubits {
		if _, err := c.Position(q); err != nil {
			return fmt.Errorf("op %s: %w", label, err)
		}
		if seen[q] {
			return fmt.Errorf("op %s: duplicate qubit %s", label, q)
		}
		seen[q] = true
	}
	c.ops = append(c.ops, operation{label: label, u: u, qubits: qubits})
	return nil
}

// mustOp is appendOp that panics; gate helpers use it after their own
// argument checks so call sites stay chainable.
func (c *Circuit) mustOp(label string, u *linalg.Matrix, qubits ...Qubit) *Circuit {
	if err := c.appendOp(label, u, qubits...); err != nil {
		panic(err)
	}
	return c
}

// Gate helpers.

func (c *Circuit) X(q Qubit) *Circuit { return c.mustOp("X", xMatrix(), q) }
func (c *Circuit) H(q Qubit) *Circuit { return c.mustOp("H", hMatrix(), q) }

func (c *Circuit) Rx(theta float64, q Qubit) *Circuit {
	return c.mustOp("Rx", rxMatrix(theta), q)
}

func (c *Circuit) Ry(theta float64, q Qubit) *Circuit {
	return c.mustOp("Ry", ryMatrix(theta), q)
}

func (c *Circuit) Rz(theta float64, q Qubit) *Circuit {
	return c.mustOp("Rz", rzMatrix(theta), q)
}

func (c *Circuit) CX(control, target Qubit) *Circuit {
	return c.mustOp("CX", cxMatrix(), control, target)
}

func (c *Circuit) CCX(c1, c2, target Qubit) *Circuit {
	return c.mustOp("CCX", ccxMatrix(), c1, c2, target)
}

// AddUnitary applies an arbitrary unitary to the listed qubits.
func (c *Circuit) AddUnitary(label string, u *linalg.Matrix, qubits ...Qubit) error {
	if !u.IsUnitary(1e-8) {
		return fmt.Errorf("op %s: matrix is not unitary", label)
	}
	return c.appendOp(label, u, qubits...)
}

// AddBox appends a box's inner circuit with its registers remapped through
// qm. The mapped registers must exist in c with matching sizes.
func (c *Circuit) AddBox(b Box, qm QRegMap) error {
	inner := b.Circuit()
	for _, br := range inner.Registers() {
		target, ok := qm.Target(br.Name)
		if !ok {
			return fmt.Errorf("add box %s: register %s has no mapping", b.Name(), br.Name)
		}
		cr, exists := c.Register(target)
		if !exists {
			return fmt.Errorf("add box %s: circuit has no register %s", b.Name(), target)
		}
		if cr.Size != br.Size {
			return fmt.Errorf("add box %s: register %s size %d != %s size %d", b.Name(), br.Name, br.Size, target, cr.Size)
		}
	}
	for _, op := range inner.ops {
		mapped := make([]Qubit, len(op.qubits))
		for i, q := range op.qubits {
			mq, err := qm.MapQubit(q)
			if err != nil {
				return fmt.Errorf("add box %s: %w", b.Name(), err)
			}
			mapped[i] = mq
		}
		if err := c.appendOp(op.label, op.u, mapped...); err != nil {
			return fmt.Errorf("add box %s: %w", b.Name(), err)
		}
	}
	return nil
}

// Reversed returns the dagger circuit: operations reversed and conjugate
// transposed.
func (c *Circuit) Reversed() *Circuit {
	out := New(c.name + "†")
	for _, r := range c.registers {
		out.MustAddRegister(r.Name, r.Size)
	}
	for i := len(c.ops) - 1; i >= 0; i-- {
		op := c.ops[i]
		out.ops = append(out.ops, operation{label: op.label + "†", u: op.u.Dagger(), qubits: op.qubits})
	}
	return out
}

// NumOps returns the operation count (flattened boxes included).
func (c *Circuit) NumOps() int { return len(c.ops) }

// Simulation.

// positionsOf resolves op target qubits to global positions.
func (c *Circuit) positionsOf(op operation) ([]int, error) {
	pos := make([]int, len(op.qubits))
	for i, q := range op.qubits {
		p, err := c.Position(q)
		if err != nil {
			return nil, fmt.Errorf("op %s: %w", op.label, err)
		}
		pos[i] = p
	}
	return pos, nil
}

// applyOp multiplies the operation into the state in place.
func applyOp(state []complex128, n int, positions []int, u *linalg.Matrix) {
	k := len(positions)
	subDim := 1 << k
	// Shift of each target bit within a global index.
	shifts := make([]int, k)
	for i, p := range positions {
		shifts[i] = n - 1 - p
	}
	targetMask := 0
	for _, s := range shifts {
		targetMask |= 1 << s
	}

	scratch := make([]complex128, subDim)
	// Iterate over assignments of the non-target bits.
	for base := 0; base < len(state); base++ {
		if base&targetMask != 0 {
			continue
		}
		// Gather amplitudes for each local index.
		for l := 0; l < subDim; l++ {
			idx := base
			for t := 0; t < k; t++ {
				if l>>(k-1-t)&1 == 1 {
					idx |= 1 << shifts[t]
				}
			}
			scratch[l] = state[idx]
		}
		// Apply the sub-unitary and scatter back.
		for l := 0; l < subDim; l++ {
			idx := base
			for t := 0; t < k; t++ {
				if l>>(k-1-t)&1 == 1 {
					idx |= 1 << shifts[t]
				}
			}
			var sum complex128
			for ll := 0; ll < subDim; ll++ {
				sum += u.At(l, ll) * scratch[ll]
			}
			state[idx] = sum
		}
	}
}

// Run applies the circuit to the given initial state in place.
func (c *Circuit) Run(state []complex128) error {
	n := c.NQubits()
	if len(state) != 1<<n {
		return fmt.Errorf("state length %d does not match %d qubits", len(state), n)
	}
	for _, op := range c.ops {
		pos, err := c.positionsOf(op)
		if err != nil {
			return err
		}
		applyOp(state, n, pos, op.u)
	}
	return nil
}

// Statevector applies the circuit to |0...0> and returns the result.
func (c *Circuit) Statevector() ([]complex128, error) {
	state := make([]complex128, 1<<c.NQubits())
	state[0] = 1
	if err := c.Run(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Unitary returns the full matrix of the circuit by running every basis
// state through it. Intended for validation-scale circuits.
func (c *Circuit) Unitary() (*linalg.Matrix, error) {
	n := c.NQubits()
	dim := 1 << n
	out := linalg.Zeros(dim, dim)
	for col := 0; col < dim; col++ {
		state := make([]complex128, dim)
		state[col] = 1
		if err := c.Run(state); err != nil {
			return nil, err
		}
		out.SetCol(col, state)
	}
	return out, nil
}
