package circuit

import "fmt"

// PowerBox applies a box a fixed number of times on the same registers.
type PowerBox struct {
	*RegisterBox
	inner Box
	power int
}

// NewPowerBox builds inner^power by repeating the inner circuit.
func NewPowerBox(inner Box, power int) (*PowerBox, error) {
	if power < 1 {
		return nil, fmt.Errorf("power: exponent must be positive, got %d", power)
	}
	circ := New(fmt.Sprintf("(%s)^%d", inner.Name(), power))
	for _, r := range inner.Registers() {
		circ.MustAddRegister(r.Name, r.Size)
	}
	for i := 0; i < power; i++ {
		if err := circ.AddBox(inner, IdentityQRegMap(inner.Registers())); err != nil {
			return nil, fmt.Errorf("power: repetition %d: %w", i, err)
		}
	}
	return &PowerBox{
		RegisterBox: NewRegisterBox(circ.Name(), circ, inner.Postselect()),
		inner:       inner,
		power:       power,
	}, nil
}

// Inner returns the repeated box.
func (b *PowerBox) Inner() Box { return b.inner }

// Power returns the exponent.
func (b *PowerBox) Power() int { return b.power }

// Dagger reverses the repetition: (B^p)† = (B†)^p.
func (b *PowerBox) Dagger() Box {
	d, err := NewPowerBox(b.inner.Dagger(), b.power)
	if err != nil {
		panic(fmt.Sprintf("power: dagger: %v", err))
	}
	return d
}

// QControl controls each repetition rather than the composite unitary, so
// inner boxes with specialized controlled forms keep them.
func (b *PowerBox) QControl(nControl, controlIndex int) (Box, error) {
	qc, err := QControl(b.inner, nControl, controlIndex)
	if err != nil {
		return nil, err
	}
	return NewPowerBox(qc, b.power)
}
