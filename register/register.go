// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package register implements the synchronous latches of the SAP-1.
//
// Every register exposes its control lines (WriteEnable, DataIn, and for
// counters CountEnable) as fields that are set during the settle phase of a
// tick. Nothing changes until Commit() is called, so all components observe
// the same pre-tick state no matter in which order they are committed.
package register

import (
	"github.com/ezrec/sap1/bus"
)

// MAX_WIDTH is the widest register supported.
const MAX_WIDTH = 8

func mask(width int) uint8 {
	return uint8((1 << width) - 1)
}

// Register is a synchronous latch with a write-enable input.
type Register struct {
	Width       int   // Width of the register in bits.
	WriteEnable bool  // Latch DataIn on commit.
	DataIn      uint8 // Data input, usually the bus.

	value uint8
}

var _ bus.Source = (*Register)(nil)
var _ bus.Sink = (*Register)(nil)

// NewRegister creates a register of the given width.
func NewRegister(width int) (reg *Register, err error) {
	if width < 1 || width > MAX_WIDTH {
		err = ErrWidth
		return
	}

	reg = &Register{Width: width}
	return
}

// Output returns the latched value.
func (reg *Register) Output() uint8 {
	return reg.value
}

// Latch sets the write-enable line and data input.
func (reg *Register) Latch(enable bool, value uint8) {
	reg.WriteEnable = enable
	reg.DataIn = value
}

// Commit applies the latch rule.
func (reg *Register) Commit() {
	if reg.WriteEnable {
		reg.value = reg.DataIn & mask(reg.Width)
	}
}

// Reset returns the register to its power-on state.
func (reg *Register) Reset() {
	reg.value = 0
	reg.WriteEnable = false
	reg.DataIn = 0
}

// Counter is a Register that increments when not being written.
type Counter struct {
	Register
	CountEnable bool // Increment on commit, unless written.
}

// NewCounter creates a counter of the given width.
func NewCounter(width int) (ctr *Counter, err error) {
	reg, err := NewRegister(width)
	if err != nil {
		return
	}

	ctr = &Counter{Register: *reg}
	return
}

// Commit applies the latch rule. A write wins over a count.
func (ctr *Counter) Commit() {
	switch {
	case ctr.WriteEnable:
		ctr.value = ctr.DataIn & mask(ctr.Width)
	case ctr.CountEnable:
		ctr.value = (ctr.value + 1) & mask(ctr.Width)
	}
}

// Reset returns the counter to its power-on state.
func (ctr *Counter) Reset() {
	ctr.Register.Reset()
	ctr.CountEnable = false
}

// Partial is a register that drives only its low OutWidth bits back onto
// the bus, while keeping the full value for internal decode.
type Partial struct {
	Register
	OutWidth int // Width of the value driven onto the bus.

	exposed uint8
}

// NewPartial creates a partial register. OutWidth must be narrower than
// width.
func NewPartial(width int, outWidth int) (pr *Partial, err error) {
	if outWidth < 1 || outWidth >= width {
		err = ErrWidth
		return
	}

	reg, err := NewRegister(width)
	if err != nil {
		return
	}

	pr = &Partial{Register: *reg, OutWidth: outWidth}
	return
}

// Output returns the exposed, truncated value.
func (pr *Partial) Output() uint8 {
	return pr.exposed
}

// Full returns the full latched value.
func (pr *Partial) Full() uint8 {
	return pr.value
}

// Commit latches both the full and the exposed value.
func (pr *Partial) Commit() {
	if pr.WriteEnable {
		pr.value = pr.DataIn & mask(pr.Width)
		pr.exposed = pr.DataIn & mask(pr.OutWidth)
	}
}

// Reset returns the register to its power-on state.
func (pr *Partial) Reset() {
	pr.Register.Reset()
	pr.exposed = 0
}

// Input is a read-only pass-through of an externally supplied value, such
// as front panel switches.
type Input struct {
	Value uint8
}

var _ bus.Source = (*Input)(nil)

// Output returns the external value.
func (in *Input) Output() uint8 {
	return in.Value
}

// Commit does nothing; an input holds no state.
func (in *Input) Commit() {}

// Reset does nothing; the external value is not owned by the machine.
func (in *Input) Reset() {}
