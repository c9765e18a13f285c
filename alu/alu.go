// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package alu implements the SAP-1 adder/subtractor with latched flags.
package alu

import (
	"errors"

	"github.com/ezrec/sap1/bus"
	"github.com/ezrec/sap1/translate"
)

var f = translate.From

var (
	ErrWidth = errors.New(f("alu width invalid"))
)

// ALU adds or subtracts its two operands. The result is combinational;
// the carry and zero flags are latched on commit only while UpdateFlags is
// asserted.
type ALU struct {
	Width       int        // Operand width in bits.
	A           bus.Source // First operand, usually the accumulator.
	B           bus.Source // Second operand, usually register B.
	Subtract    bool       // Compute A - B instead of A + B.
	UpdateFlags bool       // Latch the flags on commit.

	carry bool
	zero  bool
}

var _ bus.Source = (*ALU)(nil)

// NewAlu creates an ALU wired to two operand sources.
func NewAlu(width int, a, b bus.Source) (alu *ALU, err error) {
	if width < 1 || width > 8 {
		err = ErrWidth
		return
	}

	alu = &ALU{
		Width: width,
		A:     a,
		B:     b,
	}

	return
}

// Sum returns the Width+1 bit result for the current Subtract line.
func (alu *ALU) Sum() (sum uint16) {
	return alu.Compute(alu.Subtract)
}

// Compute returns the Width+1 bit result of an addition or subtraction of
// the operands. Subtraction is the addition of the inverted second operand
// with a carry-in of one.
func (alu *ALU) Compute(subtract bool) (sum uint16) {
	mask := uint16((1 << alu.Width) - 1)

	a := uint16(alu.A.Output()) & mask
	b := uint16(alu.B.Output()) & mask

	if subtract {
		sum = a + (^b & mask) + 1
	} else {
		sum = a + b
	}

	return
}

// Output returns the truncated result.
func (alu *ALU) Output() uint8 {
	return uint8(alu.Sum() & uint16((1<<alu.Width)-1))
}

// Commit latches the flags if UpdateFlags is asserted. It must run before
// the operand registers commit.
func (alu *ALU) Commit() {
	if !alu.UpdateFlags {
		return
	}

	alu.carry = (alu.Sum() >> alu.Width) != 0
	alu.zero = alu.Output() == 0
}

// Reset clears the flags and control lines.
func (alu *ALU) Reset() {
	alu.carry = false
	alu.zero = false
	alu.Subtract = false
	alu.UpdateFlags = false
}

// Carry returns the latched carry flag.
func (alu *ALU) Carry() bool {
	return alu.carry
}

// Zero returns the latched zero flag.
func (alu *ALU) Zero() bool {
	return alu.zero
}
