package alu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type operand uint8

func (op *operand) Output() uint8 { return uint8(*op) }

func newTestAlu(t *testing.T) (alu *ALU, a, b *operand) {
	a = new(operand)
	b = new(operand)
	alu, err := NewAlu(8, a, b)
	assert.NoError(t, err)
	return
}

func TestAlu_Width(t *testing.T) {
	assert := assert.New(t)

	_, err := NewAlu(0, nil, nil)
	assert.ErrorIs(err, ErrWidth)
	_, err = NewAlu(9, nil, nil)
	assert.ErrorIs(err, ErrWidth)
}

func TestAlu_Table(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		a, b     uint8
		subtract bool
		output   uint8
		carry    bool
		zero     bool
	}){
		{28, 14, false, 42, false, false},
		{0xff, 0x01, false, 0x00, true, true},
		{0x80, 0x80, false, 0x00, true, true},
		{0xf0, 0x20, false, 0x10, true, false},
		{0, 0, false, 0, false, true},
		{7, 5, true, 2, true, false},
		{5, 7, true, 0xfe, false, false},
		{9, 9, true, 0, true, true},
		{0, 0, true, 0, true, true},
		{0, 1, true, 0xff, false, false},
	}

	alu, a, b := newTestAlu(t)
	alu.UpdateFlags = true

	for _, entry := range table {
		name := fmt.Sprintf("%+v", entry)
		*a = operand(entry.a)
		*b = operand(entry.b)
		alu.Subtract = entry.subtract
		assert.Equal(entry.output, alu.Output(), name)
		alu.Commit()
		assert.Equal(entry.carry, alu.Carry(), name)
		assert.Equal(entry.zero, alu.Zero(), name)
	}
}

func TestAlu_Exhaustive(t *testing.T) {
	assert := assert.New(t)

	alu, a, b := newTestAlu(t)
	alu.UpdateFlags = true

	for x := range 256 {
		for y := range 256 {
			*a = operand(x)
			*b = operand(y)

			alu.Subtract = false
			alu.Commit()
			if uint8(x+y) != alu.Output() || (x+y >= 256) != alu.Carry() {
				assert.Fail("add", "%d + %d", x, y)
				return
			}

			alu.Subtract = true
			alu.Commit()
			if uint8(x-y) != alu.Output() || (x >= y) != alu.Carry() {
				assert.Fail("sub", "%d - %d", x, y)
				return
			}
		}
	}
}

func TestAlu_FlagGating(t *testing.T) {
	assert := assert.New(t)

	alu, a, b := newTestAlu(t)

	*a = 0xff
	*b = 0x01
	alu.UpdateFlags = true
	alu.Commit()
	assert.True(alu.Carry())
	assert.True(alu.Zero())

	// Inputs change, flags hold while not updating.
	alu.UpdateFlags = false
	*a = 0x01
	alu.Commit()
	assert.Equal(uint8(0x02), alu.Output())
	assert.True(alu.Carry())
	assert.True(alu.Zero())

	alu.Subtract = true
	*b = 0x05
	alu.Commit()
	assert.True(alu.Carry())
	assert.True(alu.Zero())

	// Zero comes from the truncated result, not the extended sum.
	alu.UpdateFlags = true
	alu.Subtract = false
	*a = 0x01
	*b = 0x01
	alu.Commit()
	assert.False(alu.Carry())
	assert.False(alu.Zero())

	alu.Reset()
	assert.False(alu.Carry())
	assert.False(alu.Zero())
	assert.False(alu.UpdateFlags)
}

func FuzzAlu(f *testing.F) {
	f.Add(uint8(0), uint8(0), false)
	f.Add(uint8(0xff), uint8(0x01), false)
	f.Add(uint8(0x10), uint8(0x20), true)

	f.Fuzz(func(t *testing.T, x uint8, y uint8, subtract bool) {
		assert := assert.New(t)

		alu, a, b := newTestAlu(t)
		*a = operand(x)
		*b = operand(y)
		alu.Subtract = subtract
		alu.UpdateFlags = true
		alu.Commit()

		if subtract {
			assert.Equal(x-y, alu.Output())
			assert.Equal(x >= y, alu.Carry())
		} else {
			assert.Equal(x+y, alu.Output())
			assert.Equal(uint16(x)+uint16(y) >= 256, alu.Carry())
		}
		assert.Equal(alu.Output() == 0, alu.Zero())
	})
}

func TestAlu_Compute(t *testing.T) {
	assert := assert.New(t)

	alu, a, b := newTestAlu(t)
	*a = 7
	*b = 9

	assert.Equal(uint16(16), alu.Compute(false))
	assert.Equal(uint16(0xfe), alu.Compute(true))
	assert.False(alu.Subtract)
	assert.Equal(uint8(16), alu.Output())
}
