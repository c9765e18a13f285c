// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package memory implements the SAP-1 RAM: synchronous write, combinational
// read of the current address.
package memory

import (
	"errors"
	"slices"

	"github.com/ezrec/sap1/bus"
	"github.com/ezrec/sap1/translate"
)

var f = translate.From

var (
	ErrWidth     = errors.New(f("address width invalid"))
	ErrImageSize = errors.New(f("image larger than memory"))
)

// MAX_ADDRESS_WIDTH is the widest supported address bus.
const MAX_ADDRESS_WIDTH = 8

// Memory is a fixed depth byte array.
type Memory struct {
	AddressWidth int   // Address bus width; depth is 1 << AddressWidth.
	Address      uint8 // Current address, usually from the MAR.
	WriteEnable  bool  // Store DataIn at Address on commit.
	DataIn       uint8 // Data input, usually the bus.

	data []uint8
}

var _ bus.Source = (*Memory)(nil)
var _ bus.Sink = (*Memory)(nil)

// NewMemory creates a memory loaded with the program image.
func NewMemory(addressWidth int, image []byte) (mem *Memory, err error) {
	if addressWidth < 1 || addressWidth > MAX_ADDRESS_WIDTH {
		err = ErrWidth
		return
	}

	mem = &Memory{
		AddressWidth: addressWidth,
		data:         make([]uint8, 1<<addressWidth),
	}

	err = mem.Load(image)
	if err != nil {
		mem = nil
		return
	}

	return
}

// Depth returns the number of bytes in the memory.
func (mem *Memory) Depth() int {
	return len(mem.data)
}

// Load replaces the contents with the image, zero padded to the depth.
func (mem *Memory) Load(image []byte) (err error) {
	if len(image) > len(mem.data) {
		err = ErrImageSize
		return
	}

	clear(mem.data)
	copy(mem.data, image)

	return
}

// Contents returns a copy of the memory contents.
func (mem *Memory) Contents() []uint8 {
	return slices.Clone(mem.data)
}

func (mem *Memory) mask(address uint8) int {
	return int(address) & (len(mem.data) - 1)
}

// Read returns the byte at an address.
func (mem *Memory) Read(address uint8) uint8 {
	return mem.data[mem.mask(address)]
}

// Output returns the byte at the current address. A write pending on the
// same tick is not visible until after commit.
func (mem *Memory) Output() uint8 {
	return mem.Read(mem.Address)
}

// Latch sets the write-enable line and data input.
func (mem *Memory) Latch(enable bool, value uint8) {
	mem.WriteEnable = enable
	mem.DataIn = value
}

// Commit stores the data input at the current address if enabled.
func (mem *Memory) Commit() {
	if mem.WriteEnable {
		mem.data[mem.mask(mem.Address)] = mem.DataIn
	}
}

// Reset clears the control lines. Contents are preserved.
func (mem *Memory) Reset() {
	mem.Address = 0
	mem.WriteEnable = false
	mem.DataIn = 0
}
