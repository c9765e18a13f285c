// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package microcode holds the SAP-1 instruction set: the microinstruction
// record, the opcode table, and instruction byte encoding.
//
// Microinstructions name their bus driver and destinations symbolically;
// the control unit resolves the names against its port registry once, at
// construction.
package microcode

import (
	"cmp"
	"maps"
	"slices"
)

// Bus port names of the SAP-1 datapath.
const (
	PORT_A      = "a"              // Accumulator (source and sink).
	PORT_B      = "b"              // Register B (sink).
	PORT_PC     = "pc"             // Program counter (source and sink).
	PORT_IR     = "instruction"    // Instruction register (source and sink).
	PORT_MEMORY = "memory"         // RAM (source and sink).
	PORT_MAR    = "memory_address" // Memory address register (sink).
	PORT_OUTPUT = "output"         // Output register (sink).
	PORT_ALU    = "alu"            // ALU result (source).
	PORT_INPUT  = "input"          // Front panel switches (source).
)

// Sequencer geometry.
const (
	STEPS       = 5 // Steps per instruction, T0 to T4.
	FETCH_STEPS = 2 // T0 and T1 fetch the instruction.
	MAX_STEPS   = 3 // Execute steps per opcode, T2 to T4.
)

// Flag is a latched ALU flag.
type Flag int

//go:generate go tool stringer -linecomment -type=Flag
const (
	FLAG_CARRY = Flag(0) // carry_flag
	FLAG_ZERO  = Flag(1) // zero_flag
)

// Guard is a condition on a latched ALU flag.
type Guard struct {
	Flag  Flag
	Value bool
}

// Micro is one tick of bus transfer and control signal assertions.
type Micro struct {
	Src         string   // Bus driver, or empty for none.
	Dst         []string // Bus destinations.
	Subtract    bool     // ALU subtracts.
	UpdateFlags bool     // ALU latches flags.
	Count       bool     // Program counter increments.
	Halt        bool     // Control unit halts.

	// Conditional replaces this microinstruction with another when the
	// guard matches the latched flags.
	Conditional map[Guard]Micro
}

// Guards returns the conditional guards in evaluation order: by flag,
// then false before true.
func (mi Micro) Guards() []Guard {
	return slices.SortedFunc(maps.Keys(mi.Conditional), func(a, b Guard) int {
		if a.Flag != b.Flag {
			return cmp.Compare(a.Flag, b.Flag)
		}
		switch {
		case a.Value == b.Value:
			return 0
		case !a.Value:
			return -1
		default:
			return 1
		}
	})
}

// Mnemonic is a 4-bit opcode.
type Mnemonic int

//go:generate go tool stringer -linecomment -type=Mnemonic
const (
	NOP = Mnemonic(0x0) // NOP
	LDA = Mnemonic(0x1) // LDA
	ADD = Mnemonic(0x2) // ADD
	SUB = Mnemonic(0x3) // SUB
	STA = Mnemonic(0x4) // STA
	LDI = Mnemonic(0x5) // LDI
	JMP = Mnemonic(0x6) // JMP
	JZ  = Mnemonic(0x7) // JZ
	JC  = Mnemonic(0x8) // JC
	OUT = Mnemonic(0xe) // OUT
	HLT = Mnemonic(0xf) // HLT
)

// MAX_OPCODE is the largest encodable opcode.
const MAX_OPCODE = Mnemonic(0xf)

var mnemonics = []Mnemonic{NOP, LDA, ADD, SUB, STA, LDI, JMP, JZ, JC, OUT, HLT}

// Mnemonics returns all defined mnemonics in opcode order.
func Mnemonics() []Mnemonic {
	return slices.Clone(mnemonics)
}

// Defined returns true if the mnemonic is part of the instruction set.
func (mn Mnemonic) Defined() bool {
	return slices.Contains(mnemonics, mn)
}

// HasOperand returns true if the instruction uses its low nibble.
func (mn Mnemonic) HasOperand() bool {
	switch mn {
	case LDA, ADD, SUB, STA, LDI, JMP, JZ, JC:
		return true
	}
	return false
}

// Opcodes is the canonical microcode table. Steps are consumed on T2, T3
// and T4; missing steps are no-ops.
var Opcodes = map[Mnemonic][]Micro{
	NOP: {},
	LDA: {
		{Src: PORT_IR, Dst: []string{PORT_MAR}},
		{Src: PORT_MEMORY, Dst: []string{PORT_A}},
	},
	ADD: {
		{Src: PORT_IR, Dst: []string{PORT_MAR}},
		{Src: PORT_MEMORY, Dst: []string{PORT_B}},
		{Src: PORT_ALU, Dst: []string{PORT_A}, UpdateFlags: true},
	},
	SUB: {
		{Src: PORT_IR, Dst: []string{PORT_MAR}},
		{Src: PORT_MEMORY, Dst: []string{PORT_B}},
		{Src: PORT_ALU, Dst: []string{PORT_A}, Subtract: true, UpdateFlags: true},
	},
	STA: {
		{Src: PORT_IR, Dst: []string{PORT_MAR}},
		{Src: PORT_A, Dst: []string{PORT_MEMORY}},
	},
	LDI: {
		{Src: PORT_IR, Dst: []string{PORT_A}},
	},
	JMP: {
		{Src: PORT_IR, Dst: []string{PORT_PC}},
	},
	JZ: {
		{Conditional: map[Guard]Micro{
			{Flag: FLAG_ZERO, Value: true}: {Src: PORT_IR, Dst: []string{PORT_PC}},
		}},
	},
	JC: {
		{Conditional: map[Guard]Micro{
			{Flag: FLAG_CARRY, Value: true}: {Src: PORT_IR, Dst: []string{PORT_PC}},
		}},
	},
	OUT: {
		{Src: PORT_A, Dst: []string{PORT_OUTPUT}},
	},
	HLT: {
		{Halt: true},
	},
}
