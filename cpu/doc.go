// Package cpu implements the SAP-1 control unit and datapath, and the
// assembler for its instruction set.
//
// The datapath is a single 8-bit bus shared by the accumulator (A),
// register B, the output register, a 4-bit program counter (PC), a 4-bit
// memory address register (MAR), the instruction register (IR), the ALU,
// 16 bytes of RAM and the front panel input switches. The control unit
// sequences five steps per instruction: T0 and T1 fetch, T2 to T4 execute
// the microcode for the fetched opcode.
//
// Every tick is evaluated in two phases. The settle phase computes the
// control signals and the bus value from latched state only; the commit
// phase then latches every component at once.
//
// The assembler accepts one instruction per line, with labels, equates,
// macros, and compile-time $(...) expressions.
package cpu
