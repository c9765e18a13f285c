// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/sap1/alu"
	"github.com/ezrec/sap1/bus"
	"github.com/ezrec/sap1/memory"
	"github.com/ezrec/sap1/microcode"
	"github.com/ezrec/sap1/register"
)

// Datapath geometry.
const (
	DATA_BUS_WIDTH    = 8                      // Width of the bus and data registers.
	ADDRESS_BUS_WIDTH = 4                      // Width of PC, MAR and the IR operand.
	MEMORY_SIZE       = 1 << ADDRESS_BUS_WIDTH // Bytes of RAM.
)

var _cpu_defines = map[string]string{
	"DATA_BUS_WIDTH":    fmt.Sprintf("%d", DATA_BUS_WIDTH),
	"ADDRESS_BUS_WIDTH": fmt.Sprintf("%d", ADDRESS_BUS_WIDTH),
	"MEMORY_SIZE":       fmt.Sprintf("%d", MEMORY_SIZE),
}

// State is the run state of the control unit.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
)

// Part is a clocked component of the datapath.
type Part interface {
	Commit() // Apply the latch rule for this tick.
	Reset()  // Return to the power-on state.
}

// control is a resolved microinstruction.
type control struct {
	driver      bus.Port
	sinks       bus.Mask
	subtract    bool
	updateFlags bool
	countPC     bool
	countMAR    bool
	halt        bool
	guards      []guarded
}

type guarded struct {
	guard microcode.Guard
	then  *control
}

var idle = control{driver: bus.PORT_NONE}

// Override is the front panel programming interface. While Programming is
// asserted the microcode is ignored, the sequencer is held at T0, and the
// bus and counters are driven from the override only.
type Override struct {
	Programming bool     // Programming mode.
	Source      string   // Bus driver, or empty for none.
	Dest        []string // Bus destinations.
	CountPC     bool     // Increment the program counter.
	CountMAR    bool     // Increment the memory address register.
	ClearHalt   bool     // Return a halted machine to running.
}

// Signals is a snapshot of the control lines for the current tick.
type Signals struct {
	Step        int
	State       State
	Code        microcode.Code // Instruction register contents.
	Driver      string         // Bus driver name, or empty.
	Sinks       []string       // Bus destination names.
	Bus         uint8          // Bus value.
	Subtract    bool
	UpdateFlags bool
	CountPC     bool
	CountMAR    bool
	Halt        bool
}

// Cpu is the simulation context for the SAP-1.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Bus    *bus.Arbiter       // Shared data bus.
	A      *register.Register // Accumulator.
	B      *register.Register // ALU second operand.
	Out    *register.Register // Output register.
	PC     *register.Counter  // Program counter.
	MAR    *register.Counter  // Memory address register.
	IR     *register.Partial  // Instruction register.
	In     *register.Input    // Front panel switches.
	Alu    *alu.ALU           // Adder/subtractor.
	Memory *memory.Memory     // RAM.

	Step  int   // Sequencer step, T0 to T4.
	State State // Running or halted.
	Ticks int   // Ticks since reset.

	parts    []Part
	fetch    [microcode.FETCH_STEPS]control
	table    [microcode.MAX_OPCODE + 1][microcode.MAX_STEPS]control
	override Override
	manual   control

	memoryPort bus.Port // Sources with combinational inputs.
	aluPort    bus.Port
}

// NewCpu creates a SAP-1 loaded with a program image, using the canonical
// microcode.
func NewCpu(image []byte) (cpu *Cpu, err error) {
	return NewCpuTable(image, microcode.Opcodes)
}

// NewCpuTable creates a SAP-1 loaded with a program image, using an
// alternative microcode table. All port and flag references in the table
// are validated here.
func NewCpuTable(image []byte, opcodes map[microcode.Mnemonic][]microcode.Micro) (cpu *Cpu, err error) {
	cp := &Cpu{}

	err = cp.build(image)
	if err != nil {
		return
	}

	err = cp.compileTable(opcodes)
	if err != nil {
		return
	}

	cp.manual = idle
	cp.Reset()

	cpu = cp
	return
}

// build creates the datapath components and registers the bus ports.
func (cpu *Cpu) build(image []byte) (err error) {
	var errs []error
	keep := func(e error) {
		if e != nil {
			errs = append(errs, e)
		}
	}

	var e error
	cpu.Bus, e = bus.NewArbiter(DATA_BUS_WIDTH)
	keep(e)
	cpu.A, e = register.NewRegister(DATA_BUS_WIDTH)
	keep(e)
	cpu.B, e = register.NewRegister(DATA_BUS_WIDTH)
	keep(e)
	cpu.Out, e = register.NewRegister(DATA_BUS_WIDTH)
	keep(e)
	cpu.PC, e = register.NewCounter(ADDRESS_BUS_WIDTH)
	keep(e)
	cpu.MAR, e = register.NewCounter(ADDRESS_BUS_WIDTH)
	keep(e)
	cpu.IR, e = register.NewPartial(DATA_BUS_WIDTH, ADDRESS_BUS_WIDTH)
	keep(e)
	cpu.Memory, e = memory.NewMemory(ADDRESS_BUS_WIDTH, image)
	keep(e)
	cpu.In = &register.Input{}

	err = errors.Join(errs...)
	if err != nil {
		return
	}

	cpu.Alu, err = alu.NewAlu(DATA_BUS_WIDTH, cpu.A, cpu.B)
	if err != nil {
		return
	}

	sources := []struct {
		name   string
		source bus.Source
	}{
		{microcode.PORT_A, cpu.A},
		{microcode.PORT_PC, cpu.PC},
		{microcode.PORT_IR, cpu.IR},
		{microcode.PORT_MEMORY, cpu.Memory},
		{microcode.PORT_ALU, cpu.Alu},
		{microcode.PORT_INPUT, cpu.In},
	}
	for _, src := range sources {
		var port bus.Port
		port, err = cpu.Bus.AddSource(src.name, src.source)
		if err != nil {
			return
		}
		switch src.name {
		case microcode.PORT_MEMORY:
			cpu.memoryPort = port
		case microcode.PORT_ALU:
			cpu.aluPort = port
		}
	}

	sinks := []struct {
		name string
		sink bus.Sink
	}{
		{microcode.PORT_A, cpu.A},
		{microcode.PORT_PC, cpu.PC},
		{microcode.PORT_IR, cpu.IR},
		{microcode.PORT_MEMORY, cpu.Memory},
		{microcode.PORT_B, cpu.B},
		{microcode.PORT_MAR, cpu.MAR},
		{microcode.PORT_OUTPUT, cpu.Out},
	}
	for _, snk := range sinks {
		_, err = cpu.Bus.AddSink(snk.name, snk.sink)
		if err != nil {
			return
		}
	}

	// The ALU samples its operands before they commit.
	cpu.parts = []Part{
		cpu.Alu,
		cpu.A, cpu.B, cpu.Out,
		cpu.PC, cpu.MAR, cpu.IR, cpu.In,
		cpu.Memory,
	}

	return
}

// compileTable resolves the fetch steps and the opcode table.
func (cpu *Cpu) compileTable(opcodes map[microcode.Mnemonic][]microcode.Micro) (err error) {
	fetch := [microcode.FETCH_STEPS]microcode.Micro{
		{Src: microcode.PORT_PC, Dst: []string{microcode.PORT_MAR}},
		{Src: microcode.PORT_MEMORY, Dst: []string{microcode.PORT_IR}, Count: true},
	}
	for n, mi := range fetch {
		cpu.fetch[n], err = cpu.compile(mi)
		if err != nil {
			err = &ErrMicrocode{Opcode: microcode.NOP, Step: n, Err: err}
			return
		}
	}

	for op := range cpu.table {
		for step := range cpu.table[op] {
			cpu.table[op][step] = idle
		}
	}

	for mn, steps := range opcodes {
		if mn < 0 || mn > microcode.MAX_OPCODE {
			err = &ErrMicrocode{Opcode: mn, Step: microcode.FETCH_STEPS, Err: ErrOpcodeRange}
			return
		}
		if len(steps) > microcode.MAX_STEPS {
			err = &ErrMicrocode{Opcode: mn, Step: microcode.FETCH_STEPS + microcode.MAX_STEPS, Err: ErrMicrocodeSteps}
			return
		}
		for n, mi := range steps {
			cpu.table[mn][n], err = cpu.compile(mi)
			if err != nil {
				err = &ErrMicrocode{Opcode: mn, Step: microcode.FETCH_STEPS + n, Err: err}
				return
			}
		}
	}

	return
}

// compile resolves one microinstruction against the port registry.
func (cpu *Cpu) compile(mi microcode.Micro) (ctl control, err error) {
	ctl = control{
		subtract:    mi.Subtract,
		updateFlags: mi.UpdateFlags,
		countPC:     mi.Count,
		halt:        mi.Halt,
	}

	ctl.driver, err = cpu.Bus.SourcePort(mi.Src)
	if err != nil {
		return
	}

	ctl.sinks, err = cpu.Bus.SinkMask(mi.Dst...)
	if err != nil {
		return
	}

	for _, guard := range mi.Guards() {
		switch guard.Flag {
		case microcode.FLAG_CARRY, microcode.FLAG_ZERO:
		default:
			err = fmt.Errorf("%w: %v", ErrFlagUnknown, guard.Flag)
			return
		}

		nested := mi.Conditional[guard]
		if len(mi.Src) != 0 && len(nested.Src) != 0 && mi.Src != nested.Src {
			err = fmt.Errorf("%w: %v and %v", ErrMultipleDrivers, mi.Src, nested.Src)
			return
		}

		var then control
		then, err = cpu.compile(nested)
		if err != nil {
			return
		}
		ctl.guards = append(ctl.guards, guarded{guard: guard, then: &then})
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// flag returns the latched value of an ALU flag.
func (cpu *Cpu) flag(fl microcode.Flag) bool {
	switch fl {
	case microcode.FLAG_CARRY:
		return cpu.Alu.Carry()
	case microcode.FLAG_ZERO:
		return cpu.Alu.Zero()
	}
	return false
}

// resolve applies the first matching conditional, recursively.
func (cpu *Cpu) resolve(ctl control) control {
	for _, g := range ctl.guards {
		if cpu.flag(g.guard.Flag) == g.guard.Value {
			return cpu.resolve(*g.then)
		}
	}
	return ctl
}

// decode returns the control for the current step. It depends only on
// latched state and the override inputs.
func (cpu *Cpu) decode() control {
	switch {
	case cpu.override.Programming:
		return cpu.manual
	case cpu.State == STATE_HALTED:
		return idle
	case cpu.Step < microcode.FETCH_STEPS:
		return cpu.fetch[cpu.Step]
	}

	opcode := cpu.IR.Full() >> (DATA_BUS_WIDTH - 4)
	return cpu.resolve(cpu.table[opcode][cpu.Step-microcode.FETCH_STEPS])
}

// settle drives every combinational line for the current tick: control
// signals, the memory address, the bus selection and the sink inputs.
// Latched state is never modified.
func (cpu *Cpu) settle() (ctl control) {
	ctl = cpu.decode()

	cpu.Memory.Address = cpu.MAR.Output()
	cpu.Alu.Subtract = ctl.subtract
	cpu.Alu.UpdateFlags = ctl.updateFlags
	cpu.PC.CountEnable = ctl.countPC
	cpu.MAR.CountEnable = ctl.countMAR

	cpu.Bus.Drive(ctl.driver)
	cpu.Bus.Deliver(ctl.sinks)
	cpu.Bus.Propagate()

	return
}

// Tick advances the machine by one clock.
func (cpu *Cpu) Tick() {
	ctl := cpu.settle()

	if cpu.Verbose {
		log.Printf("cpu: T%d %v: %v -> %v 0x%02x",
			cpu.Step, microcode.Code(cpu.IR.Full()),
			cpu.Bus.Driver(), cpu.Bus.Sinks(), cpu.Bus.Read())
	}

	for _, part := range cpu.parts {
		part.Commit()
	}

	halted := cpu.State == STATE_HALTED
	if ctl.halt {
		cpu.State = STATE_HALTED
		if cpu.Verbose {
			log.Printf("cpu: halt")
		}
	}

	switch {
	case cpu.override.Programming:
		cpu.Step = 0
		if cpu.override.ClearHalt {
			cpu.State = STATE_RUNNING
		}
	case halted:
		// Frozen.
	case cpu.Step == microcode.STEPS-1:
		cpu.Step = 0
	default:
		cpu.Step++
	}

	cpu.Ticks++
}

// Reset the CPU state.
// - Clears every register and the ALU flags.
// - Returns the sequencer to T0, running.
// - Zeros the tick counter.
// Memory contents and the input switches are preserved.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	for _, part := range cpu.parts {
		part.Reset()
	}

	cpu.Step = 0
	cpu.State = STATE_RUNNING
	cpu.Ticks = 0
	cpu.Bus.Idle()
}

// SetOverride sets the front panel override inputs. Port names are
// validated here, never at tick time.
func (cpu *Cpu) SetOverride(ov Override) (err error) {
	manual := control{
		countPC:  ov.CountPC,
		countMAR: ov.CountMAR,
	}

	manual.driver, err = cpu.Bus.SourcePort(ov.Source)
	if err != nil {
		return
	}

	manual.sinks, err = cpu.Bus.SinkMask(ov.Dest...)
	if err != nil {
		return
	}

	cpu.override = ov
	cpu.manual = manual

	return
}

// SetInput sets the front panel switches.
func (cpu *Cpu) SetInput(value uint8) {
	cpu.In.Value = value
}

// Halted returns true if the control unit is halted.
func (cpu *Cpu) Halted() bool {
	return cpu.State == STATE_HALTED
}

// Carry returns the latched carry flag.
func (cpu *Cpu) Carry() bool {
	return cpu.Alu.Carry()
}

// Zero returns the latched zero flag.
func (cpu *Cpu) Zero() bool {
	return cpu.Alu.Zero()
}

// ProgramCounter returns the program counter.
func (cpu *Cpu) ProgramCounter() uint8 {
	return cpu.PC.Output()
}

// Accumulator returns register A.
func (cpu *Cpu) Accumulator() uint8 {
	return cpu.A.Output()
}

// Display returns the output register.
func (cpu *Cpu) Display() uint8 {
	return cpu.Out.Output()
}

// BusValue returns the bus value of the current tick.
func (cpu *Cpu) BusValue() uint8 {
	return cpu.Signals().Bus
}

// Driver returns the bus driver of the current tick, or the empty string.
func (cpu *Cpu) Driver() string {
	return cpu.Signals().Driver
}

// Sinks returns the bus destinations of the current tick.
func (cpu *Cpu) Sinks() []string {
	return cpu.Signals().Sinks
}

// peek returns the bus value for a control, reading the memory and ALU
// from their inputs rather than their combinational lines.
func (cpu *Cpu) peek(ctl control) uint8 {
	switch ctl.driver {
	case bus.PORT_NONE:
		return 0
	case cpu.memoryPort:
		return cpu.Memory.Read(cpu.MAR.Output())
	case cpu.aluPort:
		return uint8(cpu.Alu.Compute(ctl.subtract))
	}

	return cpu.Bus.Peek(ctl.driver)
}

// Signals returns the control lines and bus transfer of the current tick,
// without advancing the machine. No component line is modified.
func (cpu *Cpu) Signals() (sig Signals) {
	ctl := cpu.decode()

	sig = Signals{
		Step:        cpu.Step,
		State:       cpu.State,
		Code:        microcode.Code(cpu.IR.Full()),
		Driver:      cpu.Bus.SourceName(ctl.driver),
		Sinks:       cpu.Bus.MaskNames(ctl.sinks),
		Bus:         cpu.peek(ctl),
		Subtract:    ctl.subtract,
		UpdateFlags: ctl.updateFlags,
		CountPC:     ctl.countPC,
		CountMAR:    ctl.countMAR,
		Halt:        ctl.halt,
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	sig := cpu.Signals()

	regs := []string{
		"pc", "mar", "ir", "a", "b", "out",
		"step", "state", "flags", "bus",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%X", cpu.PC.Output())
		case "mar":
			strval = fmt.Sprintf("%X", cpu.MAR.Output())
		case "ir":
			strval = fmt.Sprintf("%02X (%v)", cpu.IR.Full(), sig.Code)
		case "a":
			strval = fmt.Sprintf("%02X", cpu.A.Output())
		case "b":
			strval = fmt.Sprintf("%02X", cpu.B.Output())
		case "out":
			strval = fmt.Sprintf("%02X (%d)", cpu.Out.Output(), cpu.Out.Output())
		case "step":
			strval = fmt.Sprintf("T%d", cpu.Step)
		case "state":
			strval = cpu.State.String()
		case "flags":
			strval = "c- z-"
			if cpu.Carry() {
				strval = "c+" + strval[2:]
			}
			if cpu.Zero() {
				strval = strval[:3] + "z+"
			}
		case "bus":
			driver := sig.Driver
			if len(driver) == 0 {
				driver = "-"
			}
			strval = fmt.Sprintf("%02X %v -> %v", sig.Bus, driver, strings.Join(sig.Sinks, ","))
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}
