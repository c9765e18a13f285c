// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"slices"

	"github.com/ezrec/sap1/clock"
	"github.com/ezrec/sap1/cpu"
	"github.com/ezrec/sap1/internal"
	"github.com/ezrec/sap1/microcode"
	"github.com/ezrec/sap1/panel"
)

const (
	TICK_LIMIT = 1 << 16 // Default tick limit for a run.
)

var _emulator_defines = map[string]string{
	"TICK_LIMIT": fmt.Sprintf("%v", TICK_LIMIT),
}

// Emulator state. CPU + program listing + front panel.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program listing.

	Clock   *clock.Clock // Run speed controller, for Cycle.
	Panel   *panel.Panel // Programming controller.
	Display io.Writer    // If set, receives each output register value.

	TickLimit int // Ticks allowed after a reset; zero is unlimited.

	address uint8 // Address of the executing instruction.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator, err error) {
	cp, err := cpu.NewCpu(nil)
	if err != nil {
		return
	}

	clk, err := clock.NewClock(clock.WAIT_BITS)
	if err != nil {
		return
	}

	emu = &Emulator{
		Cpu:       cp,
		Program:   &cpu.Program{},
		Clock:     clk,
		Panel:     panel.NewPanel(cp),
		TickLimit: TICK_LIMIT,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset loads the program image into memory, and resets the CPU.
func (emu *Emulator) Reset() (err error) {
	err = emu.Cpu.Memory.Load(emu.Program.Image())
	if err != nil {
		return
	}

	emu.Cpu.Verbose = emu.Verbose
	emu.Clock.Verbose = emu.Verbose
	emu.Panel.Verbose = emu.Verbose

	emu.Cpu.Reset()
	emu.address = 0

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Address returns the address of the executing instruction.
func (emu *Emulator) Address() uint8 {
	return emu.address
}

// Code returns the executing instruction.
func (emu *Emulator) Code() microcode.Code {
	return microcode.Code(emu.Cpu.Memory.Read(emu.address))
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.address)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator. Done is set once the CPU
// has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.Halted() {
		done = true
		return
	}

	if emu.Cpu.Step == 0 {
		emu.address = emu.Cpu.ProgramCounter()
	}

	if emu.TickLimit > 0 && emu.Cpu.Ticks >= emu.TickLimit {
		err = &ErrRuntime{Address: emu.address, LineNo: emu.LineNo(), Err: ErrTickLimit}
		return
	}

	sig := emu.Cpu.Signals()

	emu.Cpu.Tick()

	if slices.Contains(sig.Sinks, microcode.PORT_OUTPUT) {
		if emu.Verbose {
			log.Printf("emulator: line %d output %d", emu.LineNo(), emu.Cpu.Display())
		}
		if emu.Display != nil {
			_, err = fmt.Fprintf(emu.Display, "%d\n", emu.Cpu.Display())
			if err != nil {
				return
			}
		}
	}

	done = emu.Cpu.Halted()

	return
}

// Run ticks the emulator until the CPU halts.
func (emu *Emulator) Run() (err error) {
	for done := false; !done; {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// Cycle advances the run speed controller by one board cycle, ticking or
// resetting the CPU as it directs. Reset clears the CPU but keeps memory.
// In programming mode only the panel clocks the CPU.
func (emu *Emulator) Cycle() (ticked bool, err error) {
	tick, reset := emu.Clock.Cycle(emu.Cpu.Halted(), emu.Panel.Programming())

	if reset {
		emu.Cpu.Reset()
		emu.address = 0
	}

	if tick {
		ticked = true
		_, err = emu.Tick()
	}

	return
}
