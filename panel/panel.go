// Package panel implements the front panel programming controller. It
// drives the CPU override lines so that a program can be keyed into
// memory, one byte at a time, from the input switches.
package panel

import (
	"log"

	"github.com/ezrec/sap1/cpu"
	"github.com/ezrec/sap1/microcode"
)

// Machine is the CPU interface the panel drives.
type Machine interface {
	SetOverride(ov cpu.Override) error
	SetInput(value uint8)
	Tick()
	Reset()
}

var _ Machine = (*cpu.Cpu)(nil)

// Panel is the programming controller state.
type Panel struct {
	Verbose bool    // Set to log panel actions.
	Machine Machine // Machine being programmed.

	programming bool
	switches    uint8
}

// NewPanel creates a panel in run mode.
func NewPanel(machine Machine) (pn *Panel) {
	pn = &Panel{
		Machine: machine,
	}

	return
}

// Programming returns true while in programming mode.
func (pn *Panel) Programming() bool {
	return pn.programming
}

// Switches returns the input switch setting.
func (pn *Panel) Switches() uint8 {
	return pn.switches
}

// SetSwitches sets the input switches.
func (pn *Panel) SetSwitches(value uint8) {
	pn.switches = value
	pn.Machine.SetInput(value)
}

// pulse sets the override lines and ticks the machine once.
func (pn *Panel) pulse(ov cpu.Override) (err error) {
	err = pn.Machine.SetOverride(ov)
	if err != nil {
		return
	}

	pn.Machine.Tick()

	return
}

// Mode toggles programming mode. Entering programming mode clears the halt
// and loads the memory address register from the program counter, so
// keying starts at the current address. Leaving it resets the machine to
// run from address zero.
func (pn *Panel) Mode() (err error) {
	pn.programming = !pn.programming

	if pn.Verbose {
		log.Printf("panel: programming %v", pn.programming)
	}

	if !pn.programming {
		pn.Machine.Reset()
		err = pn.Machine.SetOverride(cpu.Override{})
		return
	}

	err = pn.pulse(cpu.Override{
		Programming: true,
		Source:      microcode.PORT_PC,
		Dest:        []string{microcode.PORT_MAR},
		ClearHalt:   true,
	})

	return
}

// Next advances the program counter and memory address register. It does
// nothing outside of programming mode.
func (pn *Panel) Next() (err error) {
	if !pn.programming {
		return
	}

	err = pn.pulse(cpu.Override{
		Programming: true,
		CountPC:     true,
		CountMAR:    true,
	})

	return
}

// Write stores the input switches at the memory address register, and
// advances to the next address. It does nothing outside of programming
// mode.
func (pn *Panel) Write() (err error) {
	if !pn.programming {
		return
	}

	if pn.Verbose {
		log.Printf("panel: write 0x%02x", pn.switches)
	}

	pn.Machine.SetInput(pn.switches)
	err = pn.pulse(cpu.Override{
		Programming: true,
		Source:      microcode.PORT_INPUT,
		Dest:        []string{microcode.PORT_MEMORY},
		CountPC:     true,
		CountMAR:    true,
	})

	return
}
