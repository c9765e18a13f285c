// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package clock implements the front panel clock controller: a run speed
// selector with a single step mode, driven by two buttons.
//
// The controller is cycled at the board clock rate. At run speed N the CPU
// is ticked once every MAX_WAIT / 2^(N-1) board cycles, plus one cycle for
// the clock pulse itself. At speed zero the CPU ticks once per Slow press.
package clock

import (
	"errors"
	"log"

	"github.com/ezrec/sap1/translate"
)

var f = translate.From

var (
	ErrWaitBits = errors.New(f("wait bits invalid"))
)

const (
	SPEED_BITS    = 5                     // Width of the run speed.
	MAX_RUN_SPEED = (1 << SPEED_BITS) - 1 // Fastest run speed.
	WAIT_BITS     = 25                    // Default width of the wait counter.
	MAX_WAIT_BITS = 62                    // Widest supported wait counter.
)

// Clock is the run speed controller.
type Clock struct {
	Verbose  bool // Set to log speed changes.
	WaitBits int  // Width of the wait counter.

	speed int
	wait  int
	pulse bool
	slow  bool
	fast  bool
}

// NewClock creates a clock controller in single step mode.
func NewClock(waitBits int) (clk *Clock, err error) {
	if waitBits < 1 || waitBits > MAX_WAIT_BITS {
		err = ErrWaitBits
		return
	}

	clk = &Clock{WaitBits: waitBits}
	clk.wait = clk.maxWait()

	return
}

func (clk *Clock) maxWait() int {
	return (1 << clk.WaitBits) - 1
}

// Slow presses the slow button: single step, or step once.
func (clk *Clock) Slow() {
	clk.slow = true
}

// Fast presses the fast button: speed up, or reset when halted.
func (clk *Clock) Fast() {
	clk.fast = true
}

// RunSpeed returns the current run speed. Zero is single step mode.
func (clk *Clock) RunSpeed() int {
	return clk.speed
}

// Cycle advances the controller by one board cycle, consuming any button
// presses. It returns whether the CPU should tick this cycle, and whether
// the CPU should be reset. While hold is asserted the controller keeps
// counting, but never ticks or resets the CPU; the programming panel
// clocks it instead.
func (clk *Clock) Cycle(halted bool, hold bool) (tick bool, reset bool) {
	tick, reset = clk.advance(halted)
	if hold {
		tick, reset = false, false
	}

	return
}

func (clk *Clock) advance(halted bool) (tick bool, reset bool) {
	slow, fast := clk.slow, clk.fast
	clk.slow, clk.fast = false, false

	switch {
	case halted:
		clk.setSpeed(0)
		clk.wait = clk.maxWait()
		clk.pulse = false
		reset = fast
	case clk.speed == 0:
		clk.wait = clk.maxWait()
		tick = slow
		if fast {
			clk.setSpeed(1)
		}
	default:
		progress := (1 << clk.speed) >> 1
		switch {
		case clk.pulse:
			clk.pulse = false
		case clk.wait > progress:
			clk.wait -= progress
		default:
			tick = true
			clk.pulse = true
			clk.wait = clk.maxWait()
		}

		if slow {
			clk.setSpeed(0)
			clk.wait = clk.maxWait()
		}

		if fast && clk.speed < MAX_RUN_SPEED {
			clk.setSpeed(clk.speed + 1)
		}
	}

	return
}

func (clk *Clock) setSpeed(speed int) {
	if speed != clk.speed && clk.Verbose {
		log.Printf("clock: speed %d", speed)
	}
	clk.speed = speed
}
