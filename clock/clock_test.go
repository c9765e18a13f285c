package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// count runs the clock for a number of cycles, and returns the ticks.
func count(clk *Clock, cycles int) (ticks int) {
	for range cycles {
		tick, reset := clk.Cycle(false, false)
		if reset {
			panic("unexpected reset")
		}
		if tick {
			ticks++
		}
	}
	return
}

func TestNewClock(t *testing.T) {
	assert := assert.New(t)

	clk, err := NewClock(WAIT_BITS)
	assert.NoError(err)
	assert.Equal(0, clk.RunSpeed())

	_, err = NewClock(0)
	assert.ErrorIs(err, ErrWaitBits)

	_, err = NewClock(MAX_WAIT_BITS + 1)
	assert.ErrorIs(err, ErrWaitBits)
}

func TestClockSingleStep(t *testing.T) {
	assert := assert.New(t)

	clk, err := NewClock(4)
	assert.NoError(err)

	assert.Equal(0, count(clk, 100))

	clk.Slow()
	tick, reset := clk.Cycle(false, false)
	assert.True(tick)
	assert.False(reset)

	// One press, one tick.
	assert.Equal(0, count(clk, 100))
}

func TestClockRun(t *testing.T) {
	assert := assert.New(t)

	clk, err := NewClock(4)
	assert.NoError(err)

	clk.Fast()
	tick, _ := clk.Cycle(false, false)
	assert.False(tick)
	assert.Equal(1, clk.RunSpeed())

	// Speed 1: fifteen cycles of wait, then a tick and a pulse cycle.
	assert.Equal(0, count(clk, 14))
	tick, _ = clk.Cycle(false, false)
	assert.True(tick)
	assert.Equal(0, count(clk, 15))
	tick, _ = clk.Cycle(false, false)
	assert.True(tick)
	assert.Equal(10, count(clk, 160))
}

func TestClockSpeed(t *testing.T) {
	assert := assert.New(t)

	clk, err := NewClock(4)
	assert.NoError(err)

	for speed := 1; speed <= MAX_RUN_SPEED+2; speed++ {
		clk.Fast()
		clk.Cycle(false, false)
		assert.Equal(min(speed, MAX_RUN_SPEED), clk.RunSpeed())
	}

	// Progress exceeds the wait: a tick every other cycle.
	count(clk, 1)
	assert.Equal(50, count(clk, 100))

	clk.Slow()
	clk.Cycle(false, false)
	assert.Equal(0, clk.RunSpeed())
	assert.Equal(0, count(clk, 100))
}

func TestClockHalted(t *testing.T) {
	assert := assert.New(t)

	clk, err := NewClock(4)
	assert.NoError(err)

	clk.Fast()
	clk.Cycle(false, false)
	clk.Fast()
	clk.Cycle(false, false)
	assert.Equal(2, clk.RunSpeed())

	tick, reset := clk.Cycle(true, false)
	assert.False(tick)
	assert.False(reset)
	assert.Equal(0, clk.RunSpeed())

	clk.Slow()
	tick, reset = clk.Cycle(true, false)
	assert.False(tick)
	assert.False(reset)

	clk.Fast()
	tick, reset = clk.Cycle(true, false)
	assert.False(tick)
	assert.True(reset)
	assert.Equal(0, clk.RunSpeed())
}

func TestClockHold(t *testing.T) {
	assert := assert.New(t)

	clk, err := NewClock(1)
	assert.NoError(err)

	clk.Slow()
	tick, reset := clk.Cycle(false, true)
	assert.False(tick)
	assert.False(reset)

	// Buttons are still consumed while held.
	clk.Fast()
	clk.Cycle(false, true)
	assert.Equal(1, clk.RunSpeed())
	for range 4 {
		tick, _ = clk.Cycle(false, true)
		assert.False(tick)
	}

	clk.Fast()
	tick, reset = clk.Cycle(true, true)
	assert.False(tick)
	assert.False(reset)
	assert.Equal(0, clk.RunSpeed())

	// Released, the slow button steps again.
	clk.Slow()
	tick, _ = clk.Cycle(false, false)
	assert.True(tick)
}
