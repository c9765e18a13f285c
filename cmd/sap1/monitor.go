package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ezrec/sap1/emulator"
	"github.com/ezrec/sap1/translate"
)

var f = translate.From

var ErrNotTerminal = errors.New(f("interactive mode needs a terminal"))

const monitorHelp = `keys:
  space   slow: single step, or drop to single step
  +       fast: speed up, or reset when halted
  p       programming mode toggle
  0-9a-f  shift a hex digit into the input switches
  w       write switches to memory (programming mode)
  n       next address (programming mode)
  ?       show state
  q       quit
`

// rawWriter translates newlines for a terminal in raw mode.
type rawWriter struct {
	io.Writer
}

func (rw *rawWriter) Write(data []byte) (n int, err error) {
	_, err = io.WriteString(rw.Writer, strings.ReplaceAll(string(data), "\n", "\r\n"))
	if err != nil {
		return
	}
	n = len(data)
	return
}

// monitor runs the front panel from the keyboard.
func monitor(emu *emulator.Emulator) (err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		err = ErrNotTerminal
		return
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}
	defer term.Restore(fd, state)

	keys := make(chan byte)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n > 0 {
				keys <- buf[0]
			}
		}
	}()

	out := &rawWriter{Writer: os.Stdout}
	emu.Display = out

	fmt.Fprint(out, monitorHelp)

	show := func() {
		mode := "run"
		if emu.Panel.Programming() {
			mode = "program"
		}
		fmt.Fprintf(out, "%v switches: %02X speed: %d\n%v",
			mode, emu.Panel.Switches(), emu.Clock.RunSpeed(), emu.Cpu.String())
	}

	for {
		var key byte
		ok := true

		idle := emu.Panel.Programming() || emu.Halted() || emu.Clock.RunSpeed() == 0
		if idle {
			key, ok = <-keys
		} else {
			select {
			case key, ok = <-keys:
			default:
			}
		}
		if !ok {
			return
		}

		switch {
		case key == 'q' || key == 3:
			return
		case key == ' ':
			emu.Clock.Slow()
		case key == '+':
			emu.Clock.Fast()
		case key == 'p':
			err = emu.Panel.Mode()
			show()
		case key == 'w':
			err = emu.Panel.Write()
			show()
		case key == 'n':
			err = emu.Panel.Next()
			show()
		case key >= '0' && key <= '9':
			emu.Panel.SetSwitches(emu.Panel.Switches()<<4 | (key - '0'))
			show()
		case key >= 'a' && key <= 'f':
			emu.Panel.SetSwitches(emu.Panel.Switches()<<4 | (key - 'a' + 10))
			show()
		case key == '?':
			show()
		}
		if err != nil {
			return
		}

		var ticked bool
		ticked, err = emu.Cycle()
		if err != nil {
			return
		}
		if ticked && emu.Clock.RunSpeed() == 0 {
			show()
		}
	}
}
