// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ezrec/sap1/clock"
	"github.com/ezrec/sap1/cpu"
	"github.com/ezrec/sap1/emulator"
)

func main() {
	var compile string
	var binary string
	var list bool
	var verbose bool
	var interactive bool
	var limit int
	var waitBits int

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&binary, "b", "", "raw memory image to load")
	flag.BoolVar(&list, "l", false, "List the program, do not execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&interactive, "i", false, "Interactive front panel")
	flag.IntVar(&limit, "n", emulator.TICK_LIMIT, "Tick limit for batch runs, 0 for none")
	flag.IntVar(&waitBits, "w", clock.WAIT_BITS, "Clock wait counter bits")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(compile) != 0 && len(binary) != 0 {
		log.Fatalf("%v: -c and -b are exclusive", os.Args[0])
	}

	emu, err := emulator.NewEmulator()
	if err != nil {
		log.Fatal(err)
	}
	emu.Verbose = verbose
	emu.TickLimit = limit

	prog := &cpu.Program{}

	// Compile a new program.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	// Load a raw image.
	if len(binary) != 0 {
		image, err := os.ReadFile(binary)
		if err != nil {
			log.Fatalf("%v: %v", binary, err)
		}
		prog = cpu.NewProgram(image)
	}

	if list {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				fmt.Printf("%X: %02X  %v\n", op.Address+n, uint8(code), code)
			}
		}
		return
	}

	emu.Program = prog
	err = emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	if interactive {
		emu.TickLimit = 0
		emu.Clock, err = clock.NewClock(waitBits)
		if err != nil {
			log.Fatal(err)
		}
		err = monitor(emu)
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	emu.Display = os.Stdout
	err = emu.Run()
	if err != nil {
		log.Fatal(err)
	}
}
