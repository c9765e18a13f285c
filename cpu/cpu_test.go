package cpu

import (
	"errors"
	"maps"
	"strings"
	"testing"

	"github.com/ezrec/sap1/bus"
	"github.com/ezrec/sap1/memory"
	"github.com/ezrec/sap1/microcode"
	"github.com/stretchr/testify/assert"
)

// runUntilHalt ticks until the CPU halts, or the limit is reached.
func runUntilHalt(cpu *Cpu, limit int) (ticks int) {
	for ticks = 0; ticks < limit && !cpu.Halted(); ticks++ {
		cpu.Tick()
	}
	return
}

func TestCpuAdd(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu([]byte{0x14, 0x25, 0xe0, 0xf0, 28, 14})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	for range 5 {
		cpu.Tick()
	}
	assert.Equal(uint8(28), cpu.Accumulator())

	for range 5 {
		cpu.Tick()
	}
	assert.Equal(uint8(42), cpu.Accumulator())
	assert.False(cpu.Carry())
	assert.False(cpu.Zero())

	for range 5 {
		cpu.Tick()
	}
	assert.Equal(uint8(42), cpu.Display())
	assert.False(cpu.Halted())

	for range 3 {
		cpu.Tick()
	}
	assert.True(cpu.Halted())
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(18, cpu.Ticks)
	assert.Equal(3, cpu.Step)
	assert.Equal(uint8(4), cpu.ProgramCounter())
}

func TestCpuLdiSta(t *testing.T) {
	assert := assert.New(t)

	// LDI 9; STA 15; LDI 0; LDA 15; OUT; HLT
	cpu, err := NewCpu([]byte{0x59, 0x4f, 0x50, 0x1f, 0xe0, 0xf0})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	runUntilHalt(cpu, 100)
	assert.True(cpu.Halted())
	assert.Equal(uint8(9), cpu.Memory.Read(15))
	assert.Equal(uint8(9), cpu.Display())
}

func TestCpuSubFlags(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		a, b   uint8
		result uint8
		carry  bool
		zero   bool
	}){
		{7, 5, 2, true, false},
		{7, 9, 254, false, false},
		{7, 7, 0, true, true},
		{0, 0, 0, true, true},
	}

	for _, entry := range table {
		// LDA 14; SUB 15; HLT
		image := make([]byte, MEMORY_SIZE)
		copy(image, []byte{0x1e, 0x3f, 0xf0})
		image[14] = entry.a
		image[15] = entry.b

		cpu, err := NewCpu(image)
		assert.NoError(err)
		if err != nil {
			continue
		}

		runUntilHalt(cpu, 100)
		assert.Equal(entry.result, cpu.Accumulator(), entry)
		assert.Equal(entry.carry, cpu.Carry(), entry)
		assert.Equal(entry.zero, cpu.Zero(), entry)
	}
}

func TestCpuAddCarry(t *testing.T) {
	assert := assert.New(t)

	// LDA 14; ADD 15; HLT
	image := make([]byte, MEMORY_SIZE)
	copy(image, []byte{0x1e, 0x2f, 0xf0})
	image[14] = 200
	image[15] = 56

	cpu, err := NewCpu(image)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	runUntilHalt(cpu, 100)
	assert.Equal(uint8(0), cpu.Accumulator())
	assert.True(cpu.Carry())
	assert.True(cpu.Zero())
}

func jumpImage(jump microcode.Mnemonic, subtrahend uint8) []byte {
	// LDI 7; SUB 15; Jx 6; LDI 1; OUT; HLT; LDI 2; OUT; HLT
	image := make([]byte, MEMORY_SIZE)
	copy(image, []byte{
		0x57, 0x3f, byte(microcode.MakeCode(jump, 6)),
		0x51, 0xe0, 0xf0,
		0x52, 0xe0, 0xf0,
	})
	image[15] = subtrahend
	return image
}

func TestCpuJumpConditional(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		jump       microcode.Mnemonic
		subtrahend uint8
		pc         uint8
		output     uint8
	}){
		{microcode.JC, 5, 6, 2},
		{microcode.JC, 9, 3, 1},
		{microcode.JZ, 7, 6, 2},
		{microcode.JZ, 5, 3, 1},
	}

	for _, entry := range table {
		cpu, err := NewCpu(jumpImage(entry.jump, entry.subtrahend))
		assert.NoError(err)
		if err != nil {
			continue
		}

		for range 15 {
			cpu.Tick()
		}
		assert.Equal(entry.pc, cpu.ProgramCounter(), entry)

		runUntilHalt(cpu, 100)
		assert.True(cpu.Halted(), entry)
		assert.Equal(entry.output, cpu.Display(), entry)
	}
}

func TestCpuJump(t *testing.T) {
	assert := assert.New(t)

	// JMP 3; HLT; HLT; LDI 5; OUT; HLT
	cpu, err := NewCpu([]byte{0x63, 0xf0, 0xf0, 0x55, 0xe0, 0xf0})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	for range 5 {
		cpu.Tick()
	}
	assert.Equal(uint8(3), cpu.ProgramCounter())

	runUntilHalt(cpu, 100)
	assert.Equal(uint8(5), cpu.Display())
	assert.Equal(uint8(6), cpu.ProgramCounter())
}

func TestCpuFetch(t *testing.T) {
	assert := assert.New(t)

	for mn := range microcode.MAX_OPCODE + 1 {
		code := microcode.MakeCode(mn, 3)
		cpu, err := NewCpu([]byte{byte(code)})
		assert.NoError(err)
		if err != nil {
			continue
		}

		sig := cpu.Signals()
		assert.Equal(0, sig.Step, mn)
		assert.Equal(microcode.PORT_PC, sig.Driver, mn)
		assert.Equal([]string{microcode.PORT_MAR}, sig.Sinks, mn)
		assert.False(sig.CountPC, mn)

		cpu.Tick()
		sig = cpu.Signals()
		assert.Equal(1, sig.Step, mn)
		assert.Equal(microcode.PORT_MEMORY, sig.Driver, mn)
		assert.Equal([]string{microcode.PORT_IR}, sig.Sinks, mn)
		assert.Equal(uint8(code), sig.Bus, mn)
		assert.True(sig.CountPC, mn)

		cpu.Tick()
		assert.Equal(2, cpu.Step, mn)
		assert.Equal(uint8(1), cpu.ProgramCounter(), mn)
		assert.Equal(uint8(code), cpu.IR.Full(), mn)
		assert.Equal(uint8(3), cpu.IR.Output(), mn)
	}
}

func TestCpuUndefinedOpcode(t *testing.T) {
	assert := assert.New(t)

	// Undefined opcodes are five tick no-ops.
	cpu, err := NewCpu([]byte{0x9a, 0xa0, 0xf0})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	for range 10 {
		cpu.Tick()
	}
	assert.Equal(uint8(2), cpu.ProgramCounter())
	assert.Equal(0, cpu.Step)
	assert.False(cpu.Halted())
}

func TestCpuStepCycle(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu(nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	for n := range 3 * microcode.STEPS {
		assert.Equal(n%microcode.STEPS, cpu.Step)
		cpu.Tick()
	}
	assert.Equal(uint8(3), cpu.ProgramCounter())
	assert.Equal(3*microcode.STEPS, cpu.Ticks)
}

func TestCpuHaltSticky(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu([]byte{0xf0, 0x51})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		cpu.Tick()
	}
	assert.True(cpu.Halted())
	assert.Equal(3, cpu.Step)

	for range 20 {
		cpu.Tick()
		assert.True(cpu.Halted())
		assert.Equal(3, cpu.Step)
		assert.Equal(uint8(1), cpu.ProgramCounter())
		assert.Equal(uint8(0), cpu.Accumulator())
	}

	sig := cpu.Signals()
	assert.Equal("", sig.Driver)
	assert.Empty(sig.Sinks)
	assert.Equal(uint8(0), sig.Bus)
	assert.Equal(STATE_HALTED, sig.State)
	assert.Equal(23, cpu.Ticks)
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	image := []byte{0x14, 0x25, 0xe0, 0xf0, 28, 14}
	cpu, err := NewCpu(image)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	runUntilHalt(cpu, 100)
	assert.True(cpu.Halted())

	cpu.Reset()
	assert.False(cpu.Halted())
	assert.Equal(0, cpu.Step)
	assert.Equal(0, cpu.Ticks)
	assert.Equal(uint8(0), cpu.ProgramCounter())
	assert.Equal(uint8(0), cpu.Accumulator())
	assert.Equal(uint8(0), cpu.Display())
	assert.Equal(uint8(0), cpu.MAR.Output())
	assert.Equal(uint8(0), cpu.IR.Full())
	assert.False(cpu.Carry())
	assert.Equal(image, cpu.Memory.Contents()[:len(image)])

	// Runs the same program again.
	runUntilHalt(cpu, 100)
	assert.Equal(uint8(42), cpu.Display())
	assert.Equal(18, cpu.Ticks)
}

func TestCpuSignalsPure(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu([]byte{0x14, 0x25, 0xe0, 0xf0, 28, 14})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	for range 7 {
		cpu.Tick()
	}

	before := cpu.String()
	_ = cpu.Signals()
	sig := cpu.Signals()
	assert.Equal(before, cpu.String())
	assert.Equal(2, sig.Step)
	assert.Equal(microcode.PORT_IR, sig.Driver)
	assert.Equal([]string{microcode.PORT_MAR}, sig.Sinks)
	assert.Equal(uint8(5), sig.Bus)
	assert.Equal(microcode.MakeCode(microcode.ADD, 5), sig.Code)
	assert.Equal(7, cpu.Ticks)
}

func TestCpuSignalsLines(t *testing.T) {
	assert := assert.New(t)

	// LDA 14; SUB 15; HLT
	image := make([]byte, MEMORY_SIZE)
	copy(image, []byte{0x1e, 0x3f, 0xf0})
	image[14] = 7
	image[15] = 5

	cpu, err := NewCpu(image)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	sig := cpu.Signals()
	assert.Equal(microcode.PORT_PC, sig.Driver)
	assert.Equal([]string{microcode.PORT_MAR}, sig.Sinks)
	assert.Equal("", cpu.Bus.Driver())
	assert.Empty(cpu.Bus.Sinks())
	assert.False(cpu.MAR.WriteEnable)

	// SUB T3: memory[15] -> b, while the memory line still holds T2's address.
	for range 8 {
		cpu.Tick()
	}
	sig = cpu.Signals()
	assert.Equal(microcode.PORT_MEMORY, sig.Driver)
	assert.Equal(uint8(5), sig.Bus)
	assert.Equal(uint8(1), cpu.Memory.Address)
	assert.Equal(microcode.PORT_IR, cpu.Bus.Driver())
	assert.False(cpu.B.WriteEnable)

	// SUB T4: alu -> a, subtracting.
	cpu.Tick()
	sig = cpu.Signals()
	assert.Equal(microcode.PORT_ALU, sig.Driver)
	assert.Equal([]string{microcode.PORT_A}, sig.Sinks)
	assert.Equal(uint8(2), sig.Bus)
	assert.True(sig.Subtract)
	assert.Equal(microcode.PORT_MEMORY, cpu.Bus.Driver())
	assert.False(cpu.Alu.Subtract)
	assert.True(cpu.B.WriteEnable)
	assert.False(cpu.A.WriteEnable)
	assert.Equal(cpu.Signals(), sig)

	cpu.Tick()
	assert.Equal(uint8(2), cpu.Accumulator())
	assert.True(cpu.Carry())
}

func TestCpuProgramming(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu([]byte{0xf0})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	// Halt the machine first; programming ignores it.
	for range 3 {
		cpu.Tick()
	}
	assert.True(cpu.Halted())

	err = cpu.SetOverride(Override{
		Programming: true,
		Source:      microcode.PORT_PC,
		Dest:        []string{microcode.PORT_MAR},
	})
	assert.NoError(err)

	cpu.PC.Latch(true, 0)
	cpu.PC.Commit()
	cpu.Tick()
	assert.Equal(uint8(0), cpu.MAR.Output())
	assert.Equal(0, cpu.Step)

	err = cpu.SetOverride(Override{
		Programming: true,
		Source:      microcode.PORT_INPUT,
		Dest:        []string{microcode.PORT_MEMORY},
		CountPC:     true,
		CountMAR:    true,
	})
	assert.NoError(err)

	for n, value := range []uint8{0x51, 0xe0, 0xf0} {
		cpu.SetInput(value)
		cpu.Tick()
		assert.Equal(value, cpu.Memory.Read(uint8(n)))
		assert.Equal(uint8(n+1), cpu.ProgramCounter())
		assert.Equal(uint8(n+1), cpu.MAR.Output())
		assert.Equal(0, cpu.Step)
	}

	// Leaving programming mode does not clear the halt.
	err = cpu.SetOverride(Override{})
	assert.NoError(err)
	cpu.Tick()
	assert.True(cpu.Halted())

	// A programming tick with ClearHalt resumes, keeping the registers.
	err = cpu.SetOverride(Override{Programming: true, ClearHalt: true})
	assert.NoError(err)
	cpu.Tick()
	assert.False(cpu.Halted())
	assert.Equal(0, cpu.Step)
	assert.Equal(uint8(3), cpu.ProgramCounter())

	// ClearHalt outside of programming mode is ignored.
	err = cpu.SetOverride(Override{ClearHalt: true})
	assert.NoError(err)

	cpu.Reset()
	runUntilHalt(cpu, 100)
	assert.Equal(uint8(1), cpu.Display())
	cpu.Tick()
	assert.True(cpu.Halted())
}

func TestCpuOverrideIgnored(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu([]byte{0x51, 0xf0})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	err = cpu.SetOverride(Override{
		Source: microcode.PORT_INPUT,
		Dest:   []string{microcode.PORT_A},
	})
	assert.NoError(err)
	cpu.SetInput(0x99)

	sig := cpu.Signals()
	assert.Equal(microcode.PORT_PC, sig.Driver)

	runUntilHalt(cpu, 100)
	assert.Equal(uint8(1), cpu.Accumulator())
}

func TestCpuOverrideErrors(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu(nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	err = cpu.SetOverride(Override{Programming: true, Source: "nowhere"})
	assert.ErrorIs(err, bus.ErrPortUnknown)

	err = cpu.SetOverride(Override{Programming: true, Dest: []string{microcode.PORT_ALU}})
	assert.ErrorIs(err, bus.ErrPortUnknown)

	// Rejected overrides leave the machine running its program.
	sig := cpu.Signals()
	assert.Equal(microcode.PORT_PC, sig.Driver)
}

func TestCpuInput(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu(nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	cpu.SetInput(0x5a)
	assert.Equal(uint8(0x5a), cpu.In.Output())

	cpu.Reset()
	assert.Equal(uint8(0x5a), cpu.In.Output())
}

func TestCpuTable(t *testing.T) {
	assert := assert.New(t)

	const JNZ = microcode.Mnemonic(0x9)

	opcodes := maps.Clone(microcode.Opcodes)
	opcodes[JNZ] = []microcode.Micro{
		{Conditional: map[microcode.Guard]microcode.Micro{
			{Flag: microcode.FLAG_ZERO, Value: false}: {Src: microcode.PORT_IR, Dst: []string{microcode.PORT_PC}},
		}},
	}

	// LDI 3; SUB 15; JNZ 1; OUT; HLT
	image := make([]byte, MEMORY_SIZE)
	copy(image, []byte{0x53, 0x3f, 0x91, 0xe0, 0xf0})
	image[15] = 1

	cpu, err := NewCpuTable(image, opcodes)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	ticks := runUntilHalt(cpu, 1000)
	assert.True(cpu.Halted())
	assert.Equal(uint8(0), cpu.Display())
	assert.True(cpu.Zero())
	// LDI, three SUB and JNZ pairs, OUT, then HLT.
	assert.Equal(5+3*10+5+3, ticks)
}

func TestCpuTableErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		opcodes map[microcode.Mnemonic][]microcode.Micro
		err     error
	}){
		{map[microcode.Mnemonic][]microcode.Micro{0x10: {}}, ErrOpcodeRange},
		{map[microcode.Mnemonic][]microcode.Micro{-1: {}}, ErrOpcodeRange},
		{map[microcode.Mnemonic][]microcode.Micro{microcode.NOP: {{}, {}, {}, {}}}, ErrMicrocodeSteps},
		{map[microcode.Mnemonic][]microcode.Micro{microcode.NOP: {{Src: "bogus"}}}, bus.ErrPortUnknown},
		{map[microcode.Mnemonic][]microcode.Micro{microcode.NOP: {{Dst: []string{microcode.PORT_ALU}}}}, bus.ErrPortUnknown},
		{map[microcode.Mnemonic][]microcode.Micro{microcode.NOP: {{Conditional: map[microcode.Guard]microcode.Micro{
			{Flag: microcode.Flag(5), Value: true}: {},
		}}}}, ErrFlagUnknown},
		{map[microcode.Mnemonic][]microcode.Micro{microcode.NOP: {{Src: microcode.PORT_A, Conditional: map[microcode.Guard]microcode.Micro{
			{Flag: microcode.FLAG_ZERO, Value: true}: {Src: microcode.PORT_PC},
		}}}}, ErrMultipleDrivers},
		{map[microcode.Mnemonic][]microcode.Micro{microcode.NOP: {{Conditional: map[microcode.Guard]microcode.Micro{
			{Flag: microcode.FLAG_ZERO, Value: true}: {Dst: []string{"bogus"}},
		}}}}, bus.ErrPortUnknown},
	}

	for n, entry := range table {
		_, err := NewCpuTable(nil, entry.opcodes)
		assert.ErrorIs(err, entry.err, n)

		var em *ErrMicrocode
		assert.True(errors.As(err, &em), n)
	}
}

func TestCpuImageSize(t *testing.T) {
	assert := assert.New(t)

	_, err := NewCpu(make([]byte, MEMORY_SIZE+1))
	assert.ErrorIs(err, memory.ErrImageSize)

	cpu, err := NewCpu(make([]byte, MEMORY_SIZE))
	assert.NoError(err)
	assert.NotNil(cpu)
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu([]byte{0x14, 0x25, 0xe0, 0xf0, 28, 14})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	text := cpu.String()
	assert.Contains(text, "   pc: 0\n")
	assert.Contains(text, "state: running\n")
	assert.Contains(text, "  bus: 00 pc -> memory_address\n")

	runUntilHalt(cpu, 100)
	text = cpu.String()
	assert.Contains(text, "  out: 2A (42)\n")
	assert.Contains(text, "state: halted\n")
	assert.True(strings.HasSuffix(text, "  bus: 00 - -> \n"))
}

func TestCpuDefines(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu(nil)
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	defines := maps.Collect(cpu.Defines())
	assert.Equal("16", defines["MEMORY_SIZE"])
	assert.Equal("8", defines["DATA_BUS_WIDTH"])
	assert.Equal("4", defines["ADDRESS_BUS_WIDTH"])
}

func TestCpuObserve(t *testing.T) {
	assert := assert.New(t)

	cpu, err := NewCpu([]byte{0x14, 0x25, 0xe0, 0xf0, 28, 14})
	assert.NoError(err)
	if err != nil {
		t.Fatal(err)
	}

	cpu.Tick()
	assert.Equal(microcode.PORT_MEMORY, cpu.Driver())
	assert.Equal([]string{microcode.PORT_IR}, cpu.Sinks())
	assert.Equal(uint8(0x14), cpu.BusValue())
	assert.Equal(1, cpu.Ticks)

	cpu.Tick()
	cpu.Tick()
	assert.Equal(microcode.PORT_MEMORY, cpu.Driver())
	assert.Equal([]string{microcode.PORT_A}, cpu.Sinks())
	assert.Equal(uint8(28), cpu.BusValue())
}
