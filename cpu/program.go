package cpu

import (
	"iter"

	"github.com/ezrec/sap1/microcode"
)

// Opcode is one assembled source line.
type Opcode struct {
	LineNo    int              // Source line number.
	Address   int              // Address of the first code.
	Words     []string         // Source words, after expansion.
	Codes     []microcode.Code // Assembled bytes.
	LinkLabel string           // Label to resolve into the operand, if any.
}

// Program is an assembled memory image.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode that assembled a memory address.
func (prog *Program) Debug(address uint8) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(address) >= op.Address && int(address) < op.Address+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(address) - op.Address,
			}
			break
		}
	}

	return
}

// Image returns the memory image, zero filled up to the last assembled
// address.
func (prog *Program) Image() (image []byte) {
	for address, code := range prog.Codes() {
		for len(image) <= int(address) {
			image = append(image, 0)
		}
		image[address] = byte(code)
	}

	return
}

func (prog *Program) Codes() iter.Seq2[uint8, microcode.Code] {
	return func(yield func(address uint8, code microcode.Code) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(uint8(op.Address+n), code) {
					return
				}
			}
		}
	}
}

// NewProgram creates a program listing from a raw memory image, one
// disassembled opcode per byte.
func NewProgram(image []byte) (prog *Program) {
	prog = &Program{}
	for n, data := range image {
		code := microcode.Code(data)
		prog.Opcodes = append(prog.Opcodes, Opcode{
			LineNo:  n + 1,
			Address: n,
			Words:   []string{code.String()},
			Codes:   []microcode.Code{code},
		})
	}

	return
}
