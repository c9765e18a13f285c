package microcode

import (
	"fmt"
	"strings"
)

// Code is a fetched instruction byte: opcode in the high nibble, operand
// in the low nibble.
type Code uint8

// MakeCode encodes an instruction.
func MakeCode(mn Mnemonic, operand uint8) Code {
	return Code((uint8(mn) << 4) | (operand & 0xf))
}

// Mnemonic returns the opcode.
func (code Code) Mnemonic() Mnemonic {
	return Mnemonic(code >> 4)
}

// Operand returns the low nibble.
func (code Code) Operand() uint8 {
	return uint8(code) & 0xf
}

// String returns the assembly language form of the instruction.
func (code Code) String() string {
	mn := code.Mnemonic()
	switch {
	case !mn.Defined():
		return fmt.Sprintf(".byte 0x%02x", uint8(code))
	case mn.HasOperand():
		return fmt.Sprintf("%v 0x%x", mn, code.Operand())
	case code.Operand() != 0:
		return fmt.Sprintf(".byte 0x%02x", uint8(code))
	default:
		return mn.String()
	}
}

// ParseMnemonic looks up a mnemonic by name, ignoring case.
func ParseMnemonic(word string) (mn Mnemonic, ok bool) {
	word = strings.ToUpper(word)
	for _, mn = range mnemonics {
		if mn.String() == word {
			ok = true
			return
		}
	}

	mn = NOP
	return
}
