package cpu

import (
	"errors"

	"github.com/ezrec/sap1/microcode"
	"github.com/ezrec/sap1/translate"
)

var f = translate.From

var (
	// Microcode errors
	ErrOpcodeRange     = errors.New(f("opcode out of range"))
	ErrMicrocodeSteps  = errors.New(f("too many microcode steps"))
	ErrFlagUnknown     = errors.New(f("flag unknown"))
	ErrMultipleDrivers = errors.New(f("multiple bus drivers"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOrgSyntax          = errors.New(f(".org syntax"))
	ErrOrgBackwards       = errors.New(f(".org moves backwards"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrOperandRange       = errors.New(f("operand out of range"))
	ErrByteRange          = errors.New(f("byte out of range"))
	ErrAddressRange       = errors.New(f("program exceeds memory"))
)

// ErrMicrocode locates a microcode table error.
type ErrMicrocode struct {
	Opcode microcode.Mnemonic
	Step   int
	Err    error
}

func (err *ErrMicrocode) Error() string {
	return f("microcode %v T%d %v", err.Opcode, err.Step, err.Err)
}

func (err *ErrMicrocode) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
