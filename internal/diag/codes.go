package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Ассемблер
	AsmInfo           Code = 1000
	AsmUnknownOpcode  Code = 1001
	AsmMissingOperand Code = 1002
	AsmBadOperand     Code = 1003
	AsmTrailingTokens Code = 1004
	AsmEmptyProgram   Code = 1005
	AsmListingTooLong Code = 1006

	// Исполнение
	RunInfo         Code = 2000
	RunInfiniteLoop Code = 2001
	RunCrashed      Code = 2002
	RunOutOfBounds  Code = 2003

	// Ремонт
	RepairInfo         Code = 3000
	RepairUnrepairable Code = 3001
	RepairFlipped      Code = 3002

	IOLoadFileError Code = 4001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:        "Unknown error",
		AsmInfo:            "Assembler information",
		AsmUnknownOpcode:   "Unknown opcode",
		AsmMissingOperand:  "Missing operand",
		AsmBadOperand:      "Operand is not a signed integer",
		AsmTrailingTokens:  "Unexpected tokens after operand",
		AsmEmptyProgram:    "Program has no instructions",
		AsmListingTooLong:  "Listing does not fit in 32-bit offsets",
		RunInfo:            "Run information",
		RunInfiniteLoop:    "Instruction executed twice",
		RunCrashed:         "Jump to a negative address",
		RunOutOfBounds:     "Jump past the end of the program",
		RepairInfo:         "Repair information",
		RepairUnrepairable: "No single flip terminates the program",
		RepairFlipped:      "Flipping this instruction terminates the program",
		IOLoadFileError:    "I/O load file error",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("ASM%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("RUN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("FIX%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
