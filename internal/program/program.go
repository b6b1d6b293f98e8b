// Package program holds the immutable instruction sequence of a boot code
// listing. Execution-trace metadata such as visited marks never lives here.
package program

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"bootcode/internal/source"
)

// Opcode is the operation kind of an instruction.
type Opcode uint8

const (
	OpAcc Opcode = iota + 1 // accumulate
	OpJmp                   // jump
	OpNop                   // no operation
)

// String returns the mnemonic.
func (op Opcode) String() string {
	switch op {
	case OpAcc:
		return "acc"
	case OpJmp:
		return "jmp"
	case OpNop:
		return "nop"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// ParseOpcode maps a mnemonic to its Opcode.
func ParseOpcode(s string) (Opcode, bool) {
	switch s {
	case "acc":
		return OpAcc, true
	case "jmp":
		return OpJmp, true
	case "nop":
		return OpNop, true
	default:
		return 0, false
	}
}

// Instruction is an opcode with its signed operand.
// Span points at the listing line and is not part of the instruction's meaning.
type Instruction struct {
	Op   Opcode
	Arg  int64
	Span source.Span
}

// Acc, Jmp and Nop build instructions without a source location.
func Acc(v int64) Instruction { return Instruction{Op: OpAcc, Arg: v} }
func Jmp(v int64) Instruction { return Instruction{Op: OpJmp, Arg: v} }
func Nop(v int64) Instruction { return Instruction{Op: OpNop, Arg: v} }

// Flip swaps nop and jmp, keeping the operand. acc is never flipped.
func (in Instruction) Flip() (Instruction, bool) {
	switch in.Op {
	case OpJmp:
		in.Op = OpNop
		return in, true
	case OpNop:
		in.Op = OpJmp
		return in, true
	default:
		return in, false
	}
}

// Same reports whether two instructions are semantically identical.
func (in Instruction) Same(other Instruction) bool {
	return in.Op == other.Op && in.Arg == other.Arg
}

func (in Instruction) String() string {
	return fmt.Sprintf("%s %+d", in.Op, in.Arg)
}

// Program is an ordered, fixed-length sequence of instructions.
type Program struct {
	instrs []Instruction
}

// New builds a Program from a copy of instrs.
func New(instrs []Instruction) *Program {
	cp := make([]Instruction, len(instrs))
	copy(cp, instrs)
	return &Program{instrs: cp}
}

// Len returns N, the number of instructions.
func (p *Program) Len() int {
	if p == nil {
		return 0
	}
	return len(p.instrs)
}

// At returns instruction i. It panics when i is outside [0, Len()).
func (p *Program) At(i int) Instruction {
	return p.instrs[i]
}

// Instructions returns a copy of the instruction sequence.
func (p *Program) Instructions() []Instruction {
	cp := make([]Instruction, len(p.instrs))
	copy(cp, p.instrs)
	return cp
}

// Candidates lists the indices of nop and jmp instructions in program order.
func (p *Program) Candidates() []int {
	out := make([]int, 0, len(p.instrs))
	for i, in := range p.instrs {
		if in.Op == OpJmp || in.Op == OpNop {
			out = append(out, i)
		}
	}
	return out
}

// WithFlip returns a candidate program identical to p except that
// instruction i is flipped. p itself is left untouched.
func (p *Program) WithFlip(i int) (*Program, error) {
	if i < 0 || i >= p.Len() {
		return nil, fmt.Errorf("flip index %d out of range [0, %d)", i, p.Len())
	}
	flipped, ok := p.instrs[i].Flip()
	if !ok {
		return nil, fmt.Errorf("instruction %d (%s) cannot be flipped", i, p.instrs[i])
	}
	out := New(p.instrs)
	out.instrs[i] = flipped
	return out, nil
}

// String renders the canonical listing, one instruction per line.
func (p *Program) String() string {
	var sb strings.Builder
	for _, in := range p.instrs {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Digest hashes the canonical listing. Spans do not contribute.
func (p *Program) Digest() [32]byte {
	return sha256.Sum256([]byte(p.String()))
}
