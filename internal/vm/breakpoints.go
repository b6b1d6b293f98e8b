package vm

import (
	"fmt"
	"strconv"
	"strings"

	"bootcode/internal/program"
	"bootcode/internal/source"
)

// BreakpointKind distinguishes breakpoint types.
type BreakpointKind uint8

const (
	// BKIndex stops before a given instruction index.
	BKIndex BreakpointKind = iota
	// BKLine stops before the instruction defined on a listing line.
	BKLine
	// BKOpcode stops before every instruction with a given opcode.
	BKOpcode
)

// Breakpoint represents a debugger breakpoint.
type Breakpoint struct {
	ID   int
	Kind BreakpointKind

	Index int            // BKIndex
	Line  int            // BKLine
	Op    program.Opcode // BKOpcode
}

// Summary returns a string representation of the breakpoint.
func (bp *Breakpoint) Summary() string {
	if bp == nil {
		return "<nil>"
	}
	switch bp.Kind {
	case BKIndex:
		return fmt.Sprintf("#%d pc=%d", bp.ID, bp.Index)
	case BKLine:
		return fmt.Sprintf("#%d line:%d", bp.ID, bp.Line)
	case BKOpcode:
		return fmt.Sprintf("#%d op:%s", bp.ID, bp.Op)
	default:
		return fmt.Sprintf("#%d <unknown>", bp.ID)
	}
}

// Breakpoints manages a collection of breakpoints.
type Breakpoints struct {
	nextID int
	list   []*Breakpoint
}

// NewBreakpoints creates a new Breakpoints collection.
func NewBreakpoints() *Breakpoints {
	return &Breakpoints{nextID: 1}
}

// AddIndex adds an instruction index breakpoint.
func (bps *Breakpoints) AddIndex(index int) (*Breakpoint, error) {
	if index < 0 {
		return nil, fmt.Errorf("invalid index %d", index)
	}
	return bps.add(&Breakpoint{Kind: BKIndex, Index: index}), nil
}

// AddLine adds a listing line breakpoint.
func (bps *Breakpoints) AddLine(line int) (*Breakpoint, error) {
	if line <= 0 {
		return nil, fmt.Errorf("invalid line %d", line)
	}
	return bps.add(&Breakpoint{Kind: BKLine, Line: line}), nil
}

// AddOpcode adds an opcode breakpoint.
func (bps *Breakpoints) AddOpcode(mnemonic string) (*Breakpoint, error) {
	op, ok := program.ParseOpcode(strings.TrimSpace(mnemonic))
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", mnemonic)
	}
	return bps.add(&Breakpoint{Kind: BKOpcode, Op: op}), nil
}

// Delete removes a breakpoint by ID.
func (bps *Breakpoints) Delete(id int) bool {
	if bps == nil || id <= 0 {
		return false
	}
	for i, bp := range bps.list {
		if bp != nil && bp.ID == id {
			copy(bps.list[i:], bps.list[i+1:])
			bps.list[len(bps.list)-1] = nil
			bps.list = bps.list[:len(bps.list)-1]
			return true
		}
	}
	return false
}

// List returns all breakpoints.
func (bps *Breakpoints) List() []*Breakpoint {
	if bps == nil || len(bps.list) == 0 {
		return nil
	}
	out := make([]*Breakpoint, 0, len(bps.list))
	out = append(out, bps.list...)
	return out
}

// Match checks if any breakpoint matches the instruction at pc.
func (bps *Breakpoints) Match(m *Machine, files *source.FileSet, pc int) (*Breakpoint, bool) {
	if bps == nil || len(bps.list) == 0 || m == nil {
		return nil, false
	}
	if pc < 0 || pc >= m.prog.Len() {
		return nil, false
	}
	in := m.Fetch(pc)

	line := 0
	if files != nil && files.Get(in.Span.File) != nil && !in.Span.Empty() {
		start, _ := files.Resolve(in.Span)
		line = int(start.Line)
	}

	for _, bp := range bps.list {
		if bp == nil {
			continue
		}
		switch bp.Kind {
		case BKIndex:
			if bp.Index == pc {
				return bp, true
			}
		case BKLine:
			if line != 0 && bp.Line == line {
				return bp, true
			}
		case BKOpcode:
			if bp.Op == in.Op {
				return bp, true
			}
		}
	}
	return nil, false
}

// ParseIndexSpec parses a breakpoint index, accepting "12" or "pc=12".
func ParseIndexSpec(spec string) (int, error) {
	spec = strings.TrimPrefix(strings.TrimSpace(spec), "pc=")
	if spec == "" {
		return 0, fmt.Errorf("empty spec")
	}
	n, err := strconv.Atoi(spec)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid index %q", spec)
	}
	return n, nil
}

func (bps *Breakpoints) add(bp *Breakpoint) *Breakpoint {
	if bps.nextID <= 0 {
		bps.nextID = 1
	}
	bp.ID = bps.nextID
	bps.nextID++
	bps.list = append(bps.list, bp)
	return bp
}
