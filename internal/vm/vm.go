package vm

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"bootcode/internal/program"
)

// Options configures a Machine.
type Options struct {
	Trace *Tracer // per-step execution trace, nil disables
}

// Patch overlays a single instruction without copying the program.
type Patch struct {
	Index int
	Instr program.Instruction
}

// Machine steps an Execution State against a Program. Visited marks and the
// execution trace belong to the machine, so independent machines over the
// same Program never interfere.
type Machine struct {
	prog    *program.Program
	state   State
	visited *Visited
	trace   *ExecTrace
	patch   *Patch
	tracer  *Tracer

	executed int // instructions executed since the last Reset, rewinds included
}

// New creates a machine positioned at the initial state.
func New(p *program.Program, opts Options) *Machine {
	n := p.Len()
	return &Machine{
		prog:    p,
		visited: NewVisited(n),
		trace:   newExecTrace(n),
		tracer:  opts.Trace,
	}
}

// Run executes p from the initial state on a fresh machine.
func Run(p *program.Program) State {
	return New(p, Options{}).Run()
}

// Program returns the program bound to the machine.
func (m *Machine) Program() *program.Program { return m.prog }

// State returns the current execution state.
func (m *Machine) State() State { return m.state }

// Trace returns the execution trace of the current run. The result is live.
func (m *Machine) Trace() *ExecTrace { return m.trace }

// Visited returns the visited marks of the current run. The result is live.
func (m *Machine) Visited() *Visited { return m.visited }

// Executed counts instructions executed since the last Reset.
func (m *Machine) Executed() int { return m.executed }

// Patched returns the active patch, if any.
func (m *Machine) Patched() (Patch, bool) {
	if m.patch == nil {
		return Patch{}, false
	}
	return *m.patch, true
}

// SetPatch makes the machine execute instr in place of instruction i.
func (m *Machine) SetPatch(i int, instr program.Instruction) error {
	if i < 0 || i >= m.prog.Len() {
		return m.errorf(ErrPatchOutOfRange, "patch index %d out of range [0, %d)", i, m.prog.Len())
	}
	m.patch = &Patch{Index: i, Instr: instr}
	return nil
}

// ClearPatch drops the active patch.
func (m *Machine) ClearPatch() {
	m.patch = nil
}

// Fetch returns the instruction the machine would execute at index i.
func (m *Machine) Fetch(i int) program.Instruction {
	if m.patch != nil && m.patch.Index == i {
		return m.patch.Instr
	}
	return m.prog.At(i)
}

// Reset returns the machine to the initial state and clears marks and the
// trace. An active patch is kept.
func (m *Machine) Reset() {
	m.state = State{}
	m.visited.Reset()
	m.trace.reset()
	m.executed = 0
}

// Step performs one iteration of the interpreter loop and returns the
// resulting status. Once the status is terminal, Step does nothing.
func (m *Machine) Step() Status {
	if m.state.Status.Terminal() {
		return m.state.Status
	}

	n := m.prog.Len()
	pc := m.state.PC
	switch {
	case pc == n:
		return m.halt(StatusSuccess)
	case pc > n:
		return m.halt(StatusOutOfBounds)
	case m.visited.Has(pc):
		// the repeated instruction is not executed again
		return m.halt(StatusInfiniteLoop)
	}

	in := m.Fetch(pc)
	m.visited.Mark(pc)
	entry := Entry{PC: pc}
	m.executed++

	switch in.Op {
	case program.OpAcc:
		m.state.Acc += in.Arg
		entry.AccDelta = in.Arg
		m.state.PC = pc + 1
	case program.OpJmp:
		target, ok := jumpTarget(pc, in.Arg)
		if !ok {
			m.trace.push(entry)
			m.tracer.TraceStep(m.executed, pc, in, m.state.Acc, m.state.PC, StatusCrashed)
			return m.halt(StatusCrashed)
		}
		m.state.PC = target
	case program.OpNop:
		m.state.PC = pc + 1
	default:
		panic(fmt.Sprintf("vm: unknown opcode %d at %d", in.Op, pc))
	}

	m.trace.push(entry)
	m.tracer.TraceStep(m.executed, pc, in, m.state.Acc, m.state.PC, StatusRunning)
	return StatusRunning
}

// Run steps until a terminal status is reached. A run performs at most
// N+1 loop iterations.
func (m *Machine) Run() State {
	for !m.Step().Terminal() {
	}
	return m.state
}

// RunUntil steps until the run terminates or stop returns true for the
// index about to execute. stop is consulted before every instruction,
// including the first.
func (m *Machine) RunUntil(stop func(pc int) bool) (State, bool) {
	for !m.state.Status.Terminal() {
		if stop != nil && m.state.PC >= 0 && m.state.PC < m.prog.Len() && !m.visited.Has(m.state.PC) && stop(m.state.PC) {
			return m.state, true
		}
		m.Step()
	}
	return m.state, false
}

// Rewind undoes every trace entry at position pos or later, newest first:
// accumulate side effects are subtracted and visited marks cleared. The
// machine is left running at the index that executed at position pos.
// Rewind(0) on an empty trace is a Reset.
func (m *Machine) Rewind(pos int) error {
	if pos == 0 && m.trace.Len() == 0 {
		m.state = State{}
		m.visited.Reset()
		return nil
	}
	if pos < 0 || pos >= m.trace.Len() {
		return m.errorf(ErrRewindOutOfRange, "rewind position %d out of range [0, %d)", pos, m.trace.Len())
	}
	var e Entry
	for m.trace.Len() > pos {
		e = m.trace.pop()
		m.state.Acc -= e.AccDelta
		m.visited.Clear(e.PC)
	}
	m.state.PC = e.PC
	m.state.Status = StatusRunning
	return nil
}

func (m *Machine) halt(s Status) Status {
	m.state.Status = s
	m.tracer.TraceHalt(m.state)
	return s
}

// jumpTarget computes pc+off. ok is false when the target is negative;
// targets beyond the int range saturate so they classify as out of bounds.
func jumpTarget(pc int, off int64) (int, bool) {
	base := int64(pc)
	if off > 0 && base > math.MaxInt64-off {
		return math.MaxInt, true
	}
	t := base + off
	if t < 0 {
		return 0, false
	}
	target, err := safecast.Conv[int](t)
	if err != nil {
		return math.MaxInt, true
	}
	return target, true
}
