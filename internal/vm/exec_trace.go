package vm

// Entry is one executed instruction. AccDelta is the amount the instruction
// added to the accumulator, so undoing it is a subtraction.
type Entry struct {
	PC       int
	AccDelta int64
}

// ExecTrace is the ordered list of instructions executed in the current run.
// An index appears at most once per run.
type ExecTrace struct {
	entries []Entry
	pos     map[int]int // pc -> position
}

func newExecTrace(capacity int) *ExecTrace {
	return &ExecTrace{
		entries: make([]Entry, 0, capacity),
		pos:     make(map[int]int, capacity),
	}
}

// Len returns the number of executed instructions.
func (t *ExecTrace) Len() int { return len(t.entries) }

// At returns the entry at position i.
func (t *ExecTrace) At(i int) Entry { return t.entries[i] }

// PCs returns the executed indices in order.
func (t *ExecTrace) PCs() []int {
	out := make([]int, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.PC
	}
	return out
}

// Entries returns a copy of the trace.
func (t *ExecTrace) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// PositionOf returns the trace position at which pc executed.
func (t *ExecTrace) PositionOf(pc int) (int, bool) {
	p, ok := t.pos[pc]
	return p, ok
}

// Contains reports whether pc executed in this run.
func (t *ExecTrace) Contains(pc int) bool {
	_, ok := t.pos[pc]
	return ok
}

func (t *ExecTrace) push(e Entry) {
	t.pos[e.PC] = len(t.entries)
	t.entries = append(t.entries, e)
}

func (t *ExecTrace) pop() Entry {
	last := t.entries[len(t.entries)-1]
	t.entries = t.entries[:len(t.entries)-1]
	delete(t.pos, last.PC)
	return last
}

func (t *ExecTrace) reset() {
	t.entries = t.entries[:0]
	clear(t.pos)
}
