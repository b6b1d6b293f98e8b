package vm

import (
	"fmt"
	"io"

	"bootcode/internal/program"
	"bootcode/internal/source"
)

// Tracer outputs execution traces for debugging.
type Tracer struct {
	w     io.Writer
	files *source.FileSet
}

// NewTracer creates a new tracer that writes to w. files may be nil.
func NewTracer(w io.Writer, files *source.FileSet) *Tracer {
	return &Tracer{w: w, files: files}
}

// TraceStep traces execution of one instruction.
// Format: [step=N] pc=I <instr> acc=A -> pc=J @ <file>:<line>:<col>
func (t *Tracer) TraceStep(step, pc int, in program.Instruction, acc int64, next int, status Status) {
	if t == nil || t.w == nil {
		return
	}
	dest := fmt.Sprintf("pc=%d", next)
	if status.Terminal() {
		dest = status.String()
	}
	fmt.Fprintf(t.w, "[step=%d] pc=%d %s acc=%d -> %s @ %s\n", //nolint:errcheck
		step, pc, in, acc, dest, t.formatSpan(in.Span))
}

// TraceHalt traces the terminal state of a run.
// Format: [halt] <status> pc=I acc=A
func (t *Tracer) TraceHalt(st State) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "[halt] %s pc=%d acc=%d\n", st.Status, st.PC, st.Acc) //nolint:errcheck
}

// formatSpan formats a span as "file:line:col" or "<no-span>".
func (t *Tracer) formatSpan(span source.Span) string {
	if t.files == nil {
		return "<no-span>"
	}
	return t.files.Position(span)
}
