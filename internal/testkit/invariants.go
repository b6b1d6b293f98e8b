package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"bootcode/internal/program"
	"bootcode/internal/source"
	"bootcode/internal/vm"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed listing:
// 1) every instruction span is non-empty and points into sf
// 2) spans lie within the file content
// 3) spans are strictly increasing and never overlap
func CheckSpanInvariants(p *program.Program, sf *source.File) error {
	if p == nil || sf == nil {
		return fmt.Errorf("nil program or file")
	}
	lenContent, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}

	var prev source.Span
	for i := 0; i < p.Len(); i++ {
		sp := p.At(i).Span
		if sp.End <= sp.Start {
			return fmt.Errorf("instruction %d: empty span %v", i, sp)
		}
		if sp.File != sf.ID {
			return fmt.Errorf("instruction %d: span file mismatch: got=%d want=%d", i, sp.File, sf.ID)
		}
		if sp.End > lenContent {
			return fmt.Errorf("instruction %d: span end beyond content: %d > %d", i, sp.End, lenContent)
		}
		if i > 0 && sp.Start < prev.End {
			return fmt.Errorf("instruction %d: span %v overlaps previous %v", i, sp, prev)
		}
		prev = sp
	}
	return nil
}

// CheckRunInvariants validates a machine after Run:
// 1) the trace and visited marks agree, every index at most once
// 2) the accumulator equals the sum of recorded deltas
// 3) the terminal status matches the final program counter
func CheckRunInvariants(m *vm.Machine) error {
	if m == nil {
		return fmt.Errorf("nil machine")
	}
	n := m.Program().Len()
	tr := m.Trace()
	st := m.State()

	if got := m.Visited().Count(); got != tr.Len() {
		return fmt.Errorf("visited marks %d != trace length %d", got, tr.Len())
	}
	if tr.Len() > n {
		return fmt.Errorf("trace length %d exceeds program length %d", tr.Len(), n)
	}

	var sum int64
	seen := make(map[int]struct{}, tr.Len())
	for i := 0; i < tr.Len(); i++ {
		e := tr.At(i)
		if e.PC < 0 || e.PC >= n {
			return fmt.Errorf("trace[%d]: index %d out of range", i, e.PC)
		}
		if _, dup := seen[e.PC]; dup {
			return fmt.Errorf("trace[%d]: index %d executed twice", i, e.PC)
		}
		seen[e.PC] = struct{}{}
		if !m.Visited().Has(e.PC) {
			return fmt.Errorf("trace[%d]: index %d not marked visited", i, e.PC)
		}
		if pos, ok := tr.PositionOf(e.PC); !ok || pos != i {
			return fmt.Errorf("trace[%d]: position index disagrees (%d, %v)", i, pos, ok)
		}
		sum += e.AccDelta
	}
	if sum != st.Acc {
		return fmt.Errorf("accumulator %d != sum of deltas %d", st.Acc, sum)
	}

	switch st.Status {
	case vm.StatusSuccess:
		if st.PC != n {
			return fmt.Errorf("success with pc=%d, want %d", st.PC, n)
		}
	case vm.StatusOutOfBounds:
		if st.PC <= n {
			return fmt.Errorf("out-of-bounds with pc=%d <= %d", st.PC, n)
		}
	case vm.StatusInfiniteLoop:
		if !m.Visited().Has(st.PC) {
			return fmt.Errorf("infinite-loop at unvisited pc=%d", st.PC)
		}
	case vm.StatusCrashed:
		if tr.Len() == 0 || tr.At(tr.Len()-1).PC != st.PC {
			return fmt.Errorf("crash at pc=%d is not the last executed instruction", st.PC)
		}
		in := m.Fetch(st.PC)
		pc, err := safecast.Conv[int64](st.PC)
		if err != nil {
			return fmt.Errorf("pc overflow: %w", err)
		}
		if in.Op != program.OpJmp || in.Arg >= 0 || pc+in.Arg >= 0 {
			return fmt.Errorf("crash at pc=%d without a jump below zero (%s)", st.PC, in)
		}
	default:
		return fmt.Errorf("run not finished: status %s", st.Status)
	}
	return nil
}
