package repair

import (
	"fmt"

	"bootcode/internal/vm"
)

// incremental evaluates every candidate on one machine. The unmodified
// program runs once; a candidate first reached at trace position k shares
// the first k entries with that run, so the machine rewinds to k, applies
// the flip as a patch and continues from there. Candidates the unmodified
// run never reaches behave exactly like it.
func (s *search) incremental() (Result, error) {
	m := vm.New(s.prog, vm.Options{})
	original := m.Run()
	steps := m.Executed()

	// trace positions of the unmodified run, before any rewinding
	reached := make(map[int]int, m.Trace().Len())
	for pos, pc := range m.Trace().PCs() {
		reached[pc] = pos
	}

	for k, i := range s.candidates {
		if err := s.cancelled(); err != nil {
			return Result{}, err
		}
		emit(s.sink, Event{Index: i, Instr: s.flipped(i), Status: StatusRunning})

		pos, ok := reached[i]
		if !ok {
			if s.record(i, original, 0) {
				s.skipRest(k)
				return s.result(i, original), nil
			}
			continue
		}

		before := m.Executed()
		if err := s.advanceTo(m, pos); err != nil {
			return Result{}, err
		}
		if err := m.SetPatch(i, s.flipped(i)); err != nil {
			return Result{}, err
		}
		final := m.Run()
		if err := m.Rewind(pos); err != nil {
			return Result{}, err
		}
		m.ClearPatch()
		steps += m.Executed() - before

		if s.record(i, final, m.Executed()-before) {
			s.skipRest(k)
			return s.result(i, final), nil
		}
	}
	s.log.Debug("incremental search exhausted", "steps", steps)
	return Result{}, s.unrepairable()
}

// advanceTo leaves the unpatched machine just before trace position pos of
// the unmodified run. Going back is a rewind; going forward replays the
// unmodified program, which retraces the same path.
func (s *search) advanceTo(m *vm.Machine, pos int) error {
	m.ClearPatch()
	if m.Trace().Len() > pos {
		return m.Rewind(pos)
	}
	for m.Trace().Len() < pos {
		if m.Step().Terminal() {
			return fmt.Errorf("replay ended at trace length %d before position %d", m.Trace().Len(), pos)
		}
	}
	return nil
}
