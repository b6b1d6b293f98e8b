package repair

import "bootcode/internal/vm"

// baseline builds each candidate program and runs it on a fresh machine.
func (s *search) baseline() (Result, error) {
	for k, i := range s.candidates {
		if err := s.cancelled(); err != nil {
			return Result{}, err
		}
		emit(s.sink, Event{Index: i, Instr: s.flipped(i), Status: StatusRunning})

		cand, err := s.prog.WithFlip(i)
		if err != nil {
			return Result{}, err
		}
		m := vm.New(cand, vm.Options{})
		final := m.Run()
		if s.record(i, final, m.Executed()) {
			s.skipRest(k)
			return s.result(i, final), nil
		}
	}
	return Result{}, s.unrepairable()
}
