package repair

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"bootcode/internal/vm"
)

// parallel evaluates candidate copies concurrently. A candidate above the
// best success seen so far is skipped; candidates below it always run, so
// the smallest successful index wins just as in the baseline.
func (s *search) parallel(jobs int) (Result, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	n := len(s.candidates)
	if n == 0 {
		return Result{}, s.unrepairable()
	}

	// best holds the winning ordinal, n while none has succeeded
	var best atomic.Int64
	best.Store(int64(n))
	finals := make([]vm.State, n)

	// sinks see events from many goroutines; serialize them
	var sinkMu sync.Mutex
	sink := s.sink
	if sink != nil {
		s.sink = FuncSink(func(evt Event) {
			sinkMu.Lock()
			defer sinkMu.Unlock()
			sink.OnEvent(evt)
		})
		defer func() { s.sink = sink }()
	}

	g, gctx := errgroup.WithContext(s.ctx)
	g.SetLimit(min(jobs, n))

	for k, i := range s.candidates {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if int64(k) > best.Load() {
				emit(s.sink, Event{Index: i, Instr: s.flipped(i), Status: StatusSkipped})
				return nil
			}
			emit(s.sink, Event{Index: i, Instr: s.flipped(i), Status: StatusRunning})

			cand, err := s.prog.WithFlip(i)
			if err != nil {
				return err
			}
			m := vm.New(cand, vm.Options{})
			final := m.Run()
			finals[k] = final
			if s.record(i, final, m.Executed()) {
				for {
					cur := best.Load()
					if int64(k) >= cur || best.CompareAndSwap(cur, int64(k)) {
						break
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if cerr := s.cancelled(); cerr != nil {
			return Result{}, cerr
		}
		return Result{}, err
	}

	k := int(best.Load())
	if k == n {
		return Result{}, s.unrepairable()
	}
	return s.result(s.candidates[k], finals[k]), nil
}
