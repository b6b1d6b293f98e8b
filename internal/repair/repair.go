package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"bootcode/internal/logs"
	"bootcode/internal/observ"
	"bootcode/internal/program"
	"bootcode/internal/trace"
	"bootcode/internal/vm"
)

// ErrUnrepairable is returned (wrapped) when no single flip yields Success.
var ErrUnrepairable = errors.New("program is unrepairable")

// Options configures Search.
type Options struct {
	Strategy Strategy
	Jobs     int          // StrategyParallel worker limit, <= 0 means GOMAXPROCS
	Progress ProgressSink // optional
	Tracer   trace.Tracer // optional, falls back to the context tracer
	Timer    *observ.Timer
}

// Result describes the winning flip.
type Result struct {
	Index    int                 // repaired instruction
	Original program.Instruction // instruction as written
	Patched  program.Instruction // instruction after the flip
	Final    vm.State            // terminal state of the repaired run
	Attempts int                 // candidates up to and including the winner
}

// Diagnose runs the unmodified program and reports how it terminates.
func Diagnose(p *program.Program) vm.State {
	return vm.Run(p)
}

// Search tries each flip candidate and returns the first, by index, whose
// program terminates with Success. Every strategy returns the same Result.
func Search(ctx context.Context, p *program.Program, opts Options) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := newSearch(ctx, p, opts)
	span := trace.Begin(s.tracer, trace.ScopePhase, "repair", trace.CurrentSpan(ctx).SpanID)
	span.WithExtra("strategy", opts.Strategy.String()).
		WithExtra("candidates", strconv.Itoa(len(s.candidates)))
	s.parent = span.ID()

	s.log.Debug("repair search started",
		slog.String("strategy", opts.Strategy.String()),
		slog.Int("instructions", p.Len()),
		slog.Int("candidates", len(s.candidates)))

	for _, i := range s.candidates {
		emit(s.sink, Event{Index: i, Instr: s.flipped(i), Status: StatusQueued})
	}

	var (
		res Result
		err error
	)
	switch opts.Strategy {
	case StrategyBaseline:
		res, err = s.baseline()
	case StrategyIncremental:
		res, err = s.incremental()
	case StrategyParallel:
		res, err = s.parallel(opts.Jobs)
	default:
		err = fmt.Errorf("unknown repair strategy %d", opts.Strategy)
	}

	switch {
	case err == nil:
		span.End(fmt.Sprintf("flip %d -> acc %d", res.Index, res.Final.Acc))
		s.log.Info("repair found",
			slog.Int("index", res.Index),
			slog.String("from", res.Original.String()),
			slog.String("to", res.Patched.String()),
			slog.Int64("acc", res.Final.Acc),
			slog.Int("attempts", res.Attempts))
	case errors.Is(err, ErrUnrepairable):
		span.End("unrepairable")
		s.log.Warn("no single flip terminates the program", slog.Int("candidates", len(s.candidates)))
	default:
		span.End(err.Error())
	}
	return res, err
}

// search holds what every strategy needs.
type search struct {
	ctx        context.Context
	prog       *program.Program
	candidates []int
	ordinal    map[int]int // index -> position in candidates
	sink       ProgressSink
	tracer     trace.Tracer
	timer      *observ.Timer
	log        *slog.Logger
	parent     uint64
}

func newSearch(ctx context.Context, p *program.Program, opts Options) *search {
	s := &search{
		ctx:        ctx,
		prog:       p,
		candidates: p.Candidates(),
		sink:       opts.Progress,
		tracer:     opts.Tracer,
		timer:      opts.Timer,
		log:        logs.FromContext(ctx).With(slog.String("component", "repair")),
	}
	if s.tracer == nil {
		s.tracer = trace.FromContext(ctx)
	}
	s.ordinal = make(map[int]int, len(s.candidates))
	for k, i := range s.candidates {
		s.ordinal[i] = k
	}
	return s
}

func (s *search) flipped(i int) program.Instruction {
	in, _ := s.prog.At(i).Flip()
	return in
}

// record finishes one candidate: progress, tracing, counters.
func (s *search) record(i int, final vm.State, steps int) bool {
	ok := final.Status == vm.StatusSuccess
	status := StatusFailed
	if ok {
		status = StatusDone
	}
	emit(s.sink, Event{Index: i, Instr: s.flipped(i), Status: status, Final: final})
	trace.Point(s.tracer, trace.ScopeCandidate, "candidate:"+strconv.Itoa(i), s.parent,
		fmt.Sprintf("%s acc=%d", final.Status, final.Acc))
	s.timer.Add("candidates", 1)
	s.timer.Add("steps", int64(steps))
	s.log.Debug("candidate evaluated",
		slog.Int("index", i),
		slog.String("status", final.Status.String()),
		slog.Int64("acc", final.Acc))
	return ok
}

func (s *search) result(i int, final vm.State) Result {
	return Result{
		Index:    i,
		Original: s.prog.At(i),
		Patched:  s.flipped(i),
		Final:    final,
		Attempts: s.ordinal[i] + 1,
	}
}

// skipRest marks candidates after position k as skipped.
func (s *search) skipRest(k int) {
	for _, i := range s.candidates[k+1:] {
		emit(s.sink, Event{Index: i, Instr: s.flipped(i), Status: StatusSkipped})
	}
}

func (s *search) unrepairable() error {
	return fmt.Errorf("%w: none of %d candidates terminates", ErrUnrepairable, len(s.candidates))
}

func (s *search) cancelled() error {
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("repair cancelled: %w", err)
	}
	return nil
}
