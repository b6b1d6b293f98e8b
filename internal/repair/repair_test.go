package repair_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bootcode/internal/observ"
	"bootcode/internal/program"
	"bootcode/internal/repair"
	"bootcode/internal/trace"
	"bootcode/internal/vm"
)

var strategies = []repair.Strategy{
	repair.StrategyBaseline,
	repair.StrategyIncremental,
	repair.StrategyParallel,
}

func scenarioA() *program.Program {
	return program.New([]program.Instruction{
		program.Nop(+0),
		program.Acc(+1),
		program.Jmp(+4),
		program.Acc(+3),
		program.Jmp(-3),
		program.Acc(-99),
		program.Acc(+1),
		program.Jmp(-4),
		program.Acc(+6),
	})
}

// scenarioE has three candidates and every flip still loops.
func scenarioE() *program.Program {
	return program.New([]program.Instruction{
		program.Jmp(0),
		program.Jmp(-1),
		program.Jmp(-2),
	})
}

func TestDiagnose(t *testing.T) {
	want := vm.State{PC: 1, Acc: 5, Status: vm.StatusInfiniteLoop}
	if diff := cmp.Diff(want, repair.Diagnose(scenarioA())); diff != "" {
		t.Fatalf("diagnostic run mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchScenarioA(t *testing.T) {
	want := repair.Result{
		Index:    7,
		Original: program.Jmp(-4),
		Patched:  program.Nop(-4),
		Final:    vm.State{PC: 9, Acc: 8, Status: vm.StatusSuccess},
		Attempts: 4,
	}
	for _, st := range strategies {
		t.Run(st.String(), func(t *testing.T) {
			got, err := repair.Search(context.Background(), scenarioA(), repair.Options{Strategy: st, Jobs: 2})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchUnrepairable(t *testing.T) {
	programs := map[string]*program.Program{
		"scenario E":       scenarioE(),
		"no candidates":    program.New([]program.Instruction{program.Acc(+1)}),
		"empty program":    program.New(nil),
		"crash everywhere": program.New([]program.Instruction{program.Jmp(-1), program.Jmp(-5)}),
	}
	for name, p := range programs {
		for _, st := range strategies {
			t.Run(name+"/"+st.String(), func(t *testing.T) {
				_, err := repair.Search(context.Background(), p, repair.Options{Strategy: st})
				if !errors.Is(err, repair.ErrUnrepairable) {
					t.Fatalf("want ErrUnrepairable, got %v", err)
				}
			})
		}
	}
}

func TestSearchFirstSuccessWins(t *testing.T) {
	// flipping 0 or 1 both terminate; the lower index wins
	p := program.New([]program.Instruction{
		program.Nop(+2),
		program.Jmp(0),
		program.Acc(+3),
	})
	for _, st := range strategies {
		got, err := repair.Search(context.Background(), p, repair.Options{Strategy: st})
		if err != nil {
			t.Fatalf("%s: %v", st, err)
		}
		if got.Index != 0 || got.Final.Acc != 3 || got.Attempts != 1 {
			t.Fatalf("%s: got %+v", st, got)
		}
	}
}

func randomProgram(r *rand.Rand, n int) *program.Program {
	instrs := make([]program.Instruction, n)
	for i := range instrs {
		arg := int64(r.Intn(2*n+1) - n)
		switch r.Intn(4) {
		case 0:
			instrs[i] = program.Acc(arg)
		case 1, 2:
			instrs[i] = program.Jmp(arg)
		default:
			instrs[i] = program.Nop(arg)
		}
	}
	return program.New(instrs)
}

func TestStrategiesAgree(t *testing.T) {
	r := rand.New(rand.NewSource(2020))
	repaired := 0
	for iter := 0; iter < 300; iter++ {
		p := randomProgram(r, 1+r.Intn(30))
		want, wantErr := repair.Search(context.Background(), p, repair.Options{Strategy: repair.StrategyBaseline})
		if wantErr == nil {
			repaired++
			flipped, err := p.WithFlip(want.Index)
			if err != nil {
				t.Fatalf("WithFlip(%d): %v", want.Index, err)
			}
			if got := vm.Run(flipped); got != want.Final || got.Status != vm.StatusSuccess {
				t.Fatalf("flipped program ends in %+v, search reported %+v\n%s", got, want.Final, p)
			}
		}
		for _, st := range strategies[1:] {
			got, err := repair.Search(context.Background(), p, repair.Options{Strategy: st, Jobs: 4})
			if (err == nil) != (wantErr == nil) {
				t.Fatalf("%s disagrees on error: baseline=%v %s=%v\n%s", st, wantErr, st, err, p)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("%s disagrees with baseline (-baseline +%s):\n%s\n%s", st, st, diff, p)
			}
		}
	}
	if repaired == 0 {
		t.Fatal("random corpus never exercised a successful repair")
	}
}

func TestProgressEventsBaseline(t *testing.T) {
	var got []string
	sink := repair.FuncSink(func(evt repair.Event) {
		got = append(got, fmt.Sprintf("%d %s %s", evt.Index, evt.Instr, evt.Status))
	})
	p := program.New([]program.Instruction{program.Jmp(+2), program.Nop(+5), program.Jmp(-1)})
	if _, err := repair.Search(context.Background(), p, repair.Options{Progress: sink}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := []string{
		"0 nop +2 queued",
		"1 jmp +5 queued",
		"2 nop -1 queued",
		"0 nop +2 running",
		"0 nop +2 failed",
		"1 jmp +5 running",
		"1 jmp +5 failed",
		"2 nop -1 running",
		"2 nop -1 done",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestProgressEventsAllTerminal(t *testing.T) {
	for _, st := range strategies {
		t.Run(st.String(), func(t *testing.T) {
			ch := make(chan repair.Event, 64)
			p := scenarioA()
			if _, err := repair.Search(context.Background(), p, repair.Options{
				Strategy: st,
				Progress: repair.ChannelSink{Ch: ch},
			}); err != nil {
				t.Fatalf("Search: %v", err)
			}
			close(ch)

			last := map[int]repair.Event{}
			for evt := range ch {
				last[evt.Index] = evt
			}
			if len(last) != len(p.Candidates()) {
				t.Fatalf("events for %d candidates, want %d", len(last), len(p.Candidates()))
			}
			for idx, evt := range last {
				if !evt.Status.Terminal() {
					t.Errorf("candidate %d ended in %s", idx, evt.Status)
				}
			}
			if last[7].Status != repair.StatusDone || last[7].Final.Acc != 8 {
				t.Fatalf("winner event = %+v", last[7])
			}
		})
	}
}

func TestSearchSkipsAfterWinner(t *testing.T) {
	p := program.New([]program.Instruction{program.Jmp(0), program.Nop(0), program.Nop(0), program.Acc(+1)})
	var (
		mu   sync.Mutex
		skip []int
	)
	sink := repair.FuncSink(func(evt repair.Event) {
		if evt.Status == repair.StatusSkipped {
			mu.Lock()
			skip = append(skip, evt.Index)
			mu.Unlock()
		}
	})
	res, err := repair.Search(context.Background(), p, repair.Options{Strategy: repair.StrategyIncremental, Progress: sink})
	if err != nil || res.Index != 0 || res.Final.Acc != 1 {
		t.Fatalf("Search = %+v, %v", res, err)
	}
	if diff := cmp.Diff([]int{1, 2}, skip); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, st := range strategies {
		_, err := repair.Search(ctx, scenarioA(), repair.Options{Strategy: st})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("%s: want context.Canceled, got %v", st, err)
		}
	}
}

func TestSearchTracesAndCounts(t *testing.T) {
	ring := trace.NewRingTracer(64, trace.LevelDetail)
	timer := observ.NewTimer()
	_, err := repair.Search(context.Background(), scenarioA(), repair.Options{Tracer: ring, Timer: timer})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Kind.String()+":"+ev.Name)
	}
	want := []string{
		"begin:repair",
		"point:candidate:0",
		"point:candidate:2",
		"point:candidate:4",
		"point:candidate:7",
		"end:repair",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}

	counters := map[string]int64{}
	for _, c := range timer.Report().Counters {
		counters[c.Name] = c.Value
	}
	if counters["candidates"] != 4 || counters["steps"] == 0 {
		t.Fatalf("unexpected counters %v", counters)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, st := range strategies {
		got, err := repair.ParseStrategy(st.String())
		if err != nil || got != st {
			t.Errorf("ParseStrategy(%q) = %v, %v", st, got, err)
		}
	}
	if got, err := repair.ParseStrategy(""); err != nil || got != repair.StrategyBaseline {
		t.Errorf("empty strategy = %v, %v", got, err)
	}
	if _, err := repair.ParseStrategy("greedy"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
