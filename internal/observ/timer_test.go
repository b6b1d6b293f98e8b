package observ

import (
	"strings"
	"sync"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("parse")
	tm.End(idx, "9 instructions")
	tm.End(42, "ignored")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("candidates", 1)
		}()
	}
	wg.Wait()
	tm.Add("attempts", 3)

	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].Name != "parse" || r.Phases[0].Note != "9 instructions" {
		t.Fatalf("unexpected phases %+v", r.Phases)
	}
	if len(r.Counters) != 2 || r.Counters[0].Name != "attempts" || r.Counters[1].Value != 8 {
		t.Fatalf("unexpected counters %+v", r.Counters)
	}

	sum := tm.Summary()
	for _, want := range []string{"timings:", "parse", "// 9 instructions", "total", "candidates"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q:\n%s", want, sum)
		}
	}
}

func TestNilTimerIsSafe(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("x"), "")
	tm.Add("c", 1)
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatal("nil timer reported phases")
	}
}
