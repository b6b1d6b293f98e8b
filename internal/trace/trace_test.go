package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevelShouldEmit(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopePhase, true},
		{LevelPhase, ScopeCandidate, false},
		{LevelDetail, ScopeCandidate, true},
		{LevelDetail, ScopeStep, false},
		{LevelDebug, ScopeStep, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if l, err := ParseLevel("Detail"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel(Detail) = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode(both) = %v, %v", m, err)
	}
	if m, err := ParseMode(" Ring "); err != nil || m != ModeRing {
		t.Fatalf("ParseMode(Ring) = %v, %v", m, err)
	}
	if _, err := ParseMode("tape"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if f, err := ParseFormat("chrome"); err != nil || f != FormatChrome {
		t.Fatalf("ParseFormat(chrome) = %v, %v", f, err)
	}
}

func TestRingTracerWraps(t *testing.T) {
	r := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopePhase, Name: name})
	}
	snap := r.Snapshot()
	var names []string
	for _, ev := range snap {
		names = append(names, ev.Name)
	}
	if got := strings.Join(names, ","); got != "c,d,e" {
		t.Fatalf("snapshot = %s, want c,d,e", got)
	}
	if r.Len() != 3 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestStreamTracerFiltersByScope(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)

	span := Begin(st, ScopePhase, "repair", 0)
	Point(st, ScopeCandidate, "candidate:7", span.ID(), "success")
	span.WithExtra("strategy", "incremental").End("done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 events, got %d:\n%s", len(lines), buf.String())
	}
	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if end["kind"] != "end" || end["detail"] != "done" || end["scope"] != "phase" {
		t.Fatalf("unexpected end event %v", end)
	}
}

func TestChromeDocumentIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	st := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	mt := NewMultiTracer(LevelDebug, st, NewRingTracer(8, LevelDebug))

	span := Begin(mt, ScopeDriver, "bootcode", 0)
	Point(mt, ScopeStep, "step", span.ID(), "pc=0")
	span.End("")
	if err := mt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var doc struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid chrome document: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 {
		t.Fatalf("want 3 events, got %d", len(doc.TraceEvents))
	}
	if doc.TraceEvents[0]["ph"] != "B" || doc.TraceEvents[2]["ph"] != "E" {
		t.Fatalf("unexpected phases %v", doc.TraceEvents)
	}
}

func TestTextFormatSortsExtra(t *testing.T) {
	out := string(FormatEvent(&Event{
		Kind:  KindSpanEnd,
		Name:  "repair",
		Extra: map[string]string{"b": "2", "a": "1"},
	}, FormatText))
	if !strings.HasSuffix(out, "\u2190 repair {a=1, b=2}\n") {
		t.Fatalf("unexpected text %q", out)
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatal("empty context must yield Nop")
	}
	r := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatal("tracer not propagated")
	}
	ctx = WithSpanContext(ctx, SpanContext{SpanID: 9})
	if CurrentSpan(ctx).SpanID != 9 {
		t.Fatal("span context not propagated")
	}
}

func TestRingDumpToFile(t *testing.T) {
	r := NewRingTracer(8, LevelPhase)
	Begin(r, ScopePhase, "repair", 0).End("ok")

	path := filepath.Join(t.TempDir(), "trace.ndjson")
	if err := r.DumpTo(path, FormatAuto); err != nil {
		t.Fatalf("DumpTo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d:\n%s", len(lines), data)
	}
	for _, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Fatalf("invalid ndjson line %q", line)
		}
	}
}

func TestStartSpanNestsUnderCurrent(t *testing.T) {
	r := NewRingTracer(8, LevelPhase)
	ctx := WithTracer(context.Background(), r)

	outer, ctx := StartSpan(ctx, ScopeDriver, "bootcode repair")
	inner, innerCtx := StartSpan(ctx, ScopePhase, "parse")
	inner.End("")
	outer.End("")

	if CurrentSpan(innerCtx).SpanID != inner.ID() {
		t.Fatal("returned context must carry the new span")
	}
	var parents []uint64
	for _, ev := range r.Snapshot() {
		if ev.Kind == KindSpanBegin {
			parents = append(parents, ev.ParentID)
		}
	}
	if len(parents) != 2 || parents[0] != 0 || parents[1] != outer.ID() {
		t.Fatalf("begin parents = %v, want [0 %d]", parents, outer.ID())
	}

	// tracing off: no span id, context unchanged
	off := context.Background()
	sp, got := StartSpan(off, ScopePhase, "parse")
	if sp.ID() != 0 || got != off {
		t.Fatal("disabled tracer must not create spans")
	}
}

func TestHeartbeatEmitsUntilStopped(t *testing.T) {
	r := NewRingTracer(64, LevelPhase)
	h := StartHeartbeat(r, time.Millisecond)
	deadline := time.Now().Add(5 * time.Second)
	for r.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Stop()
	h.Stop()

	n := r.Len()
	if n < 2 {
		t.Fatalf("got %d heartbeats", n)
	}
	time.Sleep(5 * time.Millisecond)
	if r.Len() != n {
		t.Fatal("heartbeat kept emitting after Stop")
	}
	for _, ev := range r.Snapshot() {
		if ev.Kind != KindHeartbeat || !strings.HasPrefix(ev.Detail, "#") {
			t.Fatalf("unexpected event %+v", ev)
		}
	}

	if StartHeartbeat(Nop, time.Millisecond) != nil {
		t.Fatal("heartbeat on a disabled tracer")
	}
}

func TestNewCreatesTraceDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "run.ndjson")
	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, OutputPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	Begin(tr, ScopePhase, "parse", 0).End("ok")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d:\n%s", n, data)
	}
}
