// Package trace records where bootcode spends its time.
//
// Spans cover the driver (one command invocation), its phases (load,
// parse, run, repair) and individual repair candidates. Single interpreter
// steps are available at the debug level.
//
// # Usage
//
//	bootcode repair --trace=- --trace-level=detail boot.txt
//	bootcode repair --trace=out.chrome.json --trace-level=debug boot.txt
//
// # Tracers
//
//   - Nop: zero overhead when tracing is disabled
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: circular buffer, dumped on failure
//   - MultiTracer: fans events out to several tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: ring dump only
//   - LevelPhase: driver and phase boundaries
//   - LevelDetail: adds repair candidates
//   - LevelDebug: adds interpreter steps
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "parse", parentID)
//	defer span.End("")
package trace
