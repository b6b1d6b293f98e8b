package main

import (
	"fmt"
	"io"

	"bootcode/internal/observ"
)

// printTimings writes the phase summary collected by --timings.
func printTimings(out io.Writer, timer *observ.Timer) {
	if out == nil || timer == nil {
		return
	}
	if _, err := fmt.Fprint(out, timer.Summary()); err != nil {
		panic(err)
	}
}

// beginPhase starts a timed phase on the session timer; the returned func ends it.
func beginPhase(name string) func(note string) {
	idx := sess.timer.Begin(name)
	return func(note string) { sess.timer.End(idx, note) }
}
