package trace

import (
	"io"
	"os"
	"sync"
)

// chrome trace files are one JSON object wrapping an event array
const (
	chromeOpen  = "{\"traceEvents\":[\n"
	chromeSep   = ",\n"
	chromeClose = "\n]}\n"
)

// StreamTracer writes every accepted event as soon as it arrives. Used for
// --trace-mode stream and as the writing half of both.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	wrote  bool // chrome: an event is already in the array
}

// NewStreamTracer writes the chrome array header right away.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	t := &StreamTracer{w: w, level: level, format: format}
	if format == FormatChrome {
		t.write(chromeOpen)
	}
	return t
}

// write ignores errors: a broken trace output never fails a command.
func (t *StreamTracer) write(s string) {
	_, _ = io.WriteString(t.w, s) //nolint:errcheck
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	ev.Seq = NextSeq()
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.format == FormatChrome && t.wrote {
		t.write(chromeSep)
	}
	t.wrote = true
	_, _ = t.w.Write(data) //nolint:errcheck
}

// Flush forwards to writers that buffer (bufio-style Flush() error).
func (t *StreamTracer) Flush() error {
	if f, ok := t.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close terminates the chrome array and closes file outputs. The standard
// streams stay open.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	if t.format == FormatChrome {
		t.write(chromeClose)
	}
	t.mu.Unlock()

	flushErr := t.Flush()
	if t.w == os.Stderr || t.w == os.Stdout {
		return flushErr
	}
	if c, ok := t.w.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return flushErr
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
