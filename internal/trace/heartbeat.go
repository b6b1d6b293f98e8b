package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a driver-scope event every interval while a command runs.
// A long candidate search shows up as heartbeats with no span ends between
// them; the detail carries the elapsed time.
type Heartbeat struct {
	tracer Tracer
	every  time.Duration
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// StartHeartbeat returns nil when tracing is off or interval is not
// positive. Stop is safe on nil.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer: tracer,
		every:  interval,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go h.loop(time.Now())
	return h
}

func (h *Heartbeat) loop(started time.Time) {
	defer close(h.exited)

	ticker := time.NewTicker(h.every)
	defer ticker.Stop()

	for beat := 1; ; beat++ {
		select {
		case now := <-ticker.C:
			h.tracer.Emit(&Event{
				Time:   now,
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    getGoroutineID(),
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d after %s", beat, now.Sub(started).Round(time.Millisecond)),
			})
		case <-h.done:
			return
		}
	}
}

// Stop ends the loop and waits for it; later calls return immediately.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.done) })
	<-h.exited
}
