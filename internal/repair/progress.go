package repair

import (
	"bootcode/internal/program"
	"bootcode/internal/vm"
)

// CandidateStatus captures progress of one candidate.
type CandidateStatus string

const (
	// StatusQueued indicates the candidate waits to be evaluated.
	StatusQueued CandidateStatus = "queued"
	// StatusRunning indicates the candidate program is executing.
	StatusRunning CandidateStatus = "running"
	// StatusDone indicates the flip made the program terminate.
	StatusDone CandidateStatus = "done"
	// StatusFailed indicates the flipped program still loops, overshoots or crashes.
	StatusFailed CandidateStatus = "failed"
	// StatusSkipped indicates the search finished before the candidate was needed.
	StatusSkipped CandidateStatus = "skipped"
)

// Terminal reports whether no further events follow for the candidate.
func (s CandidateStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusSkipped
}

// Event reports progress for one candidate index.
type Event struct {
	Index  int
	Instr  program.Instruction // flipped instruction under test
	Status CandidateStatus
	Final  vm.State // valid for done and failed
}

// ProgressSink consumes progress events. Implementations used with
// StrategyParallel must be safe for concurrent use.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// FuncSink adapts a function to ProgressSink.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
