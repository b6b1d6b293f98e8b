package vm

// Status is the lifecycle position of a run. Every status except
// StatusRunning is terminal.
type Status uint8

const (
	StatusRunning      Status = iota // execution in progress
	StatusSuccess                    // pc == N
	StatusOutOfBounds                // pc > N
	StatusCrashed                    // a jump targeted a negative index
	StatusInfiniteLoop               // the next instruction already ran in this run
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusOutOfBounds:
		return "out-of-bounds"
	case StatusCrashed:
		return "crashed"
	case StatusInfiniteLoop:
		return "infinite-loop"
	default:
		return "unknown"
	}
}

// Terminal reports whether the run has stopped.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// State is the register file of the machine. The zero value is the
// initial state: pc 0, accumulator 0, running.
type State struct {
	PC     int
	Acc    int64
	Status Status
}
