package vm

import (
	"fmt"
	"strings"
)

// ErrorCode identifies misuse of the machine API.
type ErrorCode int

// Stable codes - do not change values.
const (
	ErrRewindOutOfRange ErrorCode = 1001 // VM1001: rewind position outside the trace
	ErrPatchOutOfRange  ErrorCode = 1002 // VM1002: patch index outside the program
)

// String returns the code as "VM1001" format.
func (c ErrorCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// VMError reports an invalid request against a Machine. Terminal statuses
// are never errors.
type VMError struct {
	Code      ErrorCode
	Message   string
	State     State
	Backtrace []int // most recent executed indices, newest first
}

// Error implements the error interface.
func (e *VMError) Error() string {
	return fmt.Sprintf("vm %s: %s", e.Code, e.Message)
}

// Format renders the error with the machine state and backtrace.
func (e *VMError) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "vm %s: %s\n", e.Code, e.Message)
	fmt.Fprintf(&sb, "at pc=%d acc=%d status=%s\n", e.State.PC, e.State.Acc, e.State.Status)
	if len(e.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, pc := range e.Backtrace {
			fmt.Fprintf(&sb, "  %d: pc=%d\n", i, pc)
		}
	}
	return sb.String()
}

const backtraceDepth = 8

func (m *Machine) errorf(code ErrorCode, format string, args ...any) *VMError {
	e := &VMError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		State:   m.state,
	}
	for i := m.trace.Len() - 1; i >= 0 && len(e.Backtrace) < backtraceDepth; i-- {
		e.Backtrace = append(e.Backtrace, m.trace.At(i).PC)
	}
	return e
}
