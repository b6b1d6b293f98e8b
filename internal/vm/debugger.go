package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bootcode/internal/source"
)

// Debugger provides interactive and scripted stepping over a Machine.
type Debugger struct {
	m           *Machine
	files       *source.FileSet
	breakpoints *Breakpoints

	in          *bufio.Scanner
	out         io.Writer
	interactive bool

	quit bool
}

// DebuggerResult contains the result of a debugger session.
type DebuggerResult struct {
	Final State
	Quit  bool
}

// NewDebugger creates a new Debugger instance.
func NewDebugger(m *Machine, files *source.FileSet, in io.Reader, out io.Writer, interactive bool) *Debugger {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	return &Debugger{
		m:           m,
		files:       files,
		breakpoints: NewBreakpoints(),
		in:          bufio.NewScanner(in),
		out:         out,
		interactive: interactive,
	}
}

// Breakpoints returns the breakpoints collection.
func (d *Debugger) Breakpoints() *Breakpoints {
	if d == nil {
		return nil
	}
	return d.breakpoints
}

// Run executes the debugger session. In script mode an unfinished run
// continues to completion, ignoring breakpoints, once the input is exhausted.
func (d *Debugger) Run() DebuggerResult {
	if d == nil || d.m == nil {
		return DebuggerResult{}
	}

	for !d.quit {
		if d.interactive {
			fmt.Fprint(d.out, "(bootdb) ") //nolint:errcheck
		}
		if !d.in.Scan() {
			break
		}
		line := strings.TrimSpace(d.in.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.execCommand(line)
	}

	if d.quit {
		return DebuggerResult{Final: d.m.State(), Quit: true}
	}
	if !d.interactive && !d.m.State().Status.Terminal() {
		d.m.Run()
		d.printHalt()
	}
	return DebuggerResult{Final: d.m.State()}
}

func (d *Debugger) execCommand(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "help":
		d.help()
	case "step", "s":
		n := 1
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				fmt.Fprintln(d.out, "error: step expects a positive count") //nolint:errcheck
				return
			}
			n = v
		}
		d.cmdStep(n)
	case "continue", "c":
		d.cmdContinue()
	case "break", "b":
		if len(args) != 1 {
			fmt.Fprintln(d.out, "error: break expects <index>") //nolint:errcheck
			return
		}
		idx, err := ParseIndexSpec(args[0])
		if err == nil {
			_, err = d.breakpoints.AddIndex(idx)
		}
		if err != nil {
			fmt.Fprintf(d.out, "error: %s\n", err.Error()) //nolint:errcheck
		}
	case "break-line":
		if len(args) != 1 {
			fmt.Fprintln(d.out, "error: break-line expects <line>") //nolint:errcheck
			return
		}
		n, err := strconv.Atoi(args[0])
		if err == nil {
			_, err = d.breakpoints.AddLine(n)
		}
		if err != nil {
			fmt.Fprintf(d.out, "error: %s\n", err.Error()) //nolint:errcheck
		}
	case "break-op":
		if len(args) != 1 {
			fmt.Fprintln(d.out, "error: break-op expects <acc|jmp|nop>") //nolint:errcheck
			return
		}
		if _, err := d.breakpoints.AddOpcode(args[0]); err != nil {
			fmt.Fprintf(d.out, "error: %s\n", err.Error()) //nolint:errcheck
		}
	case "delete":
		if len(args) != 1 {
			fmt.Fprintln(d.out, "error: delete expects <id>") //nolint:errcheck
			return
		}
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			fmt.Fprintln(d.out, "error: invalid breakpoint id") //nolint:errcheck
			return
		}
		if !d.breakpoints.Delete(id) {
			fmt.Fprintln(d.out, "error: unknown breakpoint id") //nolint:errcheck
		}
	case "list":
		d.cmdList()
	case "state":
		d.printState()
	case "trace":
		d.cmdTrace()
	case "flip":
		if len(args) != 1 {
			fmt.Fprintln(d.out, "error: flip expects <index>") //nolint:errcheck
			return
		}
		d.cmdFlip(args[0])
	case "unflip":
		d.m.ClearPatch()
		fmt.Fprintln(d.out, "patch cleared") //nolint:errcheck
	case "reset":
		d.m.Reset()
		d.printState()
	case "quit", "q":
		d.quit = true
	default:
		fmt.Fprintln(d.out, "error: unknown command") //nolint:errcheck
	}
}

func (d *Debugger) cmdStep(n int) {
	for i := 0; i < n; i++ {
		if d.m.State().Status.Terminal() {
			break
		}
		pc := d.m.State().PC
		before := d.m.Trace().Len()
		d.m.Step()
		if d.m.Trace().Len() > before {
			d.printStepLine(pc)
		}
		if d.m.State().Status.Terminal() {
			d.printHalt()
			return
		}
	}
}

func (d *Debugger) cmdContinue() {
	// Already sitting on a breakpoint: advance once so continue makes progress.
	if _, hit := d.breakpoints.Match(d.m, d.files, d.m.State().PC); hit {
		d.m.Step()
	}
	var stopBP *Breakpoint
	st, stopped := d.m.RunUntil(func(pc int) bool {
		bp, hit := d.breakpoints.Match(d.m, d.files, pc)
		if hit {
			stopBP = bp
		}
		return hit
	})
	if stopped {
		fmt.Fprintf(d.out, "stopped: breakpoint #%d\n", stopBP.ID)                             //nolint:errcheck
		fmt.Fprintf(d.out, "at pc=%d %s @ %s\n", st.PC, d.m.Fetch(st.PC), d.formatSpan(st.PC)) //nolint:errcheck
		return
	}
	d.printHalt()
}

func (d *Debugger) cmdFlip(arg string) {
	idx, err := ParseIndexSpec(arg)
	if err != nil {
		fmt.Fprintf(d.out, "error: %s\n", err.Error()) //nolint:errcheck
		return
	}
	if idx >= d.m.Program().Len() {
		fmt.Fprintf(d.out, "error: index %d out of range\n", idx) //nolint:errcheck
		return
	}
	flipped, ok := d.m.Program().At(idx).Flip()
	if !ok {
		fmt.Fprintf(d.out, "error: instruction %d is not flippable\n", idx) //nolint:errcheck
		return
	}
	if err := d.m.SetPatch(idx, flipped); err != nil {
		fmt.Fprintf(d.out, "error: %s\n", err.Error()) //nolint:errcheck
		return
	}
	fmt.Fprintf(d.out, "patched pc=%d: %s -> %s\n", idx, d.m.Program().At(idx), flipped) //nolint:errcheck
}

func (d *Debugger) cmdList() {
	fmt.Fprintln(d.out, "breakpoints:") //nolint:errcheck
	for _, bp := range d.breakpoints.List() {
		fmt.Fprintf(d.out, "  %s\n", bp.Summary()) //nolint:errcheck
	}
}

func (d *Debugger) cmdTrace() {
	tr := d.m.Trace()
	fmt.Fprintf(d.out, "trace (%d):\n", tr.Len()) //nolint:errcheck
	for i := 0; i < tr.Len(); i++ {
		e := tr.At(i)
		fmt.Fprintf(d.out, "  %d: pc=%d %s\n", i, e.PC, d.m.Fetch(e.PC)) //nolint:errcheck
	}
}

func (d *Debugger) printState() {
	st := d.m.State()
	fmt.Fprintf(d.out, "state: pc=%d acc=%d status=%s\n", st.PC, st.Acc, st.Status) //nolint:errcheck
}

func (d *Debugger) printStepLine(pc int) {
	st := d.m.State()
	fmt.Fprintf(d.out, "step: pc=%d %s acc=%d @ %s\n", pc, d.m.Fetch(pc), st.Acc, d.formatSpan(pc)) //nolint:errcheck
}

func (d *Debugger) printHalt() {
	st := d.m.State()
	fmt.Fprintf(d.out, "halted: %s pc=%d acc=%d\n", st.Status, st.PC, st.Acc) //nolint:errcheck
}

func (d *Debugger) formatSpan(pc int) string {
	if d.files == nil || pc < 0 || pc >= d.m.Program().Len() {
		return "<no-span>"
	}
	return d.files.Position(d.m.Fetch(pc).Span)
}

func (d *Debugger) help() {
	fmt.Fprintln(d.out, "commands:")                //nolint:errcheck
	fmt.Fprintln(d.out, "  help")                   //nolint:errcheck
	fmt.Fprintln(d.out, "  step|s [n]")             //nolint:errcheck
	fmt.Fprintln(d.out, "  continue|c")             //nolint:errcheck
	fmt.Fprintln(d.out, "  break|b <index>")        //nolint:errcheck
	fmt.Fprintln(d.out, "  break-line <line>")      //nolint:errcheck
	fmt.Fprintln(d.out, "  break-op <acc|jmp|nop>") //nolint:errcheck
	fmt.Fprintln(d.out, "  delete <id>")            //nolint:errcheck
	fmt.Fprintln(d.out, "  list")                   //nolint:errcheck
	fmt.Fprintln(d.out, "  state")                  //nolint:errcheck
	fmt.Fprintln(d.out, "  trace")                  //nolint:errcheck
	fmt.Fprintln(d.out, "  flip <index>")           //nolint:errcheck
	fmt.Fprintln(d.out, "  unflip")                 //nolint:errcheck
	fmt.Fprintln(d.out, "  reset")                  //nolint:errcheck
	fmt.Fprintln(d.out, "  quit|q")                 //nolint:errcheck
}
