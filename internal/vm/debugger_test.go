package vm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"bootcode/internal/program"
	"bootcode/internal/source"
	"bootcode/internal/vm"
)

func runScript(t *testing.T, p *program.Program, files *source.FileSet, script string) (string, vm.DebuggerResult) {
	t.Helper()
	var out bytes.Buffer
	dbg := vm.NewDebugger(vm.New(p, vm.Options{}), files, strings.NewReader(script), &out, false)
	res := dbg.Run()
	return out.String(), res
}

func TestDebuggerBreakFlipContinue(t *testing.T) {
	script := strings.Join([]string{
		"# stop on the looping jump",
		"break 7",
		"continue",
		"state",
		"flip pc=7",
		"continue",
	}, "\n")

	got, res := runScript(t, scenarioA(), nil, script)
	want := strings.Join([]string{
		"stopped: breakpoint #1",
		"at pc=7 jmp -4 @ <no-span>",
		"state: pc=7 acc=2 status=running",
		"patched pc=7: jmp -4 -> nop -4",
		"halted: success pc=9 acc=8",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("debugger output mismatch (-want +got):\n%s", diff)
	}
	if res.Quit || res.Final.Status != vm.StatusSuccess || res.Final.Acc != 8 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDebuggerStepTraceQuit(t *testing.T) {
	got, res := runScript(t, scenarioA(), nil, "step 2\ntrace\nq\nstep\n")
	want := strings.Join([]string{
		"step: pc=0 nop +0 acc=0 @ <no-span>",
		"step: pc=1 acc +1 acc=1 @ <no-span>",
		"trace (2):",
		"  0: pc=0 nop +0",
		"  1: pc=1 acc +1",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("debugger output mismatch (-want +got):\n%s", diff)
	}
	if !res.Quit || res.Final.PC != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDebuggerScriptRunsToCompletion(t *testing.T) {
	got, res := runScript(t, scenarioA(), nil, "break-op acc\nlist\n")
	want := strings.Join([]string{
		"breakpoints:",
		"  #1 op:acc",
		"halted: infinite-loop pc=1 acc=5",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("debugger output mismatch (-want +got):\n%s", diff)
	}
	if res.Final.Status != vm.StatusInfiniteLoop {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDebuggerLineBreakpoint(t *testing.T) {
	content := "nop +0\nacc +1\njmp +4\nacc +3\njmp -3\nacc -99\nacc +1\njmp -4\nacc +6\n"
	files := source.NewFileSet()
	id := files.AddVirtual("a.boot", []byte(content))

	instrs := scenarioA().Instructions()
	off := uint32(0)
	for i, line := range strings.Split(strings.TrimSuffix(content, "\n"), "\n") {
		instrs[i].Span = source.Span{File: id, Start: off, End: off + uint32(len(line))}
		off += uint32(len(line)) + 1
	}

	got, _ := runScript(t, program.New(instrs), files, "break-line 7\ncontinue\ndelete 1\nunflip\nc\n")
	want := strings.Join([]string{
		"stopped: breakpoint #1",
		"at pc=6 acc +1 @ a.boot:7:1",
		"patch cleared",
		"halted: infinite-loop pc=1 acc=5",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("debugger output mismatch (-want +got):\n%s", diff)
	}
}

func TestDebuggerErrors(t *testing.T) {
	got, _ := runScript(t, program.New([]program.Instruction{program.Acc(+1)}), nil,
		"bogus\nflip 0\nflip 5\nstep -1\ndelete 9\nquit\n")
	want := strings.Join([]string{
		"error: unknown command",
		"error: instruction 0 is not flippable",
		"error: index 5 out of range",
		"error: step expects a positive count",
		"error: unknown breakpoint id",
		"",
	}, "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("debugger output mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIndexSpec(t *testing.T) {
	for spec, want := range map[string]int{"12": 12, "pc=3": 3, " 0 ": 0} {
		got, err := vm.ParseIndexSpec(spec)
		if err != nil || got != want {
			t.Errorf("ParseIndexSpec(%q) = %d, %v", spec, got, err)
		}
	}
	for _, spec := range []string{"", "pc=", "-1", "x"} {
		if _, err := vm.ParseIndexSpec(spec); err == nil {
			t.Errorf("ParseIndexSpec(%q) succeeded", spec)
		}
	}
}
