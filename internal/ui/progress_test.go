package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"bootcode/internal/program"
	"bootcode/internal/repair"
	"bootcode/internal/vm"
)

func scenarioA() *program.Program {
	return program.New([]program.Instruction{
		program.Nop(+0), program.Acc(+1), program.Jmp(+4),
		program.Acc(+3), program.Jmp(-3), program.Acc(-99),
		program.Acc(+1), program.Jmp(-4), program.Acc(+6),
	})
}

func TestProgressModelTracksEvents(t *testing.T) {
	events := make(chan repair.Event)
	m := NewProgressModel("repair boot.txt", scenarioA(), events).(*progressModel)

	m.Update(eventMsg{Index: 0, Status: repair.StatusFailed, Final: vm.State{Status: vm.StatusInfiniteLoop}})
	m.Update(eventMsg{Index: 7, Status: repair.StatusDone, Final: vm.State{PC: 9, Acc: 8, Status: vm.StatusSuccess}})
	m.Update(eventMsg{Index: 42, Status: repair.StatusDone}) // not a candidate
	if m.finished() != 2 {
		t.Fatalf("finished = %d, want 2", m.finished())
	}

	_, cmd := m.Update(doneMsg{})
	if cmd == nil {
		t.Fatal("done must quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("done did not return tea.Quit")
	}

	view := m.View()
	for _, want := range []string{
		"done: repair boot.txt (2/4 candidates)",
		"pc=7     jmp -4 -> nop -4  acc=8",
		"pc=0     nop +0 -> jmp +0  infinite-loop",
		"queued",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressModelWindowsLongListings(t *testing.T) {
	instrs := make([]program.Instruction, 200)
	for i := range instrs {
		instrs[i] = program.Nop(+1)
	}
	m := NewProgressModel("repair", program.New(instrs), nil).(*progressModel)
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	for i := 0; i < 150; i++ {
		m.applyEvent(repair.Event{Index: i, Status: repair.StatusFailed})
	}
	first, last := m.visibleRows()
	if last-first != 12 || first != 149 {
		t.Fatalf("window = [%d, %d)", first, last)
	}
	view := m.View()
	if !strings.Contains(view, "... 149 earlier") || !strings.Contains(view, "... 39 more") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "a..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 3); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("truncate = %q", got)
	}
}
