package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"bootcode/internal/program"
	"bootcode/internal/repair"
)

type progressModel struct {
	title   string
	events  <-chan repair.Event
	spinner spinner.Model
	prog    progress.Model
	items   []candidateItem
	index   map[int]int // instruction index -> row
	width   int
	height  int
	winner  int // row of the successful candidate, -1 if none
	done    bool
}

type candidateItem struct {
	pc     int
	from   program.Instruction
	to     program.Instruction
	status repair.CandidateStatus
	acc    int64
	final  string
}

type eventMsg repair.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders repair progress
// for every flip candidate of p. The model quits when events is closed.
func NewProgressModel(title string, p *program.Program, events <-chan repair.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76 // Default width

	cands := p.Candidates()
	items := make([]candidateItem, 0, len(cands))
	index := make(map[int]int, len(cands))
	for row, pc := range cands {
		from := p.At(pc)
		to, _ := from.Flip()
		items = append(items, candidateItem{pc: pc, from: from, to: to, status: repair.StatusQueued})
		index[pc] = row
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
		height:  24,
		winner:  -1,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(repair.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		if msg.Height > 0 {
			m.height = msg.Height
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	finished := m.finished()
	header := fmt.Sprintf("%s (%d/%d candidates)", m.title, finished, len(m.items))
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString("  no nop/jmp instructions to flip\n")
		return b.String()
	}

	statusWidth := 8
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}

	first, last := m.visibleRows()
	if first > 0 {
		fmt.Fprintf(&b, "  ... %d earlier\n", first)
	}
	for _, item := range m.items[first:last] {
		line := fmt.Sprintf("pc=%-5d %s -> %s", item.pc, item.from, item.to)
		if item.final != "" {
			line += "  " + item.final
		}
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%8s", item.status))
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, truncate(line, nameWidth))
	}
	if rest := len(m.items) - last; rest > 0 {
		fmt.Fprintf(&b, "  ... %d more\n", rest)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

// visibleRows picks a window that fits the terminal and starts at the first
// candidate still in flight, so long listings keep the action on screen.
func (m *progressModel) visibleRows() (int, int) {
	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	if len(m.items) <= rows {
		return 0, len(m.items)
	}
	first := 0
	for first < len(m.items) && m.items[first].status.Terminal() {
		first++
	}
	if m.winner >= 0 {
		first = m.winner
	}
	first = max(0, min(first-1, len(m.items)-rows))
	return first, first + rows
}

func (m *progressModel) finished() int {
	n := 0
	for _, item := range m.items {
		if item.status.Terminal() {
			n++
		}
	}
	return n
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev repair.Event) tea.Cmd {
	row, ok := m.index[ev.Index]
	if !ok {
		return nil
	}
	item := &m.items[row]
	item.status = ev.Status
	switch ev.Status {
	case repair.StatusDone:
		m.winner = row
		item.acc = ev.Final.Acc
		item.final = fmt.Sprintf("acc=%d", ev.Final.Acc)
	case repair.StatusFailed:
		item.final = ev.Final.Status.String()
	}

	if len(m.items) == 0 {
		return nil
	}
	return m.prog.SetPercent(float64(m.finished()) / float64(len(m.items)))
}

func styleStatus(status repair.CandidateStatus) lipgloss.Style {
	switch status {
	case repair.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case repair.StatusFailed:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case repair.StatusRunning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
