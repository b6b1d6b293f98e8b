package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"bootcode/internal/program"
	"bootcode/internal/repair"
	"bootcode/internal/ui"
)

type repairOutcome struct {
	result repair.Result
	err    error
}

// runRepairWithUI runs the search in the background and shows its progress.
// Leaving the UI early cancels the search.
func runRepairWithUI(ctx context.Context, title string, p *program.Program, opts repair.Options) (repair.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan repair.Event, 256)
	outcomeCh := make(chan repairOutcome, 1)

	go func() {
		opts.Progress = repair.ChannelSink{Ch: events}
		res, err := repair.Search(ctx, p, opts)
		outcomeCh <- repairOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, p, events)
	prog := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := prog.Run()

	// UI мог закрыться раньше поиска: останавливаем его и вычитываем канал,
	// иначе ChannelSink заблокируется на отправке
	cancel()
	for range events {
	}
	outcome := <-outcomeCh

	if uiErr != nil {
		return outcome.result, uiErr
	}
	if errors.Is(outcome.err, context.Canceled) {
		return outcome.result, fmt.Errorf("repair interrupted: %w", outcome.err)
	}
	return outcome.result, outcome.err
}
