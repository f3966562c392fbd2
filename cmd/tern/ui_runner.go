package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tern/internal/monitor"
	"tern/internal/scenario"
)

type runOutcome struct {
	result *scenario.Result
	err    error
}

// runWithUI executes a scenario while a Bubble Tea task table renders its
// progress events.
func runWithUI(title string, spec *scenario.Spec, opts scenario.Options) (*scenario.Result, error) {
	events := make(chan scenario.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = scenario.ChannelSink{Ch: events}
		res, err := scenario.Run(spec, optsCopy)
		outcomeCh <- runOutcome{result: res, err: err}
		close(events)
	}()

	names := make([]string, 0, len(spec.Tasks))
	for _, t := range spec.Tasks {
		names = append(names, t.Name)
	}

	model := monitor.New(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
