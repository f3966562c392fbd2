// Package monitor renders a live task-table view of a running scenario.
package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"tern/internal/scenario"
)

type taskItem struct {
	name   string
	status string
	detail string
}

type model struct {
	title   string
	events  <-chan scenario.Event
	spinner spinner.Model
	items   []taskItem
	index   map[string]int
	step    int
	width   int
	done    bool
}

type eventMsg scenario.Event
type doneMsg struct{}

// New returns a Bubble Tea model that renders scenario progress.
func New(title string, tasks []string, events <-chan scenario.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	items := make([]taskItem, 0, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, name := range tasks {
		items = append(items, taskItem{name: name, status: "live"})
		index[name] = i
	}
	return &model{
		title:   title,
		events:  events,
		spinner: sp,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.applyEvent(scenario.Event(msg))
		return m, m.listenForEvent()
	case doneMsg:
		m.done = true
		return m, tea.Quit
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
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m *model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s [step %d]", m.title, m.step)
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 18
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 16 {
		nameWidth = 16
	}

	for _, item := range m.items {
		name := truncate(item.name, nameWidth)
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%18s", item.status))
		b.WriteString(fmt.Sprintf("  %s %s", statusStyled, name))
		if item.detail != "" {
			b.WriteString("  " + item.detail)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	return b.String()
}

func (m *model) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *model) applyEvent(ev scenario.Event) {
	if ev.Step > m.step {
		m.step = ev.Step
	}
	switch ev.Kind {
	case "done":
		return
	case "request":
		if idx, ok := m.index[ev.Task]; ok {
			m.items[idx].status = ev.Detail
		}
	case "gone":
		if idx, ok := m.index[ev.Task]; ok {
			m.items[idx].status = "gone"
		}
	case "spawn":
		if idx, ok := m.index[ev.Task]; ok {
			m.items[idx].status = "live"
			m.items[idx].detail = ev.Detail
		}
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "gone", "killed", "self-exit":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "pending-held", "pending-deferred":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case "live":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
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
	return runewidth.Truncate(value, width-3, "...")
}
