package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/beamforge/beamforge/internal/dag"
)

type nodeDoneMsg struct {
	completed int
	total     int
	kind      dag.Kind
}

type runFinishedMsg struct {
	err error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	logStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// dashboardModel renders live per-node progress for one Execute call,
// fed by runtime.Options.Progress via a channel bridged into
// bubbletea messages.
type dashboardModel struct {
	label     string
	bar       progress.Model
	completed int
	total     int
	log       []string
	finished  bool
	runErr    error
	events    <-chan tea.Msg
}

func newDashboardModel(label string, events <-chan tea.Msg) dashboardModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 36
	return dashboardModel{label: label, bar: bar, events: events}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return runFinishedMsg{}
		}
		return msg
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case nodeDoneMsg:
		m.completed = msg.completed
		m.total = msg.total
		m.log = append(m.log, fmt.Sprintf("node %d/%d complete (%v)", msg.completed, msg.total, msg.kind))
		return m, waitForEvent(m.events)
	case runFinishedMsg:
		m.finished = true
		m.runErr = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	header := titleStyle.Render(fmt.Sprintf("flowctl • %s", m.label))

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.completed) / float64(m.total)
	}
	bar := fmt.Sprintf("%s %d/%d", m.bar.ViewAs(ratio), m.completed, m.total)

	var status string
	switch {
	case !m.finished:
		status = "running..."
	case m.runErr != nil:
		status = failureStyle.Render("failed: " + m.runErr.Error())
	default:
		status = successStyle.Render("done")
	}

	tail := m.log
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	var lines string
	for _, l := range tail {
		lines += logStyle.Render(l) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, bar, status, lines)
}
