// Package spinner shows transient progress while a single long-running
// operation (the device-flow poll) completes.
package spinner

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// doneMsg is sent to the model when the awaited operation completes.
type doneMsg struct{ err error }

type model struct {
	spinner  spinner.Model
	message  string
	quitting bool
	aborted  bool
}

var dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

func newModel(message string) model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return model{spinner: s, message: message}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			m.aborted = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m model) View() string {
	// The spinner is transient progress UI; leave nothing behind when done.
	if m.quitting {
		return ""
	}
	return m.spinner.View() + " " + dimStyle.Render(m.message)
}

// Show renders a spinner with the message until wait returns, then returns
// wait's error. Ctrl+C calls cancel (bubbletea consumes the interrupt key,
// so the signal context never sees it) and then waits for wait to unwind.
func Show(message string, cancel func(), wait func() error) error {
	p := tea.NewProgram(newModel(message))

	result := make(chan error, 1)
	go func() {
		err := wait()
		result <- err
		p.Send(doneMsg{err: err})
	}()

	final, err := p.Run()
	if err == nil {
		if m, ok := final.(model); ok && m.aborted && cancel != nil {
			cancel()
		}
	}
	return <-result
}
