// Package notify is the collaborator surface the engine uses to reach the
// user. The engine never renders anything itself; it hands messages (and at
// most one optional action) to whatever host implementation is wired in.
package notify

import (
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/ghswitch/ghswitch/internal/prompt"
)

// Action is an optional follow-up the user may select. The callback runs at
// most once.
type Action struct {
	Label    string
	Callback func()

	once sync.Once
}

// Invoke runs the callback, guaranteeing at-most-once semantics even when
// the host delivers the selection twice.
func (a *Action) Invoke() {
	if a == nil || a.Callback == nil {
		return
	}
	a.once.Do(a.Callback)
}

// Notifier delivers fire-and-forget messages to the user.
type Notifier interface {
	Info(msg string, action *Action)
	Warning(msg string, action *Action)
	Error(msg string, action *Action)
}

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	labelStyle = lipgloss.NewStyle().Bold(true)
)

// Terminal renders notifications as styled lines. When a message carries an
// action and the terminal is interactive, the user is offered a yes/no
// confirmation before the callback fires.
type Terminal struct {
	W           io.Writer
	Prompter    prompt.Prompter
	Interactive bool
}

func (t *Terminal) Info(msg string, action *Action) {
	t.emit(infoStyle.Render("•")+" "+msg, action)
}

func (t *Terminal) Warning(msg string, action *Action) {
	t.emit(warnStyle.Render("!")+" "+msg, action)
}

func (t *Terminal) Error(msg string, action *Action) {
	t.emit(errStyle.Render("✗")+" "+msg, action)
}

func (t *Terminal) emit(line string, action *Action) {
	_, _ = io.WriteString(t.W, line+"\n")
	if action == nil {
		return
	}
	if !t.Interactive || t.Prompter == nil {
		_, _ = io.WriteString(t.W, "  "+labelStyle.Render(action.Label)+"\n")
		return
	}
	ok, err := t.Prompter.Confirm(prompt.ConfirmConfig{
		Title:       action.Label,
		Affirmative: "Yes",
		Negative:    "No",
	})
	if err == nil && ok {
		action.Invoke()
	}
}
