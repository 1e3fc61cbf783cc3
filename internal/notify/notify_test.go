package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ghswitch/ghswitch/internal/prompt"
)

func TestAction_InvokeAtMostOnce(t *testing.T) {
	calls := 0
	a := &Action{Label: "do it", Callback: func() { calls++ }}

	a.Invoke()
	a.Invoke()
	a.Invoke()
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}

func TestAction_NilSafe(t *testing.T) {
	var a *Action
	a.Invoke()
	(&Action{Label: "no callback"}).Invoke()
}

func TestTerminal_RendersMessage(t *testing.T) {
	var buf bytes.Buffer
	term := &Terminal{W: &buf}

	term.Warning("account throttled", nil)
	if !strings.Contains(buf.String(), "account throttled") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestTerminal_NonInteractivePrintsActionLabel(t *testing.T) {
	var buf bytes.Buffer
	term := &Terminal{W: &buf}

	invoked := false
	term.Warning("limit hit", &Action{Label: "Switch account now", Callback: func() { invoked = true }})

	if !strings.Contains(buf.String(), "Switch account now") {
		t.Errorf("output = %q, want action label", buf.String())
	}
	if invoked {
		t.Error("action ran without user consent")
	}
}

func TestTerminal_InteractiveConfirmRunsAction(t *testing.T) {
	var buf bytes.Buffer
	prompter := &prompt.Mock{ConfirmFunc: func(prompt.ConfirmConfig) (bool, error) { return true, nil }}
	term := &Terminal{W: &buf, Prompter: prompter, Interactive: true}

	invoked := false
	term.Info("limit hit", &Action{Label: "Switch account now", Callback: func() { invoked = true }})

	if !invoked {
		t.Error("accepted action did not run")
	}
	if len(prompter.ConfirmCalls) != 1 {
		t.Errorf("confirm prompts = %d, want 1", len(prompter.ConfirmCalls))
	}
}

func TestTerminal_InteractiveDeclineSkipsAction(t *testing.T) {
	var buf bytes.Buffer
	prompter := &prompt.Mock{ConfirmFunc: func(prompt.ConfirmConfig) (bool, error) { return false, nil }}
	term := &Terminal{W: &buf, Prompter: prompter, Interactive: true}

	invoked := false
	term.Info("limit hit", &Action{Label: "Switch", Callback: func() { invoked = true }})
	if invoked {
		t.Error("declined action ran anyway")
	}
}

func TestMock_RecordsInOrder(t *testing.T) {
	m := &Mock{}
	m.Info("one", nil)
	m.Error("two", nil)

	msgs := m.Messages()
	if len(msgs) != 2 || msgs[0] != "one" || msgs[1] != "two" {
		t.Errorf("messages = %v", msgs)
	}
	if m.Records[1].Level != "error" {
		t.Errorf("level = %s, want error", m.Records[1].Level)
	}
}
