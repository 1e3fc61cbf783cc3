package bridge

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ghswitch/ghswitch/internal/account"
	"github.com/ghswitch/ghswitch/internal/prompt"
)

type memVault struct {
	creds    []account.Credential
	activeID string
}

func (m *memVault) ReadAll() []account.Credential { return append([]account.Credential(nil), m.creds...) }
func (m *memVault) WriteAll(creds []account.Credential) error {
	m.creds = append([]account.Credential(nil), creds...)
	return nil
}
func (m *memVault) Upsert(cred account.Credential) error {
	for i := range m.creds {
		if m.creds[i].ID == cred.ID {
			m.creds[i] = cred
			return nil
		}
	}
	m.creds = append(m.creds, cred)
	return nil
}
func (m *memVault) Remove(id string) error      { return nil }
func (m *memVault) ActiveID() string            { return m.activeID }
func (m *memVault) SetActiveID(id string) error { m.activeID = id; return nil }

// fakeProber grants access per token and records which tokens were probed.
type fakeProber struct {
	mu      sync.Mutex
	granted map[string]bool
	probed  []string
}

func (p *fakeProber) CanAccessRepo(ctx context.Context, token, owner, repo string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, token)
	return p.granted[token]
}

func cred(id string) account.Credential {
	return account.Credential{
		ID:               id,
		ProviderUsername: "user-" + id,
		Token:            "tok-" + id,
		Status:           account.StatusHealthy,
		RequestCountDate: "2026-08-29",
	}
}

func newTestBridge(t *testing.T, prober Prober, prompter prompt.Prompter, creds ...account.Credential) (*Bridge, *account.Registry) {
	t.Helper()
	logger := log.New(io.Discard)
	activeID := ""
	if len(creds) > 0 {
		activeID = creds[0].ID
	}
	reg := account.NewRegistry(&memVault{creds: creds, activeID: activeID}, logger)
	reg.Load()
	return New(reg, prober, prompter, 0, logger), reg
}

func TestParseRemote(t *testing.T) {
	tests := []struct {
		url   string
		owner string
		repo  string
		ok    bool
	}{
		{"https://github.com/octocat/hello-world", "octocat", "hello-world", true},
		{"https://github.com/octocat/hello-world.git", "octocat", "hello-world", true},
		{"https://github.com/octocat/hello-world/", "octocat", "hello-world", true},
		{"https://github.com/octocat/repo.with.dots.git", "octocat", "repo.with.dots", true},
		{"git@github.com:octocat/hello-world.git", "", "", false},
		{"https://gitlab.com/octocat/hello-world", "", "", false},
		{"https://github.com/octocat", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := ParseRemote(tt.url)
		if ok != tt.ok || owner != tt.owner || repo != tt.repo {
			t.Errorf("ParseRemote(%q) = %q, %q, %v; want %q, %q, %v",
				tt.url, owner, repo, ok, tt.owner, tt.repo, tt.ok)
		}
	}
}

func TestResolveCredentials(t *testing.T) {
	b, _ := newTestBridge(t, &fakeProber{}, &prompt.Mock{}, cred("a"))

	got, ok := b.ResolveCredentials("https://github.com/octocat/hello-world.git")
	if !ok {
		t.Fatal("ResolveCredentials returned false")
	}
	if got.Username != "user-a" {
		t.Errorf("username = %q, want user-a", got.Username)
	}
	if got.Secret != "x-access-token:tok-a" {
		t.Errorf("secret = %q, want token-formatted secret", got.Secret)
	}
}

func TestResolveCredentials_NonGitHubRemote(t *testing.T) {
	b, _ := newTestBridge(t, &fakeProber{}, &prompt.Mock{}, cred("a"))
	if _, ok := b.ResolveCredentials("https://gitlab.com/x/y"); ok {
		t.Error("resolved a credential for a non-GitHub remote")
	}
}

func TestResolveCredentials_NoActive(t *testing.T) {
	b, _ := newTestBridge(t, &fakeProber{}, &prompt.Mock{})
	if _, ok := b.ResolveCredentials("https://github.com/x/y"); ok {
		t.Error("resolved a credential with no active account")
	}
}

func TestCheckCrossAccount_SwitchesOnConsent(t *testing.T) {
	prober := &fakeProber{granted: map[string]bool{"tok-c": true}}
	prompter := &prompt.Mock{ConfirmFunc: func(prompt.ConfirmConfig) (bool, error) { return true, nil }}
	b, reg := newTestBridge(t, prober, prompter, cred("a"), cred("b"), cred("c"))

	switched := b.CheckCrossAccountRemote(context.Background(), "https://github.com/someone/private-repo")
	if !switched {
		t.Fatal("CheckCrossAccountRemote = false, want switch")
	}
	if got := reg.ActiveID(); got != "c" {
		t.Errorf("active id = %q, want c", got)
	}

	// The active credential is never probed.
	prober.mu.Lock()
	defer prober.mu.Unlock()
	if len(prober.probed) != 2 {
		t.Errorf("probes = %d, want 2", len(prober.probed))
	}
	for _, tok := range prober.probed {
		if tok == "tok-a" {
			t.Error("active credential was probed")
		}
	}
	if len(prompter.ConfirmCalls) != 1 {
		t.Errorf("confirm prompts = %d, want 1", len(prompter.ConfirmCalls))
	}
}

func TestCheckCrossAccount_DeclinedKeepsActive(t *testing.T) {
	prober := &fakeProber{granted: map[string]bool{"tok-b": true}}
	prompter := &prompt.Mock{ConfirmFunc: func(prompt.ConfirmConfig) (bool, error) { return false, nil }}
	b, reg := newTestBridge(t, prober, prompter, cred("a"), cred("b"))

	if b.CheckCrossAccountRemote(context.Background(), "https://github.com/x/y") {
		t.Error("CheckCrossAccountRemote = true after decline")
	}
	if got := reg.ActiveID(); got != "a" {
		t.Errorf("active id = %q, want a", got)
	}
}

func TestCheckCrossAccount_NoAccessAnywhere(t *testing.T) {
	prompter := &prompt.Mock{}
	b, reg := newTestBridge(t, &fakeProber{}, prompter, cred("a"), cred("b"))

	if b.CheckCrossAccountRemote(context.Background(), "https://github.com/x/y") {
		t.Error("CheckCrossAccountRemote = true with no access anywhere")
	}
	if len(prompter.ConfirmCalls) != 0 {
		t.Errorf("confirm prompts = %d, want 0", len(prompter.ConfirmCalls))
	}
	if got := reg.ActiveID(); got != "a" {
		t.Errorf("active id = %q, want a", got)
	}
}

func TestCheckCrossAccount_SingleAccountSkips(t *testing.T) {
	prober := &fakeProber{granted: map[string]bool{"tok-a": true}}
	b, _ := newTestBridge(t, prober, &prompt.Mock{}, cred("a"))

	if b.CheckCrossAccountRemote(context.Background(), "https://github.com/x/y") {
		t.Error("CheckCrossAccountRemote = true with a single account")
	}
	if len(prober.probed) != 0 {
		t.Errorf("probes = %d, want 0", len(prober.probed))
	}
}

func TestCheckCrossAccount_PrefersStoredOrder(t *testing.T) {
	// Both b and c can access; the earlier-stored one wins.
	prober := &fakeProber{granted: map[string]bool{"tok-b": true, "tok-c": true}}
	prompter := &prompt.Mock{ConfirmFunc: func(prompt.ConfirmConfig) (bool, error) { return true, nil }}
	b, reg := newTestBridge(t, prober, prompter, cred("a"), cred("b"), cred("c"))

	if !b.CheckCrossAccountRemote(context.Background(), "https://github.com/x/y") {
		t.Fatal("CheckCrossAccountRemote = false")
	}
	if got := reg.ActiveID(); got != "b" {
		t.Errorf("active id = %q, want b (stored order)", got)
	}
}

func TestCheckCrossAccount_InvalidRemote(t *testing.T) {
	prober := &fakeProber{granted: map[string]bool{"tok-b": true}}
	b, _ := newTestBridge(t, prober, &prompt.Mock{}, cred("a"), cred("b"))

	if b.CheckCrossAccountRemote(context.Background(), "git@github.com:x/y.git") {
		t.Error("CheckCrossAccountRemote = true for an SSH remote")
	}
	if len(prober.probed) != 0 {
		t.Errorf("probes = %d, want 0", len(prober.probed))
	}
}

// A slow probe must be bounded by the per-probe timeout rather than hanging
// the check.
func TestCheckCrossAccount_SlowProbeTimesOut(t *testing.T) {
	prober := &slowProber{}
	logger := log.New(io.Discard)
	reg := account.NewRegistry(&memVault{
		creds:    []account.Credential{cred("a"), cred("b")},
		activeID: "a",
	}, logger)
	reg.Load()
	b := New(reg, prober, &prompt.Mock{}, 20*time.Millisecond, logger)

	done := make(chan bool, 1)
	go func() {
		done <- b.CheckCrossAccountRemote(context.Background(), "https://github.com/x/y")
	}()
	select {
	case switched := <-done:
		if switched {
			t.Error("CheckCrossAccountRemote = true, want false on timeout")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("CheckCrossAccountRemote hung past the probe timeout")
	}
}

type slowProber struct{}

func (slowProber) CanAccessRepo(ctx context.Context, token, owner, repo string) bool {
	<-ctx.Done()
	return false
}
