package deviceflow

import (
	"context"
	"sync"

	"github.com/ghswitch/ghswitch/internal/account"
)

// Manager enforces the single-flow rule: starting a new authorization
// cancels any flow still polling.
type Manager struct {
	mu      sync.Mutex
	newFlow func() *Flow
	current *Flow
}

// NewManager creates a manager that builds flows with the given constructor.
func NewManager(newFlow func() *Flow) *Manager {
	return &Manager{newFlow: newFlow}
}

// Start cancels any in-flight flow, then runs a fresh one to completion.
func (m *Manager) Start(ctx context.Context, scopes []string, alias string) (account.Credential, error) {
	m.mu.Lock()
	if m.current != nil {
		m.current.Cancel()
	}
	flow := m.newFlow()
	m.current = flow
	m.mu.Unlock()

	cred, err := flow.Authorize(ctx, scopes, alias)

	m.mu.Lock()
	if m.current == flow {
		m.current = nil
	}
	m.mu.Unlock()
	return cred, err
}

// Cancel stops the in-flight flow, if any.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Cancel()
	}
}
