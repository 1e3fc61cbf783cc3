package account

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// CredentialVault is the durable store the registry mirrors to. Satisfied by
// *vault.Vault.
type CredentialVault interface {
	ReadAll() []Credential
	WriteAll([]Credential) error
	Upsert(Credential) error
	Remove(id string) error
	ActiveID() string
	SetActiveID(id string) error
}

// Snapshot is the full credential state delivered to change subscribers.
type Snapshot struct {
	Credentials []Credential
	ActiveID    string
}

// Registry is the authoritative in-memory credential list plus the single
// active-credential pointer. It is not internally synchronized: all calls
// must come from one goroutine (the engine's command loop). Every mutation
// persists to the vault and notifies subscribers with a full snapshot.
type Registry struct {
	vault  CredentialVault
	logger *log.Logger

	creds    []Credential
	activeID string

	accountsSubs []func(Snapshot)
	activeSubs   []func(Snapshot)

	now func() time.Time
}

// NewRegistry creates an empty registry backed by the given vault. Call Load
// before use.
func NewRegistry(v CredentialVault, logger *log.Logger) *Registry {
	return &Registry{vault: v, logger: logger, now: time.Now}
}

// OnAccountsChanged subscribes to credential list changes.
func (r *Registry) OnAccountsChanged(fn func(Snapshot)) {
	r.accountsSubs = append(r.accountsSubs, fn)
}

// OnActiveChanged subscribes to active-pointer changes.
func (r *Registry) OnActiveChanged(fn func(Snapshot)) {
	r.activeSubs = append(r.activeSubs, fn)
}

func (r *Registry) snapshot() Snapshot {
	return Snapshot{Credentials: cloneAll(r.creds), ActiveID: r.activeID}
}

func (r *Registry) fireAccountsChanged() {
	snap := r.snapshot()
	for _, fn := range r.accountsSubs {
		fn(snap)
	}
}

func (r *Registry) fireActiveChanged() {
	snap := r.snapshot()
	for _, fn := range r.activeSubs {
		fn(snap)
	}
}

// Load hydrates from the vault and restores the persisted active id. If the
// persisted id no longer references a stored credential, the pointer falls
// back to the first credential, or to none when the vault is empty.
func (r *Registry) Load() {
	r.creds = r.vault.ReadAll()
	r.activeID = ""

	persisted := r.vault.ActiveID()
	if persisted != "" && r.indexOf(persisted) >= 0 {
		r.activeID = persisted
	} else if len(r.creds) > 0 {
		r.activeID = r.creds[0].ID
	}

	if r.activeID != persisted {
		if err := r.vault.SetActiveID(r.activeID); err != nil {
			r.logger.Warn("persisting active credential", "err", err)
		}
	}
	r.logger.Debug("registry loaded", "accounts", len(r.creds), "active", r.activeID != "")
}

func (r *Registry) indexOf(id string) int {
	for i := range r.creds {
		if r.creds[i].ID == id {
			return i
		}
	}
	return -1
}

// GetAll returns a copy of every stored credential in add order.
func (r *Registry) GetAll() []Credential {
	return cloneAll(r.creds)
}

// Get returns the credential with the given id.
func (r *Registry) Get(id string) (Credential, bool) {
	i := r.indexOf(id)
	if i < 0 {
		return Credential{}, false
	}
	return r.creds[i].Clone(), true
}

// GetActive returns the active credential, or false when none is set.
func (r *Registry) GetActive() (Credential, bool) {
	if r.activeID == "" {
		return Credential{}, false
	}
	return r.Get(r.activeID)
}

// ActiveID returns the active credential id, or "".
func (r *Registry) ActiveID() string {
	return r.activeID
}

// SetActive promotes the credential with the given id. The previously active
// credential is demoted to idle unless it is exhausted (a throttled
// credential keeps that mark until its window resets). The newly active
// credential gets lastUsedAt stamped and, if idle, becomes healthy.
func (r *Registry) SetActive(id string) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("setting active credential: unknown id %s", id)
	}

	if prev := r.indexOf(r.activeID); prev >= 0 && r.activeID != id {
		if r.creds[prev].Status != StatusExhausted {
			r.creds[prev].Status = StatusIdle
		}
	}

	now := r.now()
	if r.creds[i].Status == StatusIdle {
		r.creds[i].Status = StatusHealthy
	}
	r.creds[i].LastUsedAt = &now
	r.activeID = id

	if err := r.persistAll(); err != nil {
		return err
	}
	if err := r.vault.SetActiveID(id); err != nil {
		return err
	}
	r.logger.Info("active account switched", "account", r.creds[i].Label())
	r.fireAccountsChanged()
	r.fireActiveChanged()
	return nil
}

// Add inserts a new credential and persists it. The first credential added
// to an empty registry becomes active.
func (r *Registry) Add(cred Credential) error {
	if r.indexOf(cred.ID) >= 0 {
		return fmt.Errorf("adding credential: duplicate id %s", cred.ID)
	}
	r.creds = append(r.creds, cred.Clone())
	if err := r.vault.Upsert(cred); err != nil {
		return err
	}

	activated := false
	if r.activeID == "" {
		r.activeID = cred.ID
		if err := r.vault.SetActiveID(cred.ID); err != nil {
			return err
		}
		activated = true
	}

	r.fireAccountsChanged()
	if activated {
		r.fireActiveChanged()
	}
	return nil
}

// Remove deletes a credential and purges its vault entry. If it was active,
// the pointer falls back to the first remaining credential or to none.
func (r *Registry) Remove(id string) error {
	i := r.indexOf(id)
	if i < 0 {
		return fmt.Errorf("removing credential: unknown id %s", id)
	}
	r.creds = append(r.creds[:i], r.creds[i+1:]...)
	if err := r.vault.Remove(id); err != nil {
		return err
	}

	activeChanged := false
	if r.activeID == id {
		r.activeID = ""
		if len(r.creds) > 0 {
			r.activeID = r.creds[0].ID
		}
		if err := r.vault.SetActiveID(r.activeID); err != nil {
			return err
		}
		activeChanged = true
	}

	r.fireAccountsChanged()
	if activeChanged {
		r.fireActiveChanged()
	}
	return nil
}

// Update replaces the stored credential with a matching id and persists it.
func (r *Registry) Update(cred Credential) error {
	i := r.indexOf(cred.ID)
	if i < 0 {
		return fmt.Errorf("updating credential: unknown id %s", cred.ID)
	}
	r.creds[i] = cred.Clone()
	if err := r.vault.Upsert(cred); err != nil {
		return err
	}
	r.fireAccountsChanged()
	return nil
}

// SaveAll replaces the whole credential list in one persistence call. The
// active pointer is cleared if its credential is gone.
func (r *Registry) SaveAll(creds []Credential) error {
	r.creds = cloneAll(creds)
	if err := r.persistAll(); err != nil {
		return err
	}

	if r.activeID != "" && r.indexOf(r.activeID) < 0 {
		r.activeID = ""
		if len(r.creds) > 0 {
			r.activeID = r.creds[0].ID
		}
		if err := r.vault.SetActiveID(r.activeID); err != nil {
			return err
		}
		r.fireAccountsChanged()
		r.fireActiveChanged()
		return nil
	}

	r.fireAccountsChanged()
	return nil
}

func (r *Registry) persistAll() error {
	return r.vault.WriteAll(r.creds)
}
