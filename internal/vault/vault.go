// Package vault persists the credential array encrypted at rest. Plaintext
// token material never touches disk: the credential record is sealed with an
// age x25519 identity whose key file sits next to the store with 0600
// permissions.
package vault

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"filippo.io/age"
	"github.com/charmbracelet/log"

	"github.com/ghswitch/ghswitch/internal/account"
)

const (
	credentialsKey = "credentials.age"
	identityKey    = "identity.key"
	activeKey      = "active"
)

// Vault is an encrypted, durable store for the credential array plus the
// persisted active-credential id. All operations are serialized by an
// internal mutex so no reader observes a partial array.
type Vault struct {
	mu       sync.Mutex
	store    Store
	identity *age.X25519Identity
	logger   *log.Logger
}

// New opens a vault on the given store, generating and persisting an
// encryption identity on first use.
func New(store Store, logger *log.Logger) (*Vault, error) {
	v := &Vault{store: store, logger: logger}
	if err := v.loadOrCreateIdentity(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vault) loadOrCreateIdentity() error {
	raw, err := v.store.Get(identityKey)
	if err != nil {
		return fmt.Errorf("loading vault identity: %w", err)
	}
	if len(raw) > 0 {
		identity, err := age.ParseX25519Identity(strings.TrimSpace(string(raw)))
		if err != nil {
			return fmt.Errorf("parsing vault identity: %w", err)
		}
		v.identity = identity
		return nil
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating vault identity: %w", err)
	}
	if err := v.store.Set(identityKey, []byte(identity.String()+"\n")); err != nil {
		return fmt.Errorf("persisting vault identity: %w", err)
	}
	v.identity = identity
	return nil
}

// ReadAll returns every stored credential. A missing or corrupt record
// yields an empty list so a damaged vault never blocks startup.
func (v *Vault) ReadAll() []account.Credential {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readAllLocked()
}

func (v *Vault) readAllLocked() []account.Credential {
	ciphertext, err := v.store.Get(credentialsKey)
	if err != nil || len(ciphertext) == 0 {
		return nil
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), v.identity)
	if err != nil {
		v.logger.Warn("vault record is unreadable, starting empty", "err", err)
		return nil
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		v.logger.Warn("vault record is unreadable, starting empty", "err", err)
		return nil
	}

	var creds []account.Credential
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		v.logger.Warn("vault record is corrupt, starting empty", "err", err)
		return nil
	}
	return creds
}

// WriteAll replaces the stored credential array.
func (v *Vault) WriteAll(creds []account.Credential) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writeAllLocked(creds)
}

func (v *Vault) writeAllLocked(creds []account.Credential) error {
	if creds == nil {
		creds = []account.Credential{}
	}
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, v.identity.Recipient())
	if err != nil {
		return fmt.Errorf("sealing credentials: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("sealing credentials: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("sealing credentials: %w", err)
	}

	return v.store.Set(credentialsKey, ciphertext.Bytes())
}

// Upsert replaces the credential with a matching id, or appends it.
func (v *Vault) Upsert(cred account.Credential) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	creds := v.readAllLocked()
	replaced := false
	for i := range creds {
		if creds[i].ID == cred.ID {
			creds[i] = cred
			replaced = true
			break
		}
	}
	if !replaced {
		creds = append(creds, cred)
	}
	return v.writeAllLocked(creds)
}

// Remove deletes the credential with the given id, if present.
func (v *Vault) Remove(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	creds := v.readAllLocked()
	kept := creds[:0]
	for _, c := range creds {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	return v.writeAllLocked(kept)
}

// Clear removes every stored credential and the active pointer.
func (v *Vault) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.store.Delete(credentialsKey); err != nil {
		return err
	}
	return v.store.Delete(activeKey)
}

// ActiveID returns the persisted active-credential id, or "".
func (v *Vault) ActiveID() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	raw, err := v.store.Get(activeKey)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// SetActiveID persists the active-credential id. An empty id clears it.
func (v *Vault) SetActiveID(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if id == "" {
		return v.store.Delete(activeKey)
	}
	return v.store.Set(activeKey, []byte(id))
}
