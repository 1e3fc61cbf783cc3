// Package account holds the credential model and the in-memory registry
// that owns the single active-credential pointer.
package account

import (
	"time"
)

// DateLayout is the calendar-date format used for daily usage windows.
const DateLayout = "2006-01-02"

// Status describes a credential's rotation state.
type Status string

const (
	// StatusIdle marks a credential that is stored but not active.
	StatusIdle Status = "idle"
	// StatusHealthy marks a usable credential under its quota.
	StatusHealthy Status = "healthy"
	// StatusWarning marks a credential near its daily quota.
	StatusWarning Status = "warning"
	// StatusExhausted marks a credential that was throttled by the provider
	// and should not be used until its daily window resets.
	StatusExhausted Status = "exhausted"
)

// DayUsage is one archived day of request counts.
type DayUsage struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Credential is one linked GitHub identity. Token material is persisted only
// through the vault; instances outside the registry are working copies.
type Credential struct {
	ID               string     `json:"id"`
	Alias            string     `json:"alias,omitempty"`
	ProviderUserID   int64      `json:"providerUserId"`
	ProviderUsername string     `json:"providerUsername"`
	AvatarURL        string     `json:"avatarUrl,omitempty"`
	Token            string     `json:"token"`
	RefreshToken     string     `json:"refreshToken,omitempty"`
	Scopes           []string   `json:"scopes,omitempty"`
	RequestCount     int        `json:"requestCount"`
	RequestCountDate string     `json:"requestCountDate"`
	Status           Status     `json:"status"`
	AddedAt          time.Time  `json:"addedAt"`
	LastUsedAt       *time.Time `json:"lastUsedAt,omitempty"`

	// UsageHistory holds up to the last seven archived daily counts,
	// most recent last.
	UsageHistory []DayUsage `json:"usageHistory,omitempty"`
	// WarnedDate is the calendar date on which the quota warning last
	// fired, so the warning is raised at most once per day.
	WarnedDate string `json:"warnedDate,omitempty"`
}

// Label returns the user-facing name for the credential: the alias when set,
// otherwise the provider login.
func (c Credential) Label() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.ProviderUsername
}

// Clone returns a deep copy so callers can mutate working copies without
// aliasing registry state.
func (c Credential) Clone() Credential {
	out := c
	if c.Scopes != nil {
		out.Scopes = make([]string, len(c.Scopes))
		copy(out.Scopes, c.Scopes)
	}
	if c.UsageHistory != nil {
		out.UsageHistory = make([]DayUsage, len(c.UsageHistory))
		copy(out.UsageHistory, c.UsageHistory)
	}
	if c.LastUsedAt != nil {
		t := *c.LastUsedAt
		out.LastUsedAt = &t
	}
	return out
}

func cloneAll(creds []Credential) []Credential {
	out := make([]Credential, len(creds))
	for i, c := range creds {
		out[i] = c.Clone()
	}
	return out
}
