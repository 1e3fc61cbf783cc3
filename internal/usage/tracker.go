// Package usage tracks per-credential daily request counters and derives
// quota status. Counts are a client-side estimate, not a ledger: the window
// rolls whenever a stale date is observed, and only throttle detection may
// mark a credential exhausted.
package usage

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/ghswitch/ghswitch/internal/account"
)

// HistoryDays is how many archived daily counts are kept per credential.
const HistoryDays = 7

// Tracker increments usage counters through the registry and recomputes
// status against the configured daily limit.
type Tracker struct {
	registry      *account.Registry
	dailyLimit    int
	warnThreshold float64
	logger        *log.Logger

	// onWarning fires the first time a credential crosses the warning
	// threshold on a given day.
	onWarning func(account.Credential)

	now func() time.Time
}

// NewTracker creates a tracker. warnThreshold is a ratio in (0, 1], e.g. 0.8.
func NewTracker(registry *account.Registry, dailyLimit int, warnThreshold float64, logger *log.Logger) *Tracker {
	return &Tracker{
		registry:      registry,
		dailyLimit:    dailyLimit,
		warnThreshold: warnThreshold,
		logger:        logger,
		now:           time.Now,
	}
}

// SetWarningCallback registers the warning-threshold callback. Wired to the
// rotation engine at composition time.
func (t *Tracker) SetWarningCallback(fn func(account.Credential)) {
	t.onWarning = fn
}

// Increment records one request against the credential, rolling the daily
// window first when the stored date is stale. Status is recomputed from the
// new count, except that an exhausted mark is never touched mid-day: only
// throttle detection sets it, and only the window roll clears it.
func (t *Tracker) Increment(cred account.Credential) error {
	now := t.now()
	today := now.Format(account.DateLayout)

	if cred.RequestCountDate != today {
		rollWindow(&cred, today)
	}

	cred.RequestCount++
	cred.LastUsedAt = &now

	warned := false
	pct := float64(cred.RequestCount) / float64(t.dailyLimit)
	switch {
	case cred.Status == account.StatusExhausted:
		// Leave the throttle mark alone.
	case pct >= t.warnThreshold:
		cred.Status = account.StatusWarning
		if cred.WarnedDate != today {
			cred.WarnedDate = today
			warned = true
		}
	default:
		cred.Status = account.StatusHealthy
	}

	if err := t.registry.Update(cred); err != nil {
		return err
	}
	if warned {
		t.logger.Warn("account nearing daily limit", "account", cred.Label(), "requests", cred.RequestCount, "limit", t.dailyLimit)
		if t.onWarning != nil {
			t.onWarning(cred)
		}
	}
	return nil
}

// ResetAccount zeroes the credential's counter, clears the warned flag, and
// demotes warning/exhausted back to healthy.
func (t *Tracker) ResetAccount(cred account.Credential) error {
	cred.RequestCount = 0
	cred.RequestCountDate = t.now().Format(account.DateLayout)
	cred.WarnedDate = ""
	if cred.Status == account.StatusWarning || cred.Status == account.StatusExhausted {
		cred.Status = account.StatusHealthy
	}
	return t.registry.Update(cred)
}

// UsagePercent returns the credential's share of the daily limit as an
// integer percentage clamped to [0, 100]. Reads only; a stale window reports
// as 0 without mutating anything.
func (t *Tracker) UsagePercent(cred account.Credential) int {
	if cred.RequestCountDate != t.now().Format(account.DateLayout) {
		return 0
	}
	if t.dailyLimit <= 0 {
		return 0
	}
	pct := cred.RequestCount * 100 / t.dailyLimit
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// History returns the credential's archived daily counts, oldest first.
func (t *Tracker) History(cred account.Credential) []account.DayUsage {
	out := make([]account.DayUsage, len(cred.UsageHistory))
	copy(out, cred.UsageHistory)
	return out
}

// DailyLimit returns the configured per-day request limit.
func (t *Tracker) DailyLimit() int {
	return t.dailyLimit
}

// rollWindow archives the previous day's count and starts a fresh window.
// Shared by the tracker and the rotation engine's daily sweep.
func rollWindow(cred *account.Credential, today string) {
	if cred.RequestCountDate != "" && cred.RequestCount > 0 {
		cred.UsageHistory = append(cred.UsageHistory, account.DayUsage{
			Date:  cred.RequestCountDate,
			Count: cred.RequestCount,
		})
		if len(cred.UsageHistory) > HistoryDays {
			cred.UsageHistory = cred.UsageHistory[len(cred.UsageHistory)-HistoryDays:]
		}
	}
	cred.RequestCount = 0
	cred.RequestCountDate = today
	cred.WarnedDate = ""
	if cred.Status == account.StatusWarning || cred.Status == account.StatusExhausted {
		cred.Status = account.StatusHealthy
	}
}

// RollWindowIfStale rolls the credential's daily window in place when its
// stored date is not today. Returns true if anything changed.
func RollWindowIfStale(cred *account.Credential, now time.Time) bool {
	today := now.Format(account.DateLayout)
	if cred.RequestCountDate == today {
		return false
	}
	rollWindow(cred, today)
	return true
}
