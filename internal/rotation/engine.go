// Package rotation decides which credential becomes active next and reacts
// to throttle signals from the request interceptor.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ghswitch/ghswitch/internal/account"
	"github.com/ghswitch/ghswitch/internal/notify"
	"github.com/ghswitch/ghswitch/internal/usage"
)

// ErrNoCredentialAvailable is returned by SelectNext when every other
// credential is exhausted (or the strategy is manual). It is surfaced to the
// user as a notification, never treated as fatal.
var ErrNoCredentialAvailable = errors.New("no credential available for rotation")

// DefaultSweepInterval is how often the daily-reset sweep runs. Correctness
// only needs the sweep to run eventually after date rollover.
const DefaultSweepInterval = time.Hour

// Engine owns rotation policy. Like the registry it must be driven from a
// single goroutine; the one exception is the throttle path, which may be hit
// from HTTP transport goroutines and is guarded by a reentrancy flag.
type Engine struct {
	registry *account.Registry
	notifier notify.Notifier
	strategy Strategy
	logger   *log.Logger

	// rotating collapses bursts of throttle signals into one rotation. It
	// is held for the whole throttle-handling sequence and cleared on every
	// exit path.
	rotating atomic.Bool

	now func() time.Time
}

// NewEngine creates a rotation engine with the given strategy.
func NewEngine(registry *account.Registry, notifier notify.Notifier, strategy Strategy, logger *log.Logger) *Engine {
	return &Engine{
		registry: registry,
		notifier: notifier,
		strategy: strategy,
		logger:   logger,
		now:      time.Now,
	}
}

// Strategy returns the active rotation strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// SetStrategy switches the rotation policy at runtime.
func (e *Engine) SetStrategy(s Strategy) {
	e.strategy = s
}

// SelectNext returns the credential that should become active next, or
// ErrNoCredentialAvailable. The active credential and exhausted credentials
// are never candidates. Manual strategy always reports no candidate.
func (e *Engine) SelectNext() (account.Credential, error) {
	return e.selectNext(e.strategy)
}

func (e *Engine) selectNext(strategy Strategy) (account.Credential, error) {
	if strategy == StrategyManual {
		return account.Credential{}, ErrNoCredentialAvailable
	}

	creds := e.registry.GetAll()
	activeID := e.registry.ActiveID()

	switch strategy {
	case StrategyLeastUsed:
		best := -1
		for i, c := range creds {
			if c.ID == activeID || c.Status == account.StatusExhausted {
				continue
			}
			if best < 0 || c.RequestCount < creds[best].RequestCount {
				best = i
			}
		}
		if best < 0 {
			return account.Credential{}, ErrNoCredentialAvailable
		}
		return creds[best], nil

	default: // round-robin
		// Walk the full list starting just after the active credential,
		// wrapping once, so cycling follows stable add order rather than
		// the order of whatever happens to be non-exhausted.
		start := 0
		for i, c := range creds {
			if c.ID == activeID {
				start = i + 1
				break
			}
		}
		for off := 0; off < len(creds); off++ {
			c := creds[(start+off)%len(creds)]
			if c.ID == activeID || c.Status == account.StatusExhausted {
				continue
			}
			return c, nil
		}
		return account.Credential{}, ErrNoCredentialAvailable
	}
}

// OnThrottled handles a provider throttle signal (HTTP 429) for the given
// credential. Rapid or concurrent signals collapse into a single rotation:
// the reentrancy flag rejects overlapping calls, and a credential already
// marked exhausted is a stale signal from before the switch.
func (e *Engine) OnThrottled(cred account.Credential) {
	if !e.rotating.CompareAndSwap(false, true) {
		return
	}
	defer e.rotating.Store(false)

	current, ok := e.registry.Get(cred.ID)
	if !ok || current.Status == account.StatusExhausted {
		return
	}

	e.logger.Warn("account throttled by provider", "account", current.Label())
	current.Status = account.StatusExhausted
	if err := e.registry.Update(current); err != nil {
		e.logger.Error("persisting throttled account", "err", err)
		return
	}

	if e.strategy == StrategyManual {
		e.notifier.Warning(
			fmt.Sprintf("%s hit its rate limit. Rotation is manual.", current.Label()),
			&notify.Action{Label: "Switch account now", Callback: func() { e.rotateNow() }},
		)
		return
	}

	next, err := e.SelectNext()
	if err != nil {
		e.notifier.Warning("All accounts are rate limited. Add another account or wait for the daily reset.", nil)
		return
	}
	if err := e.registry.SetActive(next.ID); err != nil {
		e.notifier.Error(fmt.Sprintf("Failed to switch accounts: %v", err), nil)
		return
	}
	e.notifier.Info(fmt.Sprintf("%s hit its rate limit. Switched to %s.", current.Label(), next.Label()), nil)
}

// rotateNow performs a user-initiated rotation, used by the manual-strategy
// notification action. User-initiated switches always walk round-robin.
func (e *Engine) rotateNow() {
	next, err := e.selectNext(StrategyRoundRobin)
	if err != nil {
		e.notifier.Warning("No other account is available to switch to.", nil)
		return
	}
	if err := e.registry.SetActive(next.ID); err != nil {
		e.notifier.Error(fmt.Sprintf("Failed to switch accounts: %v", err), nil)
		return
	}
	e.notifier.Info(fmt.Sprintf("Switched to %s.", next.Label()), nil)
}

// Rotate performs a user-initiated switch to the next candidate and returns
// it. Unlike OnThrottled it reports errors to the caller, and it works under
// the manual strategy by walking round-robin order.
func (e *Engine) Rotate() (account.Credential, error) {
	strategy := e.strategy
	if strategy == StrategyManual {
		strategy = StrategyRoundRobin
	}
	next, err := e.selectNext(strategy)
	if err != nil {
		return account.Credential{}, err
	}
	if err := e.registry.SetActive(next.ID); err != nil {
		return account.Credential{}, err
	}
	return next, nil
}

// OnWarningThreshold is informational only; it never changes state.
func (e *Engine) OnWarningThreshold(cred account.Credential) {
	e.notifier.Warning(fmt.Sprintf("%s is nearing its daily request limit.", cred.Label()), nil)
}

// ResetDailyCountsIfNeeded rolls the daily window of every credential whose
// count date is stale: counter zeroed, today stamped, warning/exhausted
// demoted to healthy. Persists once, and only when something changed, so
// running it twice on the same day is a no-op.
func (e *Engine) ResetDailyCountsIfNeeded() error {
	creds := e.registry.GetAll()
	now := e.now()

	changed := false
	for i := range creds {
		if usage.RollWindowIfStale(&creds[i], now) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	e.logger.Info("daily usage counters reset")
	return e.registry.SaveAll(creds)
}

// RunDailySweep runs the reset sweep immediately and then on every tick
// until the context is cancelled. Pass 0 to use DefaultSweepInterval.
func (e *Engine) RunDailySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if err := e.ResetDailyCountsIfNeeded(); err != nil {
		e.logger.Error("daily reset sweep", "err", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.ResetDailyCountsIfNeeded(); err != nil {
				e.logger.Error("daily reset sweep", "err", err)
			}
		}
	}
}
