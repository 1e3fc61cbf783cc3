// Package engine wires the credential components into one running unit:
// vault, registry, tracker, rotation, interceptor, bridge, and device flows.
package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ghswitch/ghswitch/internal/account"
	"github.com/ghswitch/ghswitch/internal/bridge"
	"github.com/ghswitch/ghswitch/internal/config"
	"github.com/ghswitch/ghswitch/internal/deviceflow"
	"github.com/ghswitch/ghswitch/internal/githubapi"
	"github.com/ghswitch/ghswitch/internal/httpclient"
	"github.com/ghswitch/ghswitch/internal/interceptor"
	"github.com/ghswitch/ghswitch/internal/notify"
	"github.com/ghswitch/ghswitch/internal/prompt"
	"github.com/ghswitch/ghswitch/internal/rotation"
	"github.com/ghswitch/ghswitch/internal/usage"
	"github.com/ghswitch/ghswitch/internal/vault"
)

// Engine owns the assembled credential machinery. All registry-touching
// calls must stay on the goroutine that drives the Engine.
type Engine struct {
	Vault       *vault.Vault
	Registry    *account.Registry
	Tracker     *usage.Tracker
	Rotation    *rotation.Engine
	Interceptor *interceptor.Interceptor
	Bridge      *bridge.Bridge
	Flows       *deviceflow.Manager

	// Client is the observed http.Client: provider traffic sent through it
	// feeds usage counting and throttle detection.
	Client *http.Client

	logger *log.Logger
}

// New builds and starts the engine: the vault is opened, the registry
// hydrated, and the interceptor installed.
func New(cfg config.Config, notifier notify.Notifier, prompter prompt.Prompter, logger *log.Logger) (*Engine, error) {
	store := vault.NewFileStore(config.VaultDir())
	v, err := vault.New(store, logger)
	if err != nil {
		return nil, err
	}

	registry := account.NewRegistry(v, logger)
	registry.Load()

	strategy, err := rotation.ParseStrategy(cfg.Rotation.Strategy)
	if err != nil {
		return nil, err
	}

	rot := rotation.NewEngine(registry, notifier, strategy, logger)
	tracker := usage.NewTracker(registry, cfg.Rotation.DailyLimit, cfg.Rotation.WarnThreshold, logger)
	tracker.SetWarningCallback(rot.OnWarningThreshold)

	timeout := time.Duration(cfg.Network.HTTPTimeout * float64(time.Second))
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	observed := &http.Client{Timeout: timeout}
	ic := interceptor.New(observed, registry, tracker, rot, cfg.Network.WatchedDomains, logger)
	ic.Install()

	// The engine's own plumbing — device-flow polling, identity lookups,
	// cross-account probes — runs outside the interceptor so it is never
	// accounted against the active credential.
	plain := githubapi.New(nil)

	probeTimeout := time.Duration(cfg.Network.ProbeTimeout * float64(time.Second))
	br := bridge.New(registry, plain, prompter, probeTimeout, logger)

	flowClient := httpclient.NewWithTimeout(timeout)
	flows := deviceflow.NewManager(func() *deviceflow.Flow {
		return deviceflow.New(deviceflow.Options{
			Client:   flowClient,
			Users:    plain,
			Notifier: notifier,
			Logger:   logger,
			ClientID: cfg.OAuth.ClientID,
		})
	})

	return &Engine{
		Vault:       v,
		Registry:    registry,
		Tracker:     tracker,
		Rotation:    rot,
		Interceptor: ic,
		Bridge:      br,
		Flows:       flows,
		Client:      observed,
		logger:      logger,
	}, nil
}

// ObservedAPI returns a GitHub API client routed through the interceptor,
// authenticating as whichever credential is active.
func (e *Engine) ObservedAPI() *githubapi.Client {
	return githubapi.New(e.Client)
}

// StartDailySweep launches the hourly reset sweep until ctx is cancelled.
func (e *Engine) StartDailySweep(ctx context.Context) {
	go e.Rotation.RunDailySweep(ctx, 0)
}

// Close uninstalls the interceptor and cancels any in-flight device flow.
func (e *Engine) Close() {
	e.Flows.Cancel()
	e.Interceptor.Uninstall()
}
