// Package interceptor classifies outbound HTTP traffic to the provider and
// feeds the usage tracker and rotation engine. It is middleware on an
// http.Client the process owns, not a mutated global transport.
package interceptor

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/ghswitch/ghswitch/internal/account"
	"github.com/ghswitch/ghswitch/internal/rotation"
	"github.com/ghswitch/ghswitch/internal/usage"
)

// DefaultWatchedDomains is the provider allow-list observed for throttle and
// usage signals.
var DefaultWatchedDomains = []string{
	"api.github.com",
	"github.com",
	"uploads.github.com",
}

// Interceptor wraps an http.Client's transport. Responses from watched hosts
// are classified: 429 reports a throttle, 2xx counts usage, everything else
// passes through untouched.
type Interceptor struct {
	client   *http.Client
	registry *account.Registry
	tracker  *usage.Tracker
	engine   *rotation.Engine
	logger   *log.Logger

	domains   map[string]struct{}
	prev      http.RoundTripper
	installed bool
}

// New creates an interceptor for the given client. Pass nil domains to watch
// DefaultWatchedDomains.
func New(client *http.Client, registry *account.Registry, tracker *usage.Tracker, engine *rotation.Engine, domains []string, logger *log.Logger) *Interceptor {
	if len(domains) == 0 {
		domains = DefaultWatchedDomains
	}
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[d] = struct{}{}
	}
	return &Interceptor{
		client:   client,
		registry: registry,
		tracker:  tracker,
		engine:   engine,
		domains:  set,
		logger:   logger,
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Install wraps the client's transport. A second install is a no-op.
func (i *Interceptor) Install() {
	if i.installed {
		return
	}
	i.prev = i.client.Transport
	if i.prev == nil {
		i.prev = http.DefaultTransport
	}
	i.client.Transport = roundTripperFunc(i.roundTrip)
	i.installed = true
}

// Uninstall restores the transport the client had before Install.
func (i *Interceptor) Uninstall() {
	if !i.installed {
		return
	}
	i.client.Transport = i.prev
	i.prev = nil
	i.installed = false
}

// Installed reports whether the interceptor currently wraps the client.
func (i *Interceptor) Installed() bool {
	return i.installed
}

// Client returns the owned http.Client. Components that should be observed
// (the check command, the identity fetch) use this client.
func (i *Interceptor) Client() *http.Client {
	return i.client
}

func (i *Interceptor) roundTrip(req *http.Request) (*http.Response, error) {
	resp, err := i.prev.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	if _, watched := i.domains[req.URL.Hostname()]; !watched {
		return resp, nil
	}

	active, ok := i.registry.GetActive()
	if !ok {
		// No active credential: nothing to account the response against.
		return resp, nil
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		i.logger.Debug("throttle response observed", "host", req.URL.Hostname())
		i.engine.OnThrottled(active)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := i.tracker.Increment(active); err != nil {
			i.logger.Warn("recording request usage", "err", err)
		}
	}
	return resp, nil
}
