// Package deviceflow drives the OAuth 2.0 device-authorization grant against
// GitHub and assembles a fully-populated credential on success.
package deviceflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/ghswitch/ghswitch/internal/account"
	"github.com/ghswitch/ghswitch/internal/githubapi"
	"github.com/ghswitch/ghswitch/internal/httpclient"
	"github.com/ghswitch/ghswitch/internal/notify"
)

// DefaultBaseURL is the OAuth host for the device-code and token endpoints.
const DefaultBaseURL = "https://github.com"

const (
	defaultIntervalSeconds = 5
	defaultExpirySeconds   = 900
	// slowDownIncrement is added to the poll interval on a slow_down
	// response, per RFC 8628.
	slowDownIncrement = 5 * time.Second
)

// State tracks where a flow is in its lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateCodeRequested State = "code_requested"
	StatePolling       State = "polling"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
	StateCancelled     State = "cancelled"
)

// ErrorKind classifies why a flow failed. All kinds are non-fatal; the user
// may simply retry.
type ErrorKind string

const (
	KindExpired   ErrorKind = "expired"
	KindDenied    ErrorKind = "denied"
	KindTimeout   ErrorKind = "timeout"
	KindCancelled ErrorKind = "cancelled"
	KindProvider  ErrorKind = "provider"
)

// FlowError is the typed failure returned by Authorize.
type FlowError struct {
	Kind        ErrorKind
	Code        string
	Description string
}

func (e *FlowError) Error() string {
	switch e.Kind {
	case KindExpired:
		return "device code expired before authorization"
	case KindDenied:
		return "authorization denied by user"
	case KindTimeout:
		return "timed out waiting for authorization"
	case KindCancelled:
		return "authorization cancelled"
	default:
		if e.Description != "" {
			return fmt.Sprintf("provider error %s: %s", e.Code, e.Description)
		}
		return fmt.Sprintf("provider error %s", e.Code)
	}
}

// UserFetcher resolves the identity behind a freshly minted token.
// Satisfied by *githubapi.Client.
type UserFetcher interface {
	FetchAuthenticatedUser(ctx context.Context, token string) (githubapi.User, error)
}

// Options configures a Flow.
type Options struct {
	Client   *httpclient.Client
	Users    UserFetcher
	Notifier notify.Notifier
	Logger   *log.Logger
	ClientID string
	// BaseURL overrides DefaultBaseURL, for tests.
	BaseURL string
}

// Flow is a single device-authorization attempt. A Flow is one-shot: create,
// Authorize once, discard. Use a Manager to enforce at most one in-flight
// flow per process.
type Flow struct {
	client   *httpclient.Client
	users    UserFetcher
	notifier notify.Notifier
	logger   *log.Logger
	clientID string
	baseURL  string

	state      State
	cancelCh   chan struct{}
	cancelOnce sync.Once

	// wait sleeps between polls; swapped out by tests.
	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// New creates a Flow.
func New(opts Options) *Flow {
	f := &Flow{
		client:   opts.Client,
		users:    opts.Users,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		clientID: opts.ClientID,
		baseURL:  opts.BaseURL,
		state:    StateIdle,
		cancelCh: make(chan struct{}),
		now:      time.Now,
	}
	if f.baseURL == "" {
		f.baseURL = DefaultBaseURL
	}
	f.wait = f.sleep
	return f
}

// State returns the flow's current lifecycle state.
func (f *Flow) State() State {
	return f.state
}

// Cancel stops a polling flow before its next sleep completes. Idempotent.
func (f *Flow) Cancel() {
	f.cancelOnce.Do(func() { close(f.cancelCh) })
}

func (f *Flow) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return &FlowError{Kind: KindCancelled}
	case <-f.cancelCh:
		return &FlowError{Kind: KindCancelled}
	case <-timer.C:
		return nil
	}
}

type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// Authorize runs the full device-authorization handshake and returns a
// credential ready to add to the registry. The user code and verification
// URI are surfaced through the notifier; the call then polls the token
// endpoint until success, failure, expiry, or cancellation.
func (f *Flow) Authorize(ctx context.Context, requestedScopes []string, alias string) (account.Credential, error) {
	scopes := NormalizeScopes(requestedScopes)

	f.state = StateCodeRequested
	var dc deviceCodeResponse
	resp, err := f.client.PostFormCtx(ctx, f.baseURL+"/login/device/code", map[string]string{
		"client_id": f.clientID,
		"scope":     strings.Join(scopes, " "),
	}, &dc, httpclient.WithHeader("Accept", "application/json"))
	if err != nil {
		f.state = StateFailed
		return account.Credential{}, fmt.Errorf("requesting device code: %w", err)
	}
	if resp.JSONErr != nil {
		f.state = StateFailed
		return account.Credential{}, fmt.Errorf("invalid device code response (%s): %w", httpclient.SummarizeBody(resp.Body), resp.JSONErr)
	}

	f.notifier.Info(fmt.Sprintf("Enter code %s at %s to authorize this device.", dc.UserCode, dc.VerificationURI), nil)
	f.logger.Debug("device code issued", "verification_uri", dc.VerificationURI)

	interval := time.Duration(dc.Interval) * time.Second
	if interval <= 0 {
		interval = defaultIntervalSeconds * time.Second
	}
	expiresIn := dc.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpirySeconds
	}
	deadline := f.now().Add(time.Duration(expiresIn) * time.Second)

	f.state = StatePolling
	first := true
	for {
		if !first {
			if err := f.wait(ctx, interval); err != nil {
				f.state = StateCancelled
				return account.Credential{}, err
			}
		}
		first = false

		if f.now().After(deadline) {
			f.state = StateFailed
			return account.Credential{}, &FlowError{Kind: KindTimeout}
		}

		var tok tokenResponse
		pollResp, err := f.client.PostFormCtx(ctx, f.baseURL+"/login/oauth/access_token", map[string]string{
			"client_id":   f.clientID,
			"device_code": dc.DeviceCode,
			"grant_type":  "urn:ietf:params:oauth:grant-type:device_code",
		}, &tok, httpclient.WithHeader("Accept", "application/json"))
		if err != nil {
			if ctx.Err() != nil {
				f.state = StateCancelled
				return account.Credential{}, &FlowError{Kind: KindCancelled}
			}
			// Network blips are retried on the next tick.
			f.logger.Debug("token poll failed, retrying", "err", err)
			continue
		}
		if pollResp.JSONErr != nil {
			continue
		}

		if tok.AccessToken != "" {
			cred, err := f.assemble(ctx, tok, scopes, alias)
			if err != nil {
				f.state = StateFailed
				return account.Credential{}, err
			}
			f.state = StateSucceeded
			return cred, nil
		}

		switch tok.Error {
		case "authorization_pending":
			continue
		case "slow_down":
			interval += slowDownIncrement
			continue
		case "expired_token":
			f.state = StateFailed
			return account.Credential{}, &FlowError{Kind: KindExpired}
		case "access_denied":
			f.state = StateFailed
			return account.Credential{}, &FlowError{Kind: KindDenied}
		case "":
			continue
		default:
			f.state = StateFailed
			return account.Credential{}, &FlowError{Kind: KindProvider, Code: tok.Error, Description: tok.ErrorDesc}
		}
	}
}

func (f *Flow) assemble(ctx context.Context, tok tokenResponse, requestedScopes []string, alias string) (account.Credential, error) {
	user, err := f.users.FetchAuthenticatedUser(ctx, tok.AccessToken)
	if err != nil {
		return account.Credential{}, fmt.Errorf("fetching identity for new credential: %w", err)
	}

	granted := requestedScopes
	if tok.Scope != "" {
		granted = splitScopes(tok.Scope)
	}

	now := f.now()
	return account.Credential{
		ID:               uuid.NewString(),
		Alias:            alias,
		ProviderUserID:   user.ID,
		ProviderUsername: user.Login,
		AvatarURL:        user.AvatarURL,
		Token:            tok.AccessToken,
		RefreshToken:     tok.RefreshToken,
		Scopes:           granted,
		RequestCount:     0,
		RequestCountDate: now.Format(account.DateLayout),
		Status:           account.StatusHealthy,
		AddedAt:          now,
	}, nil
}

func splitScopes(raw string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
