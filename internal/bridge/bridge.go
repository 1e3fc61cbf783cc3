// Package bridge resolves which stored credential should authenticate a
// given remote repository URL, including cross-account ownership probes.
package bridge

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/ghswitch/ghswitch/internal/account"
	"github.com/ghswitch/ghswitch/internal/prompt"
)

// DefaultProbeTimeout bounds each cross-account access probe so one
// unreachable host cannot stall the whole check.
const DefaultProbeTimeout = 5 * time.Second

// remotePattern matches GitHub HTTPS remotes: https://github.com/owner/repo
// with an optional .git suffix.
var remotePattern = regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// GitCredential is the username/secret pair handed to git-style HTTPS auth.
type GitCredential struct {
	Username string
	Secret   string
}

// Prober checks whether a token can read a repository. Satisfied by
// *githubapi.Client.
type Prober interface {
	CanAccessRepo(ctx context.Context, token, owner, repo string) bool
}

// Bridge answers credential lookups for remote URLs.
type Bridge struct {
	registry     *account.Registry
	prober       Prober
	prompter     prompt.Prompter
	logger       *log.Logger
	probeTimeout time.Duration
}

// New creates a Bridge. Pass 0 to use DefaultProbeTimeout.
func New(registry *account.Registry, prober Prober, prompter prompt.Prompter, probeTimeout time.Duration, logger *log.Logger) *Bridge {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	return &Bridge{
		registry:     registry,
		prober:       prober,
		prompter:     prompter,
		logger:       logger,
		probeTimeout: probeTimeout,
	}
}

// ParseRemote extracts owner and repo from a GitHub HTTPS remote URL.
func ParseRemote(remoteURL string) (owner, repo string, ok bool) {
	m := remotePattern.FindStringSubmatch(remoteURL)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ResolveCredentials returns the active credential's identity and a
// token-formatted secret for the given remote URL. Returns false when the
// URL is not a GitHub HTTPS remote or no credential is active.
func (b *Bridge) ResolveCredentials(remoteURL string) (GitCredential, bool) {
	if _, _, ok := ParseRemote(remoteURL); !ok {
		return GitCredential{}, false
	}
	active, ok := b.registry.GetActive()
	if !ok {
		return GitCredential{}, false
	}
	return GitCredential{
		Username: active.ProviderUsername,
		Secret:   "x-access-token:" + active.Token,
	}, true
}

// CheckCrossAccountRemote probes whether another stored credential can
// access the remote and, with the user's consent, switches to the first one
// that can. Probes fan out concurrently, each under its own timeout, and the
// decision waits for all of them. Probe failures count as no access.
func (b *Bridge) CheckCrossAccountRemote(ctx context.Context, remoteURL string) bool {
	owner, repo, ok := ParseRemote(remoteURL)
	if !ok {
		return false
	}

	creds := b.registry.GetAll()
	if len(creds) < 2 {
		return false
	}
	activeID := b.registry.ActiveID()

	var candidates []account.Credential
	for _, c := range creds {
		if c.ID != activeID {
			candidates = append(candidates, c)
		}
	}

	results := make([]bool, len(candidates))
	var g errgroup.Group
	for i, cand := range candidates {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, b.probeTimeout)
			defer cancel()
			results[i] = b.prober.CanAccessRepo(probeCtx, cand.Token, owner, repo)
			return nil
		})
	}
	_ = g.Wait()

	for i, cand := range candidates {
		if !results[i] {
			continue
		}
		b.logger.Debug("cross-account access found", "account", cand.Label(), "repo", owner+"/"+repo)
		accepted, err := b.prompter.Confirm(prompt.ConfirmConfig{
			Title:       fmt.Sprintf("%s/%s is accessible from %s. Switch accounts?", owner, repo, cand.Label()),
			Affirmative: "Switch",
			Negative:    "Keep current",
		})
		if err != nil || !accepted {
			return false
		}
		if err := b.registry.SetActive(cand.ID); err != nil {
			b.logger.Error("switching accounts", "err", err)
			return false
		}
		return true
	}
	return false
}
