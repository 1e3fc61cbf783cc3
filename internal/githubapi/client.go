// Package githubapi implements the provider calls the engine needs — the
// identity lookup after a device flow and the cross-account repository
// probe — using the go-github library.
package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
)

// User is the identity metadata fetched from GET /user.
type User struct {
	ID        int64
	Login     string
	AvatarURL string
	Name      string
}

// Client calls the GitHub REST API with a per-call token, so one instance
// serves every stored credential.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
}

// New creates a Client. When httpClient is nil, a client with an in-memory
// ETag cache transport is used so repeated probes ride conditional requests.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpcache.NewMemoryCacheTransport().Client()
	}
	return &Client{httpClient: httpClient}
}

// NewWithBaseURL creates a Client pointed at a non-default API base URL.
// Intended for tests with httptest servers.
func NewWithBaseURL(httpClient *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c := New(httpClient)
	c.baseURL = u
	return c, nil
}

func (c *Client) rest(token string) *gh.Client {
	client := gh.NewClient(c.httpClient).WithAuthToken(token)
	if c.baseURL != nil {
		client.BaseURL = c.baseURL
	}
	return client
}

// FetchAuthenticatedUser returns the identity behind the given token.
func (c *Client) FetchAuthenticatedUser(ctx context.Context, token string) (User, error) {
	u, _, err := c.rest(token).Users.Get(ctx, "")
	if err != nil {
		return User{}, fmt.Errorf("fetching authenticated user: %w", err)
	}
	return User{
		ID:        u.GetID(),
		Login:     u.GetLogin(),
		AvatarURL: u.GetAvatarURL(),
		Name:      u.GetName(),
	}, nil
}

// CanAccessRepo reports whether the token can read owner/repo. Any failure,
// including network errors, counts as no access.
func (c *Client) CanAccessRepo(ctx context.Context, token, owner, repo string) bool {
	_, _, err := c.rest(token).Repositories.Get(ctx, owner, repo)
	return err == nil
}
