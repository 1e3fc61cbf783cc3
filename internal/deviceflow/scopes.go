package deviceflow

// providerScopes are the GitHub OAuth scopes the flow passes through as-is.
var providerScopes = map[string]struct{}{
	"repo":             {},
	"public_repo":      {},
	"read:user":        {},
	"user:email":       {},
	"read:org":         {},
	"workflow":         {},
	"gist":             {},
	"notifications":    {},
	"write:discussion": {},
}

// defaultScopes replace any pseudo-scope the provider would reject.
var defaultScopes = []string{"repo", "read:user"}

// NormalizeScopes maps a caller-supplied logical scope set to real provider
// scopes: recognized scopes pass through, anything else collapses to the
// default set. The result is de-duplicated with stable order.
func NormalizeScopes(requested []string) []string {
	if len(requested) == 0 {
		requested = defaultScopes
	}

	seen := make(map[string]struct{}, len(requested))
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, s := range requested {
		if _, ok := providerScopes[s]; ok {
			add(s)
			continue
		}
		for _, d := range defaultScopes {
			add(d)
		}
	}
	return out
}
