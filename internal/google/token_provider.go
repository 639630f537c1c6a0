package google

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/claude-meet/internal/logging"
)

// persistingTokenSource writes every newly minted access token back to the store.
type persistingTokenSource struct {
	base  oauth2.TokenSource
	store *TokenStore

	mu      sync.Mutex
	last    string
	observe RefreshObserver
}

// RefreshObserver is told the outcome ("success" or "failure") of every
// token fetch that had to go to the token endpoint.
type RefreshObserver func(result string)

// TokenSourceOption configures TokenSource.
type TokenSourceOption func(*persistingTokenSource)

// WithRefreshObserver reports refresh outcomes to fn.
func WithRefreshObserver(fn RefreshObserver) TokenSourceOption {
	return func(p *persistingTokenSource) {
		p.observe = fn
	}
}

// TokenSource returns a token source for the stored token. Refreshes go
// through conf and the refreshed token is saved to store.
func TokenSource(ctx context.Context, conf *oauth2.Config, store *TokenStore, opts ...TokenSourceOption) (oauth2.TokenSource, error) {
	tok, err := store.Load()
	if err != nil {
		return nil, &AuthenticationError{Op: "load token", Err: err}
	}

	p := &persistingTokenSource{
		base:    conf.TokenSource(ctx, tok),
		store:   store,
		last:    tok.AccessToken,
		observe: func(string) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Token implements oauth2.TokenSource.
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.base.Token()
	if err != nil {
		p.observe("failure")
		return nil, &AuthenticationError{Op: "refresh token", Err: err}
	}

	if tok.AccessToken != p.last {
		p.observe("success")
		if err := p.store.Save(tok); err != nil {
			slog.Warn("failed to persist refreshed token", "error", err)
		} else {
			slog.Debug("persisted refreshed token", "path", p.store.Path(),
				"access_token", logging.SanitizeToken(tok.AccessToken))
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}
