package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiag/internal/shared"
	"golang.org/x/oauth2"
)

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every new access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	last     string
}

// Token returns the next token from the wrapped source, invoking the callback when it differs from the last one seen.
func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != r.last {
		r.last = token.AccessToken
		if r.callback != nil {
			r.callback(token)
		}
	}

	return token, nil
}

// CachedAuthenticator serves tokens from a [TokenStore] and falls back to an interactive [Authenticator].
//
// Tokens obtained through the fallback are written back to the store under the same scope key. A failed
// write is logged and the token is still returned.
type CachedAuthenticator struct {
	store    TokenStore
	scope    string
	fallback Authenticator
	logger   *log.Logger
}

// NewCachedAuthenticator creates a [CachedAuthenticator]. fallback may be nil, in which case a cache miss is an error.
func NewCachedAuthenticator(store TokenStore, scope string, fallback Authenticator) *CachedAuthenticator {
	return &CachedAuthenticator{store: store, scope: scope, fallback: fallback, logger: log.New(io.Discard)}
}

// SetLogger sets the logger used to report cache write failures.
func (a *CachedAuthenticator) SetLogger(l *log.Logger) {
	if l != nil {
		a.logger = l
	}
}

// Token implements [Authenticator].
func (a *CachedAuthenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	if a.store != nil {
		token, err := a.store.Load(a.scope)
		switch {
		case err == nil && usable(token):
			return token, nil
		case err != nil && !errors.Is(err, shared.ErrTokenNotCached):
			return nil, fmt.Errorf("failed to read token cache: %w", err)
		}
	}

	if a.fallback == nil {
		return nil, fmt.Errorf("%w: no cached token for scope %q", shared.ErrNotAuthenticated, a.scope)
	}

	token, err := a.fallback.Token(ctx)
	if err != nil {
		return nil, err
	}

	if a.store != nil {
		if err := a.store.Save(a.scope, token); err != nil {
			a.logger.Warn("continuing without caching token", "scope", a.scope, "error", err)
		}
	}

	return token, nil
}

// usable reports whether token can authorize a request now or after a refresh.
func usable(token *oauth2.Token) bool {
	return token != nil && (token.Valid() || token.RefreshToken != "")
}
