// package services defines the capabilities spotdiag needs from the Spotify Web API
// and the OAuth2 plumbing that backs them.
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// OAuthService is implemented by services that authorize users with the OAuth2 authorization code flow.
type OAuthService interface {
	// GetAuthURL returns the provider URL the user visits to grant access.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the config used to exchange the callback code.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs an already obtained token.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// Authenticator produces an access token, possibly interactively.
type Authenticator interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// AuthenticatorFunc adapts a function to [Authenticator].
type AuthenticatorFunc func(ctx context.Context) (*oauth2.Token, error)

func (f AuthenticatorFunc) Token(ctx context.Context) (*oauth2.Token, error) {
	return f(ctx)
}

// TokenStore persists tokens keyed by normalized scope (see shared.ScopeKey).
//
// Load returns an error wrapping shared.ErrTokenNotCached when nothing is stored.
type TokenStore interface {
	Load(scope string) (*oauth2.Token, error)
	Save(scope string, token *oauth2.Token) error
	Delete(scope string) error
}
