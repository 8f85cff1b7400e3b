package models

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// PersistedToken is an OAuth2 token cached under a normalized scope key.
type PersistedToken struct {
	id           string
	scope        string
	accessToken  string
	refreshToken string
	tokenType    string
	expiry       time.Time
	account      string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewPersistedToken builds a token entity for scope from an [oauth2.Token].
func NewPersistedToken(scope string, token *oauth2.Token) *PersistedToken {
	now := time.Now().UTC()
	t := &PersistedToken{
		scope:     scope,
		createdAt: now,
		updatedAt: now,
	}
	if token != nil {
		t.SetToken(token)
	}
	return t
}

// RestorePersistedToken rebuilds a token entity from stored columns.
func RestorePersistedToken(id, scope, access, refresh, tokenType string, expiry time.Time, account string, created, updated time.Time) *PersistedToken {
	return &PersistedToken{
		id:           id,
		scope:        scope,
		accessToken:  access,
		refreshToken: refresh,
		tokenType:    tokenType,
		expiry:       expiry,
		account:      account,
		createdAt:    created,
		updatedAt:    updated,
	}
}

func (t *PersistedToken) ID() string { return t.id }
func (t *PersistedToken) Scope() string { return t.scope }
func (t *PersistedToken) AccessToken() string { return t.accessToken }
func (t *PersistedToken) RefreshToken() string { return t.refreshToken }
func (t *PersistedToken) TokenType() string { return t.tokenType }
func (t *PersistedToken) Expiry() time.Time { return t.expiry }
func (t *PersistedToken) Account() string { return t.account }
func (t *PersistedToken) CreatedAt() time.Time { return t.createdAt }
func (t *PersistedToken) UpdatedAt() time.Time { return t.updatedAt }

func (t *PersistedToken) SetID(id string) { t.id = id }
func (t *PersistedToken) SetAccount(account string) { t.account = account }
func (t *PersistedToken) SetUpdatedAt(at time.Time) { t.updatedAt = at }

// SetToken copies the credential fields of token, keeping the existing refresh token
// when the provider omits one on refresh.
func (t *PersistedToken) SetToken(token *oauth2.Token) {
	t.accessToken = token.AccessToken
	if token.RefreshToken != "" {
		t.refreshToken = token.RefreshToken
	}
	t.tokenType = token.TokenType
	if t.tokenType == "" {
		t.tokenType = "Bearer"
	}
	t.expiry = token.Expiry
}

// Token converts the entity back to an [oauth2.Token].
func (t *PersistedToken) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.accessToken,
		RefreshToken: t.refreshToken,
		TokenType:    t.tokenType,
		Expiry:       t.expiry,
	}
}

// Usable reports whether the token is still valid or can be refreshed.
func (t *PersistedToken) Usable() bool {
	return t.Token().Valid() || t.refreshToken != ""
}

// Validate checks required fields.
func (t *PersistedToken) Validate() error {
	if t.scope == "" {
		return fmt.Errorf("scope is required")
	}
	if t.accessToken == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}
