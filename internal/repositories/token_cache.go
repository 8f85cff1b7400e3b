package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/spotdiag/internal/models"
	"github.com/desertthunder/spotdiag/internal/shared"
	"golang.org/x/oauth2"
)

// TokenCacheAdapter implements services.TokenStore using TokenRepository.
//
// One row exists per scope key; Save upserts.
type TokenCacheAdapter struct {
	repo *TokenRepository
}

// NewTokenCacheAdapter creates a new TokenCacheAdapter with the given repository
func NewTokenCacheAdapter(repo *TokenRepository) *TokenCacheAdapter {
	return &TokenCacheAdapter{repo: repo}
}

// Load returns the cached token for scope or [shared.ErrTokenNotCached].
func (a *TokenCacheAdapter) Load(scope string) (*oauth2.Token, error) {
	entry, err := a.Entry(scope)
	if err != nil {
		return nil, err
	}
	return entry.Token(), nil
}

// Entry returns the full cache row for scope, including the account it was issued to.
func (a *TokenCacheAdapter) Entry(scope string) (*models.PersistedToken, error) {
	entry, err := a.repo.GetByScope(scope)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w for scope %q", shared.ErrTokenNotCached, scope)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Save stores token under scope, replacing any earlier token for the same scope.
func (a *TokenCacheAdapter) Save(scope string, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", shared.ErrInvalidInput)
	}

	existing, err := a.repo.GetByScope(scope)
	switch {
	case errors.Is(err, ErrNotFound):
		return a.repo.Create(models.NewPersistedToken(scope, token))
	case err != nil:
		return fmt.Errorf("failed to look up cached token: %w", err)
	}

	existing.SetToken(token)
	return a.repo.Update(existing)
}

// Tag records the Spotify account id the scope's token belongs to.
func (a *TokenCacheAdapter) Tag(scope, account string) error {
	entry, err := a.Entry(scope)
	if err != nil {
		return err
	}
	if entry.Account() == account {
		return nil
	}
	entry.SetAccount(account)
	return a.repo.Update(entry)
}

// Delete drops the cached token for scope. Missing entries are not an error.
func (a *TokenCacheAdapter) Delete(scope string) error {
	if err := a.repo.DeleteByScope(scope); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
