package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotdiag/internal/models"
	"github.com/desertthunder/spotdiag/internal/shared"
)

const tokenColumns = `id, scope, access_token, refresh_token, token_type, expiry, account, created_at, updated_at`

// TokenRepository implements models.Repository[*models.PersistedToken] for the OAuth token cache.
type TokenRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.PersistedToken] = (*TokenRepository)(nil)

// NewTokenRepository creates a new TokenRepository with the given database connection
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create inserts a new [models.PersistedToken] with a generated ID.
func (r *TokenRepository) Create(token *models.PersistedToken) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	token.SetID(shared.GenerateID())

	query := `INSERT INTO tokens (` + tokenColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		token.ID(),
		token.Scope(),
		token.AccessToken(),
		token.RefreshToken(),
		token.TokenType(),
		nullTime(token.Expiry()),
		token.Account(),
		token.CreatedAt(),
		token.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}

	return nil
}

// Get retrieves a token by ID.
func (r *TokenRepository) Get(id string) (*models.PersistedToken, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+tokenColumns+` FROM tokens WHERE id = ?`, id))
}

// GetByScope retrieves the token cached for a normalized scope key.
func (r *TokenRepository) GetByScope(scope string) (*models.PersistedToken, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+tokenColumns+` FROM tokens WHERE scope = ?`, scope))
}

// Update rewrites the credential fields and account of an existing token.
func (r *TokenRepository) Update(token *models.PersistedToken) error {
	if err := token.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	token.SetUpdatedAt(now)

	query := `
		UPDATE tokens
		SET access_token = ?, refresh_token = ?, token_type = ?, expiry = ?, account = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		token.AccessToken(),
		token.RefreshToken(),
		token.TokenType(),
		nullTime(token.Expiry()),
		token.Account(),
		now,
		token.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}

	return affectedOne(result, "token", token.ID())
}

// Delete removes a token by ID.
func (r *TokenRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return affectedOne(result, "token", id)
}

// DeleteByScope removes the token cached for scope.
func (r *TokenRepository) DeleteByScope(scope string) error {
	result, err := r.db.Exec(`DELETE FROM tokens WHERE scope = ?`, scope)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return affectedOne(result, "token scope", scope)
}

// List retrieves cached tokens, optionally filtered by "account".
func (r *TokenRepository) List(criteria map[string]any) ([]*models.PersistedToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens`
	args := []any{}

	if account, ok := criteria["account"].(string); ok && account != "" {
		query += " WHERE account = ?"
		args = append(args, account)
	}

	query += " ORDER BY created_at ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.PersistedToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tokens, nil
}

func (r *TokenRepository) scanOne(row *sql.Row) (*models.PersistedToken, error) {
	token, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: token", ErrNotFound)
	}
	return token, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(s scanner) (*models.PersistedToken, error) {
	var (
		id, scope, access, refresh, tokenType, account string
		expiry                                         sql.NullTime
		createdAt, updatedAt                           time.Time
	)

	err := s.Scan(&id, &scope, &access, &refresh, &tokenType, &expiry, &account, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}

	var exp time.Time
	if expiry.Valid {
		exp = expiry.Time
	}

	return models.RestorePersistedToken(id, scope, access, refresh, tokenType, exp, account, createdAt, updatedAt), nil
}
