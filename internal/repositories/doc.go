// Package repositories implements SQLite persistence for spotdiag's token cache.
//
// [TokenRepository] implements [models.Repository] for [models.PersistedToken] with scope-keyed lookups.
// [TokenCacheAdapter] adapts it to the services.TokenStore capability used by the authenticator,
// so the OAuth layer never touches SQL directly.
//
// Tokens are hard-deleted: a logged-out token has no value worth keeping.
package repositories
