// Package models defines persistent entities and persistence interfaces for spotdiag.
//
// The only persisted entity is [PersistedToken], the OAuth2 token cached per scope set
// so that repeated diagnostic runs skip the browser authorization step.
//
// All persistent entities implement the [Model] interface providing IDs, timestamps and validation.
// The [Repository] interface defines standard CRUD operations for database access.
package models
