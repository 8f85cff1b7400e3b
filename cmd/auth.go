package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotdiag/internal/diagnostics"
	"github.com/desertthunder/spotdiag/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser authorization flow and caches the token for the configured scopes.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("%w (set them in config.toml or via %s / %s)", err, shared.EnvClientID, shared.EnvClientSecret)
	}

	store, db, err := r.openCache(config)
	if err != nil {
		return err
	}
	defer r.closeDB(db)

	srv, err := r.spotifyService(config, store, true)
	if err != nil {
		return err
	}

	scope := shared.ScopeKey(srv.Scopes())
	token, err := r.browserAuthenticator(config, srv).Token(ctx)
	if err != nil {
		return err
	}
	if err := store.Save(scope, token); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	if err := srv.OAuthenticate(ctx, token); err != nil {
		return err
	}

	user, err := srv.CurrentUser(ctx)
	if err != nil {
		r.logger.Warn("authorized, but the profile lookup failed", "error", err)
		r.writePlain("%s\n", r.palette.OK("✓ Authorization successful"))
		return r.writePlain("Token cached for scope %q\n", scope)
	}

	if err := store.Tag(scope, user.ID); err != nil {
		r.logger.Warn("failed to record account on cached token", "error", err)
	}

	r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("✓ Authorized as %s", displayName(user.DisplayName, user.ID))))
	r.writePlain("Token cached in %s for scope %q\n", config.Cache.Path, scope)
	return r.writePlainln("You can now run: spotdiag run")
}

// AuthStatus reports the cached token for the configured scopes. With --probe it also calls the API
// (current user and one known track) without starting a browser flow.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	store, db, err := r.openCache(config)
	if err != nil {
		return err
	}
	defer r.closeDB(db)

	scope := scopeKey(config)
	entry, err := store.Entry(scope)
	switch {
	case errors.Is(err, shared.ErrTokenNotCached):
		r.writePlain("%s\n", r.palette.Err("✗ Not authenticated"))
		return r.writePlain("No cached token for scope %q. Run 'spotdiag auth login'.\n", scope)
	case err != nil:
		return err
	}

	r.writePlain("%s\n", r.palette.OK("✓ Token cached"))
	r.writePlain("Scope: %s\n", entry.Scope())
	if entry.Account() != "" {
		r.writePlain("Account: %s\n", entry.Account())
	}
	r.writePlain("Updated: %s\n", entry.UpdatedAt().Format(time.RFC3339))
	r.writePlain("Expiry: %s\n", tokenExpiry(entry.Expiry(), entry.RefreshToken() != ""))

	if !cmd.Bool("probe") {
		return nil
	}

	client := r.client
	if client == nil {
		if err := config.Validate(); err != nil {
			return err
		}
		srv, err := r.spotifyService(config, store, false)
		if err != nil {
			return err
		}
		client = srv
	}
	return r.probe(ctx, client, firstNonEmpty(config.Diagnostics.KnownTrackID, diagnostics.DefaultKnownTrackID))
}

// probe is the quick connectivity check: who am I, and can I read audio features for a known track.
func (r *Runner) probe(ctx context.Context, client diagnostics.Client, knownTrackID string) error {
	r.writePlainln("Probing the API...")

	user, err := client.CurrentUser(ctx)
	if err != nil {
		r.writePlain("%s\n", r.palette.Err(fmt.Sprintf("✗ Current user (%s): %v", diagnostics.Classify(err), err)))
		return nil
	}
	r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("✓ Current user: %s", displayName(user.DisplayName, user.ID))))

	features, err := client.AudioFeatures(ctx, knownTrackID)
	switch {
	case err != nil:
		r.writePlain("%s\n", r.palette.Err(fmt.Sprintf("✗ Audio features (%s): %v", diagnostics.Classify(err), err)))
	case len(features) != 1 || features[0] == nil:
		r.writePlain("%s\n", r.palette.Err(fmt.Sprintf("✗ Audio features: none returned for %s", knownTrackID)))
	default:
		r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("✓ Audio features: tempo %.1f for %s", features[0].Tempo, knownTrackID)))
	}
	return nil
}

// AuthLogout removes the cached token for the configured scopes.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	store, db, err := r.openCache(config)
	if err != nil {
		return err
	}
	defer r.closeDB(db)

	scope := scopeKey(config)
	if err := store.Delete(scope); err != nil {
		return fmt.Errorf("failed to remove cached token: %w", err)
	}

	r.logger.Info("removed cached token", "scope", scope)
	return r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("✓ Logged out (scope %q)", scope)))
}

func tokenExpiry(expiry time.Time, refreshable bool) string {
	switch {
	case expiry.IsZero():
		return "never"
	case time.Now().Before(expiry):
		return fmt.Sprintf("%s (in %s)", expiry.Format(time.RFC3339), time.Until(expiry).Round(time.Second))
	case refreshable:
		return fmt.Sprintf("%s (expired, will refresh)", expiry.Format(time.RFC3339))
	default:
		return fmt.Sprintf("%s (expired, run 'spotdiag auth login')", expiry.Format(time.RFC3339))
	}
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
