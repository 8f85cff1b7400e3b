package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiag/internal/diagnostics"
	"github.com/desertthunder/spotdiag/internal/repositories"
	"github.com/desertthunder/spotdiag/internal/server"
	"github.com/desertthunder/spotdiag/internal/services"
	"github.com/desertthunder/spotdiag/internal/shared"
	"github.com/desertthunder/spotdiag/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	client  diagnostics.Client
	auth    services.Authenticator
	logger  *log.Logger
	output  io.Writer
	palette *ui.Palette
	getenv  func(string) string
	srvOpts []services.SpotifyOption
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config, Client and Authenticator are normally nil and built per command; tests set them.
type RunnerOpts struct {
	Config        *shared.Config
	Client        diagnostics.Client
	Authenticator services.Authenticator
	Logger        *log.Logger
	Output        io.Writer
	Getenv        func(string) string
	SpotifyOpts   []services.SpotifyOption // Appended when building the Spotify client
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	return &Runner{
		config:  opts.Config,
		client:  opts.Client,
		auth:    opts.Authenticator,
		logger:  opts.Logger,
		output:  opts.Output,
		palette: ui.NewPalette(opts.Output),
		getenv:  opts.Getenv,
		srvOpts: opts.SpotifyOpts,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, authCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the injected config, or the file at path (defaults when absent) with environment overrides.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
		r.logger.Debug("loaded config", "path", path)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	config.ApplyEnv(r.getenv)
	r.config = config
	return config, nil
}

// openCache opens the token cache database and wraps it as a token store.
func (r *Runner) openCache(config *shared.Config) (*repositories.TokenCacheAdapter, *sql.DB, error) {
	db, err := shared.OpenCache(config.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open token cache: %w", err)
	}
	return repositories.NewTokenCacheAdapter(repositories.NewTokenRepository(db)), db, nil
}

// spotifyService builds a Spotify client whose first request pulls a token from store, falling back to
// interactive when non-nil. Refreshed tokens are written back to store.
func (r *Runner) spotifyService(config *shared.Config, store services.TokenStore, interactive bool) (*services.SpotifyService, error) {
	opts := append([]services.SpotifyOption{
		services.WithRateLimit(config.Diagnostics.RequestsPerSecond),
	}, r.srvOpts...)

	srv, err := services.NewSpotifyService(config.Credentials.Spotify.Map(), opts...)
	if err != nil {
		return nil, err
	}

	scope := shared.ScopeKey(srv.Scopes())

	var fallback services.Authenticator
	if interactive {
		fallback = r.browserAuthenticator(config, srv)
	}
	auth := services.NewCachedAuthenticator(store, scope, fallback)
	auth.SetLogger(r.logger)
	srv.SetAuthenticator(auth)

	if store != nil {
		srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
			if err := store.Save(scope, token); err != nil {
				r.logger.Warn("failed to cache refreshed token", "error", err)
				return
			}
			r.logger.Debug("cached refreshed token", "scope", scope)
		})
	}
	return srv, nil
}

// scopeKey returns the token cache key for the scopes a client built from config requests.
func scopeKey(config *shared.Config) string {
	return shared.ScopeKey(services.RequestedScopes(config.Credentials.Spotify.Scopes))
}

// browserAuthenticator returns the injected authenticator, or one that runs the browser login flow.
func (r *Runner) browserAuthenticator(config *shared.Config, srv services.OAuthService) services.Authenticator {
	if r.auth != nil {
		return r.auth
	}
	return services.AuthenticatorFunc(func(ctx context.Context) (*oauth2.Token, error) {
		return r.doOAuth(ctx, config, srv)
	})
}

// doOAuth runs the authorization code flow: local callback server, browser, code exchange.
func (r *Runner) doOAuth(ctx context.Context, config *shared.Config, oauthSrv services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthConfig := oauthSrv.GetOAuthConfig()
	addr, err := server.CallbackAddr(oauthConfig.RedirectURL, config.Server.Host, config.Server.Port)
	if err != nil {
		return nil, err
	}

	callback, err := server.NewCallbackServer(addr, server.NewOAuthHandler(oauthConfig, state), r.logger)
	if err != nil {
		return nil, err
	}
	callback.Start()
	r.logger.Info("started OAuth callback server", "addr", callback.Addr())

	authURL := oauthSrv.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlain("%s\n", r.palette.Warn("⚠ Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", authTimeout)
	token, err := callback.Wait(ctx, authTimeout)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}

// unavailableClient fails every call with err so a run still reports through the normal steps.
type unavailableClient struct {
	err error
}

func (c unavailableClient) CurrentUser(context.Context) (*services.SpotifyUser, error) {
	return nil, c.err
}

func (c unavailableClient) Search(context.Context, string, string, int) (*services.SearchResult, error) {
	return nil, c.err
}

func (c unavailableClient) ArtistTopTracks(context.Context, string, string) ([]services.SpotifyTrack, error) {
	return nil, c.err
}

func (c unavailableClient) AudioFeatures(context.Context, ...string) ([]*services.AudioFeatures, error) {
	return nil, c.err
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain("\n"+format+"\n", args...)
}

// closeDB closes db, logging rather than returning the error.
func (r *Runner) closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		r.logger.Warn("failed to close token cache", "error", err)
	}
}
