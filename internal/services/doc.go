// Package services implements the Spotify Web API client spotdiag probes, plus the OAuth2 glue around it.
//
// # Spotify Client
//
// [SpotifyService] exposes the four calls the diagnostic needs: [SpotifyService.CurrentUser],
// [SpotifyService.Search], [SpotifyService.ArtistTopTracks] and [SpotifyService.AudioFeatures].
// Requests are paced by an optional [rate.Limiter] and sent through an [oauth2] client that refreshes
// expired tokens on its own.
//
// # Authentication
//
// Authorization is lazy. The first request made without a token asks the configured [Authenticator]
// for one, which lets the CLI open a browser only when a call actually needs it.
//
// [CachedAuthenticator] consults a [TokenStore] keyed by scope before falling back to an interactive
// [Authenticator]. Refreshed tokens are reported through [SpotifyService.SetTokenRefreshCallback]
// so they can be written back to the same store.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], which unwraps to:
//   - [shared.ErrAPIRequest] : always
//   - [shared.ErrTokenExpired] : 401
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrServiceUnavailable] : 502, 503, 504
//
// Failures below HTTP (DNS, connection reset, timeouts) wrap [shared.ErrTransport].
// Failures to obtain a token wrap [shared.ErrAuthFailed] or [shared.ErrNotAuthenticated].
package services
