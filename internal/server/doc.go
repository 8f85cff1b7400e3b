// Package server runs the local HTTP endpoint that completes spotdiag's browser login.
//
// # Router Infrastructure
//
// [BasicRouter] implements [Router] on top of [http.ServeMux] method patterns. [Middleware] added with
// [BasicRouter.Use] wraps handlers registered after it; the first middleware added is the outermost.
// [RequestLogger] logs each request at debug level without its query string.
//
// # OAuth Callback Handler
//
// [OAuthHandler] serves the path of the configured redirect URI. It validates the state parameter,
// exchanges the authorization code for a token and publishes exactly one [OAuthResult].
// Only the first callback is processed.
//
// # Callback Server
//
// [CallbackServer] binds the redirect URI's host and port (see [CallbackAddr]), serves the handler and
// shuts itself down once [CallbackServer.Wait] returns.
package server
