package server

import (
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiag/internal/shared"
	"golang.org/x/oauth2"
)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>spotdiag: {{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Body}}</p>
    </div>
</body>
</html>
`))

type page struct {
	Title string
	Body  string
	Color string
}

// OAuthHandler handles the authorization code callback for one login attempt.
//
// The first request to reach it decides the outcome; later requests are rejected.
type OAuthHandler struct {
	config      *oauth2.Config
	state       string
	path        string
	resultChan  chan OAuthResult
	once        sync.Once
	mu          sync.Mutex
	callbackHit bool
	logger      *log.Logger
}

// NewOAuthHandler creates a handler that serves the path of config.RedirectURL and
// accepts only callbacks carrying state.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	path, err := CallbackPath(config.RedirectURL)
	if err != nil {
		path = "/callback"
	}
	return &OAuthHandler{
		config:     config,
		state:      state,
		path:       path,
		resultChan: make(chan OAuthResult, 1),
		logger:     log.New(io.Discard),
	}
}

// SetLogger sets the logger used for page rendering failures.
func (h *OAuthHandler) SetLogger(l *log.Logger) {
	if l != nil {
		h.logger = l
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP validates state, exchanges the code and reports the outcome on [OAuthHandler.Result].
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if query.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed))
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))
		h.fail(w, http.StatusBadRequest, err)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, fmt.Errorf("%w: token exchange failed: %w", shared.ErrAuthFailed, err))
		return
	}

	h.Send(OAuthResult{Token: token})
	h.render(w, http.StatusOK, page{
		Title: "Authorization Successful",
		Body:  "You can close this window and return to the terminal.",
		Color: "#1DB954",
	})
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, err error) {
	h.Send(OAuthResult{err: err})
	h.render(w, status, page{Title: "Authorization Failed", Body: err.Error(), Color: "#E22134"})
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, p); err != nil {
		h.logger.Warn("failed to render callback page", "title", p.Title, "error", err)
	}
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

// CallbackPath returns the path component of a redirect URI, defaulting to "/".
func CallbackPath(redirectURI string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect uri: %w", shared.ErrInvalidConfig, err)
	}
	if u.Path == "" {
		return "/", nil
	}
	return u.Path, nil
}

// CallbackAddr returns the address the callback server listens on for redirectURI.
//
// The port comes from redirectURI, or fallbackPort when it names none. bindHost overrides the redirect host when set.
func CallbackAddr(redirectURI, bindHost string, fallbackPort int) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect uri: %w", shared.ErrInvalidConfig, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: redirect uri %q has no host", shared.ErrInvalidConfig, redirectURI)
	}

	host := u.Hostname()
	if bindHost != "" {
		host = bindHost
	}

	port := u.Port()
	if port == "" {
		port = strconv.Itoa(fallbackPort)
	}
	return net.JoinHostPort(host, port), nil
}
