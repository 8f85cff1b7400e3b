package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotdiag/internal/shared"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token request: %v", err)
		}
		if r.Form.Get("code") != "good_code" {
			t.Errorf("expected code good_code, got %q", r.Form.Get("code"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			fmt.Fprint(w, `{"access_token":"access","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`)
			return
		}
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:3000/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://accounts.example.com/authorize", TokenURL: tokenURL},
	}
}

func TestOAuthHandler(t *testing.T) {
	t.Run("routes follow the redirect URI", func(t *testing.T) {
		cfg := newTestConfig("")
		cfg.RedirectURL = "http://127.0.0.1:8888/auth/spotify"

		h := NewOAuthHandler(cfg, "s")
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/auth/spotify" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("successful exchange", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK)
		h := NewOAuthHandler(newTestConfig(ts.URL), "state123")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state123&code=good_code", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Authorization Successful") {
			t.Error("expected success page")
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token.AccessToken != "access" || result.Token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", result.Token)
		}
	})

	t.Run("invalid state", func(t *testing.T) {
		h := NewOAuthHandler(newTestConfig(""), "expected")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=c", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Error())
		}
	})

	t.Run("user denied access", func(t *testing.T) {
		h := NewOAuthHandler(newTestConfig(""), "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
		if !strings.Contains(rec.Body.String(), "access_denied") {
			t.Error("expected failure page to carry the error")
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusBadRequest)
		h := NewOAuthHandler(newTestConfig(ts.URL), "s")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=good_code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}

		result := <-h.Result()
		var retrieveErr *oauth2.RetrieveError
		if !errors.As(result.Error(), &retrieveErr) {
			t.Errorf("expected *oauth2.RetrieveError in chain, got %v", result.Error())
		}
	})

	t.Run("second callback rejected", func(t *testing.T) {
		h := NewOAuthHandler(newTestConfig(""), "s")

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=bad", nil))

		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=c", nil))

		if second.Code != http.StatusBadRequest || !strings.Contains(second.Body.String(), "already processed") {
			t.Errorf("expected second callback to be rejected, got %d %q", second.Code, second.Body.String())
		}
	})

	t.Run("Send only delivers once", func(t *testing.T) {
		h := NewOAuthHandler(newTestConfig(""), "s")
		h.Send(OAuthResult{Token: &oauth2.Token{AccessToken: "first"}})
		h.Send(OAuthResult{Token: &oauth2.Token{AccessToken: "second"}})

		var got []string
		for r := range h.Result() {
			got = append(got, r.Token.AccessToken)
		}
		if len(got) != 1 || got[0] != "first" {
			t.Errorf("expected only first result, got %v", got)
		}
	})

	t.Run("page write failure is logged", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewOAuthHandler(newTestConfig(""), "s")
		h.SetLogger(shared.NewLogger(&buf))

		h.ServeHTTP(&brokenResponseWriter{header: http.Header{}}, httptest.NewRequest(http.MethodGet, "/callback?state=bad", nil))

		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected the failure to be reported, got %v", result.Error())
		}
		if !strings.Contains(buf.String(), "failed to render callback page") {
			t.Errorf("expected render failure to be logged, got %q", buf.String())
		}
	})
}

// brokenResponseWriter fails every body write.
type brokenResponseWriter struct {
	header http.Header
	status int
}

func (w *brokenResponseWriter) Header() http.Header { return w.header }

func (w *brokenResponseWriter) WriteHeader(status int) { w.status = status }

func (w *brokenResponseWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestCallbackHelpers(t *testing.T) {
	t.Run("CallbackPath", func(t *testing.T) {
		tc := []struct {
			uri, want string
		}{
			{"http://127.0.0.1:3000/callback", "/callback"},
			{"http://localhost:8080", "/"},
			{"http://localhost/a/b", "/a/b"},
		}
		for _, tt := range tc {
			got, err := CallbackPath(tt.uri)
			if err != nil || got != tt.want {
				t.Errorf("CallbackPath(%q) = %q, %v; want %q", tt.uri, got, err, tt.want)
			}
		}

		if _, err := CallbackPath("http://[::1"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("CallbackAddr", func(t *testing.T) {
		tc := []struct {
			uri  string
			bind string
			want string
		}{
			{"http://127.0.0.1:3000/callback", "", "127.0.0.1:3000"},
			{"http://localhost/callback", "", "localhost:4000"},
			{"http://localhost:3000/callback", "127.0.0.1", "127.0.0.1:3000"},
			{"http://[::1]:5000/callback", "", "[::1]:5000"},
		}
		for _, tt := range tc {
			got, err := CallbackAddr(tt.uri, tt.bind, 4000)
			if err != nil || got != tt.want {
				t.Errorf("CallbackAddr(%q, %q) = %q, %v; want %q", tt.uri, tt.bind, got, err, tt.want)
			}
		}

		if _, err := CallbackAddr("/callback", "", 3000); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for missing host, got %v", err)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("get", "/ping", ok)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("expected 200 ok, got %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("outer"), mark("inner"))
		router.Handle(http.MethodGet, "/", ok)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "outer,inner" {
			t.Errorf("expected outer,inner, got %v", order)
		}
	})

	t.Run("request logger omits query", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		logger.SetLevel(log.DebugLevel)

		router := NewBasicRouter()
		router.Use(RequestLogger(logger))
		router.Handle(http.MethodGet, "/callback", ok)
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "/callback") || !strings.Contains(out, "200") {
			t.Errorf("expected request line, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("query string leaked into logs: %q", out)
		}
	})
}

func TestCallbackServer(t *testing.T) {
	logger := shared.NewLogger(io.Discard)

	t.Run("receives token", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK)
		h := NewOAuthHandler(newTestConfig(ts.URL), "s")

		srv, err := NewCallbackServer("127.0.0.1:0", h, logger)
		if err != nil {
			t.Fatalf("failed to start callback server: %v", err)
		}
		srv.Start()

		go func() {
			resp, err := http.Get("http://" + srv.Addr() + "/callback?" + url.Values{
				"state": {"s"},
				"code":  {"good_code"},
			}.Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()

		token, err := srv.Wait(context.Background(), 5*time.Second)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.AccessToken != "access" {
			t.Errorf("expected access token, got %s", token.AccessToken)
		}
	})

	t.Run("times out", func(t *testing.T) {
		h := NewOAuthHandler(newTestConfig(""), "s")
		srv, err := NewCallbackServer("127.0.0.1:0", h, logger)
		if err != nil {
			t.Fatalf("failed to start callback server: %v", err)
		}
		srv.Start()

		_, err = srv.Wait(context.Background(), 10*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		h := NewOAuthHandler(newTestConfig(""), "s")
		srv, err := NewCallbackServer("127.0.0.1:0", h, logger)
		if err != nil {
			t.Fatalf("failed to start callback server: %v", err)
		}
		srv.Start()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := srv.Wait(ctx, time.Minute); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("port in use", func(t *testing.T) {
		h := NewOAuthHandler(newTestConfig(""), "s")
		first, err := NewCallbackServer("127.0.0.1:0", h, logger)
		if err != nil {
			t.Fatalf("failed to start callback server: %v", err)
		}
		defer first.listener.Close()

		if _, err := NewCallbackServer(first.Addr(), h, logger); err == nil {
			t.Error("expected listen error for an occupied port")
		}
	})
}
