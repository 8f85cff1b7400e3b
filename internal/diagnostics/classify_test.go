package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/desertthunder/spotdiag/internal/services"
	"github.com/desertthunder/spotdiag/internal/shared"
	"golang.org/x/oauth2"
)

func TestClassify(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, None},
		{"oauth retrieve error", &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, AuthenticationError},
		{"wrapped retrieve error", fmt.Errorf("exchange: %w", &oauth2.RetrieveError{}), AuthenticationError},
		{"auth failed", fmt.Errorf("%w: denied", shared.ErrAuthFailed), AuthenticationError},
		{"not authenticated", shared.ErrNotAuthenticated, AuthenticationError},
		{"missing credentials", shared.ErrMissingCredentials, AuthenticationError},
		{"401", &services.APIError{StatusCode: http.StatusUnauthorized}, AuthenticationError},
		{"403", &services.APIError{StatusCode: http.StatusForbidden}, PermissionError},
		{"wrapped 403", fmt.Errorf("step: %w", &services.APIError{StatusCode: http.StatusForbidden}), PermissionError},
		{"404", &services.APIError{StatusCode: http.StatusNotFound}, NotFoundError},
		{"not found sentinel", shared.ErrNotFound, NotFoundError},
		{"429", &services.APIError{StatusCode: http.StatusTooManyRequests}, TransportError},
		{"503", &services.APIError{StatusCode: http.StatusServiceUnavailable}, TransportError},
		{"transport sentinel", fmt.Errorf("%w: reset", shared.ErrTransport), TransportError},
		{"net op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, TransportError},
		{"url error", &url.Error{Op: "Get", URL: "https://api.spotify.com", Err: errors.New("eof")}, TransportError},
		{"deadline", context.DeadlineExceeded, TransportError},
		{"plain error", errors.New("mystery"), UnknownError},
		{"decode error", fmt.Errorf("%w: failed to decode response", shared.ErrAPIRequest), UnknownError},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorKindString(t *testing.T) {
	tc := map[ErrorKind]string{
		None:                "",
		AuthenticationError: "AuthenticationError",
		NotFoundError:       "NotFoundError",
		PermissionError:     "PermissionError",
		TransportError:      "TransportError",
		UnknownError:        "UnknownError",
	}

	for kind, want := range tc {
		if got := kind.String(); got != want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
