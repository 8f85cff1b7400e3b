package diagnostics

import (
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/desertthunder/spotdiag/internal/services"
	"github.com/desertthunder/spotdiag/internal/shared"
	"golang.org/x/oauth2"
)

// ErrorKind classifies why a step failed.
type ErrorKind int

const (
	None ErrorKind = iota
	AuthenticationError
	NotFoundError
	PermissionError
	TransportError
	UnknownError
)

func (k ErrorKind) String() string {
	switch k {
	case None:
		return ""
	case AuthenticationError:
		return "AuthenticationError"
	case NotFoundError:
		return "NotFoundError"
	case PermissionError:
		return "PermissionError"
	case TransportError:
		return "TransportError"
	default:
		return "UnknownError"
	}
}

// Classify maps a collaborator error onto an [ErrorKind]. A nil error is [None].
func Classify(err error) ErrorKind {
	if err == nil {
		return None
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return AuthenticationError
	}

	if errors.Is(err, shared.ErrAuthFailed) ||
		errors.Is(err, shared.ErrNotAuthenticated) ||
		errors.Is(err, shared.ErrTokenExpired) ||
		errors.Is(err, shared.ErrMissingCredentials) {
		return AuthenticationError
	}

	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return AuthenticationError
		case http.StatusForbidden:
			return PermissionError
		case http.StatusNotFound:
			return NotFoundError
		default:
			return TransportError
		}
	}

	if errors.Is(err, shared.ErrNotFound) {
		return NotFoundError
	}

	if errors.Is(err, shared.ErrTransport) {
		return TransportError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return TransportError
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return TransportError
	}

	return UnknownError
}
