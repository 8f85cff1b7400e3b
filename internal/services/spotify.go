// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/spotdiag/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL       = "https://api.spotify.com/v1"
	defaultRedirectURI   = "http://127.0.0.1:3000/callback"
	maxAudioFeaturesIDs  = 100
	maxSearchResultLimit = 50
)

// DefaultScopes are the scopes requested when credentials name none.
var DefaultScopes = []string{spotifyauth.ScopeUserReadPrivate, spotifyauth.ScopeUserReadEmail}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Images     []SpotifyImage `json:"images"`
	Popularity int            `json:"popularity"`
	URI        string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
	URI         string `json:"uri"`
}

// SpotifyArtistPage is one page of artist search results.
type SpotifyArtistPage struct {
	Items  []SpotifyArtist `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
	Next   *string         `json:"next"`
}

// SpotifyTrackPage is one page of track search results.
type SpotifyTrackPage struct {
	Items  []SpotifyTrack `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
}

// SearchResult holds the pages returned by /search; pages for types not requested are nil.
type SearchResult struct {
	Artists *SpotifyArtistPage `json:"artists"`
	Tracks  *SpotifyTrackPage  `json:"tracks"`
}

// AudioFeatures are the provider-computed descriptors of a track.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
	TimeSignature    int     `json:"time_signature"`
	DurationMS       int     `json:"duration_ms"`
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithBaseURL points the service at a different API root.
func WithBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithRateLimit paces requests to rps per second. Non-positive values disable pacing.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithAuthenticator sets the [Authenticator] consulted on the first request made without a token.
func WithAuthenticator(a Authenticator) SpotifyOption {
	return func(s *SpotifyService) { s.authenticator = a }
}

// SpotifyService is a Spotify Web API client.
// Uses [oauth2] for authentication and authorizes lazily on the first request, the way interactive clients do.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	authenticator  Authenticator
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// Recognized keys: client_id, client_secret (required), redirect_uri, scopes (space separated).
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	scopes := RequestedScopes(strings.Fields(credentials["scopes"]))

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// RequestedScopes returns the scopes a service built from configured will request: the configured
// scopes split on whitespace, or [DefaultScopes] when none are named.
func RequestedScopes(configured []string) []string {
	var scopes []string
	for _, s := range configured {
		scopes = append(scopes, strings.Fields(s)...)
	}
	if len(scopes) == 0 {
		return append([]string(nil), DefaultScopes...)
	}
	return scopes
}

// Scopes returns the scopes this service requests.
func (s *SpotifyService) Scopes() []string {
	return s.config.Scopes
}

// RedirectURI returns the redirect URI that must be registered with the Spotify app.
func (s *SpotifyService) RedirectURI() string {
	return s.config.RedirectURL
}

// OAuthenticate installs a token obtained elsewhere (cache or callback server).
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil || (token.AccessToken == "" && token.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", shared.ErrNotAuthenticated)
	}
	s.useToken(ctx, token)
	return nil
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig returns the underlying [oauth2.Config].
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetAuthenticator replaces the [Authenticator] consulted when no token is installed.
func (s *SpotifyService) SetAuthenticator(a Authenticator) {
	s.authenticator = a
}

// SetTokenRefreshCallback registers fn to be called whenever the token in use changes.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// useToken builds an auto-refreshing HTTP client around token.
func (s *SpotifyService) useToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	source := &refreshableTokenSource{
		source: s.config.TokenSource(ctx, token),
		last:   token.AccessToken,
		callback: func(t *oauth2.Token) {
			s.token = t
			if s.onTokenRefresh != nil {
				s.onTokenRefresh(t)
			}
		},
	}
	s.httpClient = oauth2.NewClient(ctx, source)
}

// ensureToken asks the configured [Authenticator] for a token when none is installed.
func (s *SpotifyService) ensureToken(ctx context.Context) error {
	if s.token != nil {
		return nil
	}
	if s.authenticator == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	token, err := s.authenticator.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return s.OAuthenticate(ctx, token)
}

// doRequest performs an authenticated GET request to the Spotify API and decodes the JSON body into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, query url.Values, result any) error {
	if err := s.ensureToken(ctx); err != nil {
		return err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: rate limiter: %w", shared.ErrTransport, err)
		}
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Search runs a catalog search. searchType is a comma separated list such as "artist" or "artist,track".
//
// limit is clamped to 1..50.
func (s *SpotifyService) Search(ctx context.Context, query, searchType string, limit int) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}
	if searchType == "" {
		return nil, fmt.Errorf("%w: empty search type", shared.ErrInvalidArgument)
	}
	limit = max(1, min(limit, maxSearchResultLimit))

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", searchType)
	params.Set("limit", strconv.Itoa(limit))

	var result SearchResult
	if err := s.doRequest(ctx, "/search", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ArtistTopTracks retrieves an artist's top tracks in the given market (ISO 3166-1 alpha-2 country code).
//
// A response without a tracks field yields a nil slice.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID, country string) ([]SpotifyTrack, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: empty artist id", shared.ErrInvalidArgument)
	}

	params := url.Values{}
	if country != "" {
		params.Set("market", country)
	}

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}

	endpoint := fmt.Sprintf("/artists/%s/top-tracks", url.PathEscape(artistID))
	if err := s.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}
	return response.Tracks, nil
}

// AudioFeatures retrieves audio features for up to 100 tracks.
//
// The result holds one entry per id the API answered for, in request order; a nil entry means
// the features for that id are unavailable.
func (s *SpotifyService) AudioFeatures(ctx context.Context, trackIDs ...string) ([]*AudioFeatures, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}
	if len(trackIDs) > maxAudioFeaturesIDs {
		return nil, fmt.Errorf("%w: maximum %d track IDs allowed", shared.ErrInvalidArgument, maxAudioFeaturesIDs)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(trackIDs, ","))

	var response struct {
		AudioFeatures []*AudioFeatures `json:"audio_features"`
	}

	if err := s.doRequest(ctx, "/audio-features", params, &response); err != nil {
		return nil, err
	}
	return response.AudioFeatures, nil
}

// APIError is a non-2xx response from the Spotify Web API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match the shared sentinels with errors.Is.
func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		errs = append(errs, shared.ErrTokenExpired)
	case http.StatusNotFound:
		errs = append(errs, shared.ErrNotFound)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		errs = append(errs, shared.ErrServiceUnavailable)
	}
	return errs
}

// newAPIError reads Spotify's {"error": {"status", "message"}} envelope when present.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var envelope struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
