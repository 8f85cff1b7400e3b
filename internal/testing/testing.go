// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/desertthunder/spotdiag/internal/services"
)

// MockSpotify is a test double for the Spotify client consumed by the diagnostic runner.
//
// Each method returns its configured value and error; AudioFeaturesFunc, when set, takes precedence over
// AudioFeaturesResult so tests can answer per request. Calls records method names in order.
type MockSpotify struct {
	User      *services.SpotifyUser
	UserErr   error
	Result    *services.SearchResult
	SearchErr error
	Tracks    []services.SpotifyTrack
	TracksErr error

	AudioFeaturesResult []*services.AudioFeatures
	AudioFeaturesErr    error
	AudioFeaturesFunc   func(ids []string) ([]*services.AudioFeatures, error)

	PanicOn string
	Calls   []string
}

func (m *MockSpotify) record(name string) {
	m.Calls = append(m.Calls, name)
	if m.PanicOn == name {
		panic("mock panic in " + name)
	}
}

func (m *MockSpotify) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	m.record("CurrentUser")
	return m.User, m.UserErr
}

func (m *MockSpotify) Search(ctx context.Context, query, searchType string, limit int) (*services.SearchResult, error) {
	m.record("Search")
	return m.Result, m.SearchErr
}

func (m *MockSpotify) ArtistTopTracks(ctx context.Context, artistID, country string) ([]services.SpotifyTrack, error) {
	m.record("ArtistTopTracks")
	return m.Tracks, m.TracksErr
}

func (m *MockSpotify) AudioFeatures(ctx context.Context, ids ...string) ([]*services.AudioFeatures, error) {
	m.record("AudioFeatures")
	if m.AudioFeaturesFunc != nil {
		return m.AudioFeaturesFunc(ids)
	}
	return m.AudioFeaturesResult, m.AudioFeaturesErr
}

// HealthySpotify returns a [MockSpotify] for which every diagnostic step succeeds.
func HealthySpotify() *MockSpotify {
	return &MockSpotify{
		User: &services.SpotifyUser{ID: "u1", DisplayName: "Test User", Email: "test@example.com"},
		Result: &services.SearchResult{
			Artists: &services.SpotifyArtistPage{
				Items: []services.SpotifyArtist{{ID: "artist1", Name: "Ski Mask the Slump God"}},
				Total: 1,
			},
		},
		Tracks: []services.SpotifyTrack{
			{ID: "t1", Name: "Catch Me Outside"},
			{ID: "t2", Name: "Faucet Failure"},
			{ID: "t3", Name: "Babywipe"},
			{ID: "t4", Name: "DoIHaveTheSauce?"},
		},
		AudioFeaturesFunc: func(ids []string) ([]*services.AudioFeatures, error) {
			features := make([]*services.AudioFeatures, len(ids))
			for i, id := range ids {
				features[i] = &services.AudioFeatures{ID: id, Danceability: 0.8, Energy: 0.7, Tempo: 140, Valence: 0.5}
			}
			return features, nil
		},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
