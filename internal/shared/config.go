package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables read by [Config.ApplyEnv].
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvRedirectURI  = "SPOTIFY_REDIRECT_URI"
	EnvCachePath    = "SPOTDIAG_CACHE_PATH"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Cache       CacheConfig       `toml:"cache"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// Map returns the credentials in the form expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
		"scopes":        strings.Join(s.Scopes, " "),
	}
}

// CacheConfig contains token cache database settings.
type CacheConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DiagnosticsConfig holds the fixed inputs of a diagnostic run.
type DiagnosticsConfig struct {
	Query             string  `toml:"query"`
	Country           string  `toml:"country"`
	KnownTrackID      string  `toml:"known_track_id"`
	TrackLimit        int     `toml:"track_limit"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials and the cache path with non-empty environment values.
//
// getenv defaults to [os.Getenv].
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvClientID); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := getenv(EnvClientSecret); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := getenv(EnvRedirectURI); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := getenv(EnvCachePath); v != "" {
		c.Cache.Path = v
	}
}

// Validate reports whether the Spotify credentials are usable.
//
// The placeholder values shipped in the example config count as missing.
func (c *Config) Validate() error {
	s := c.Credentials.Spotify
	if s.ClientID == "" || s.ClientID == "your_spotify_client_id" {
		return fmt.Errorf("%w: spotify client_id", ErrMissingCredentials)
	}
	if s.ClientSecret == "" || s.ClientSecret == "your_spotify_client_secret" {
		return fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials)
	}
	if s.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri", ErrInvalidConfig)
	}
	return nil
}
