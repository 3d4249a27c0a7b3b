package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Replace     ReplaceConfig     `toml:"replace"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials and the tokens saved by the auth flow.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// Authorized reports whether tokens from a previous authorization flow are saved.
func (s SpotifyConfig) Authorized() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// UpdateToken stores the tokens returned by an authorization flow.
// A refreshed token without a refresh token keeps the saved one.
func (s *SpotifyConfig) UpdateToken(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}

	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenExpiry = token.Expiry
	return nil
}

// YouTubeConfig contains YouTube Music proxy settings.
type YouTubeConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ReplaceConfig controls classification, resolution and playlist naming.
type ReplaceConfig struct {
	Albums                  []string `toml:"albums"`
	Marker                  string   `toml:"marker"`
	Artist                  string   `toml:"artist"`
	Suffix                  string   `toml:"suffix"`
	Workers                 int      `toml:"workers"`
	RateLimit               float64  `toml:"rate_limit"`
	MaxRetries              int      `toml:"max_retries"`
	RetryBackoffMS          int      `toml:"retry_backoff_ms"`
	ReplacementPlaylist     bool     `toml:"replacement_playlist"`
	ReplacementPlaylistName string   `toml:"replacement_playlist_name"`
}

// RetryBackoff returns the base retry delay as a [time.Duration].
func (r ReplaceConfig) RetryBackoff() time.Duration {
	return time.Duration(r.RetryBackoffMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the values from [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the replace section for values the engine cannot run with.
func (c *Config) Validate() error {
	r := c.Replace
	switch {
	case len(r.Albums) == 0:
		return fmt.Errorf("%w: replace.albums must not be empty", ErrInvalidConfig)
	case r.Marker == "":
		return fmt.Errorf("%w: replace.marker must not be empty", ErrInvalidConfig)
	case r.Workers < 0:
		return fmt.Errorf("%w: replace.workers must not be negative", ErrInvalidConfig)
	case r.RateLimit < 0:
		return fmt.Errorf("%w: replace.rate_limit must not be negative", ErrInvalidConfig)
	case r.MaxRetries < 0:
		return fmt.Errorf("%w: replace.max_retries must not be negative", ErrInvalidConfig)
	case r.RetryBackoffMS < 0:
		return fmt.Errorf("%w: replace.retry_backoff_ms must not be negative", ErrInvalidConfig)
	case r.ReplacementPlaylist && r.ReplacementPlaylistName == "":
		return fmt.Errorf("%w: replace.replacement_playlist_name must be set", ErrInvalidConfig)
	}

	for i, album := range r.Albums {
		if album == "" {
			return fmt.Errorf("%w: replace.albums[%d] is empty", ErrInvalidConfig, i)
		}
	}
	return nil
}
