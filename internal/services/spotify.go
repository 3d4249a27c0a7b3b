// Spotify implementation of [Service]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	spotifyPageSize   = 50
	spotifyItemsLimit = 100
	defaultRedirect   = "http://127.0.0.1:3000/callback"
)

// SpotifyScopes are the scopes requested by the authorization flow: reading every playlist and creating new ones.
var SpotifyScopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyBaseURL points the API client at baseURL instead of the public Web API.
func WithSpotifyBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		s.baseURL = baseURL
	}
}

// WithSpotifyHTTPClient uses client for API calls instead of an OAuth2 client built from the saved token.
func WithSpotifyHTTPClient(client *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = client }
}

// WithPublicPlaylists creates replacement playlists as public.
func WithPublicPlaylists(public bool) SpotifyOption {
	return func(s *SpotifyService) { s.public = public }
}

// SpotifyService implements the Service interface for Spotify API interactions.
type SpotifyService struct {
	config     *oauth2.Config
	source     oauth2.TokenSource
	httpClient *http.Client
	baseURL    string
	public     bool

	mu     sync.Mutex
	client *spotify.Client
	userID string
}

// NewSpotifyService creates a Spotify service from the configured credentials.
//
// When the config carries saved tokens they back an [oauth2.TokenSource] that refreshes the access token as needed.
func NewSpotifyService(cfg shared.SpotifyConfig, opts ...SpotifyOption) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	redirect := cfg.RedirectURI
	if redirect == "" {
		redirect = defaultRedirect
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirect,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if cfg.AccessToken != "" || cfg.RefreshToken != "" {
		s.SetToken(&oauth2.Token{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
			Expiry:       cfg.TokenExpiry,
			TokenType:    "Bearer",
		})
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig returns the OAuth2 configuration used by the authorization flow.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SetToken installs token as the source of API credentials and drops any cached client.
func (s *SpotifyService) SetToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.source = s.config.TokenSource(context.Background(), token)
	s.client = nil
	s.userID = ""
}

// Token returns the current token, refreshing it first if it has expired.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()

	if source == nil {
		return nil, fmt.Errorf("%w: no spotify token", shared.ErrUnauthorized)
	}

	token, err := source.Token()
	if err != nil {
		return nil, s.translate(err, shared.ErrAuthFailed)
	}
	return token, nil
}

// api returns the lazily constructed API client.
func (s *SpotifyService) api() (*spotify.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	httpClient := s.httpClient
	if httpClient == nil {
		if s.source == nil {
			return nil, fmt.Errorf("%w: run `otv auth spotify` first", shared.ErrUnauthorized)
		}
		httpClient = oauth2.NewClient(context.Background(), s.source)
	}

	opts := []spotify.ClientOption{spotify.WithRetry(true)}
	if s.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.baseURL))
	}
	s.client = spotify.New(httpClient, opts...)
	return s.client, nil
}

// translate maps Spotify and OAuth2 errors onto the shared sentinels, falling back to fallback.
func (s *SpotifyService) translate(err error, fallback error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, shared.ErrUnauthorized) {
		return err
	}

	var apiErr spotify.Error
	var apiErrPtr *spotify.Error
	var retrieveErr *oauth2.RetrieveError

	status := 0
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Status
	case errors.As(err, &apiErrPtr):
		status = apiErrPtr.Status
	case errors.As(err, &retrieveErr):
		return fmt.Errorf("%w: token refresh rejected: %w", shared.ErrUnauthorized, err)
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", shared.ErrUnauthorized, err)
	case http.StatusNotFound:
		if fallback == shared.ErrAPIRequest {
			return fmt.Errorf("%w: %w", shared.ErrPlaylistNotFound, err)
		}
	}
	return fmt.Errorf("%w: %w", fallback, err)
}

// currentUserID returns the ID of the authorized user, caching it for playlist creation.
func (s *SpotifyService) currentUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.userID
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	client, err := s.api()
	if err != nil {
		return "", err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return "", s.translate(err, shared.ErrAPIRequest)
	}

	s.mu.Lock()
	s.userID = user.ID
	s.mu.Unlock()
	return user.ID, nil
}

// Authorize verifies the saved token by fetching the current user profile.
func (s *SpotifyService) Authorize(ctx context.Context) error {
	_, err := s.currentUserID(ctx)
	return err
}

// ListPlaylists retrieves all playlists for the authenticated user, following pagination.
func (s *SpotifyService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := client.CurrentUsersPlaylists(ctx, spotify.Limit(spotifyPageSize))
	if err != nil {
		return nil, s.translate(err, shared.ErrAPIRequest)
	}

	var playlists []models.Playlist
	for {
		for _, sp := range page.Playlists {
			playlists = append(playlists, models.Playlist{
				ID:          sp.ID.String(),
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  int(sp.Tracks.Total),
			})
		}

		err = client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, s.translate(err, shared.ErrAPIRequest)
		}
	}
	return playlists, nil
}

// LoadTracks retrieves the ordered tracks of a playlist. Episodes and local files are skipped.
func (s *SpotifyService) LoadTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	page, err := client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(spotifyItemsLimit))
	if err != nil {
		return nil, s.translate(err, shared.ErrAPIRequest)
	}

	var tracks []models.Track
	for {
		for _, item := range page.Items {
			if item.IsLocal || item.Track.Track == nil {
				continue
			}
			tracks = append(tracks, convertSpotifyTrack(item.Track.Track))
		}

		err = client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, s.translate(err, shared.ErrAPIRequest)
		}
	}
	return tracks, nil
}

// Search queries the Spotify catalog. Only [KindSong] is supported.
func (s *SpotifyService) Search(ctx context.Context, term string, kind Kind, limit int) ([]models.Track, error) {
	if kind != KindSong {
		return nil, fmt.Errorf("%w: unsupported search kind %q", shared.ErrSearchFailed, kind)
	}

	client, err := s.api()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 1
	}

	result, err := client.Search(ctx, term, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, s.translate(err, shared.ErrSearchFailed)
	}

	if result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Tracks))
	for i := range result.Tracks.Tracks {
		tracks = append(tracks, convertSpotifyTrack(&result.Tracks.Tracks[i]))
		if len(tracks) == limit {
			break
		}
	}
	return tracks, nil
}

// CreatePlaylist creates a private playlist for the current user and adds tracks in batches of 100.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, tracks []models.Track) (*models.PlaylistHandle, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	client, err := s.api()
	if err != nil {
		return nil, err
	}

	playlist, err := client.CreatePlaylistForUser(ctx, userID, name, description, s.public, false)
	if err != nil {
		return nil, s.translate(err, shared.ErrCreationFailed)
	}

	ids := make([]spotify.ID, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, spotify.ID(t.ID))
	}

	for i := 0; i < len(ids); i += spotifyItemsLimit {
		end := min(i+spotifyItemsLimit, len(ids))
		if _, err := client.AddTracksToPlaylist(ctx, playlist.ID, ids[i:end]...); err != nil {
			return nil, s.translate(fmt.Errorf("adding tracks %d-%d to %s: %w", i+1, end, playlist.ID, err), shared.ErrCreationFailed)
		}
	}

	return &models.PlaylistHandle{
		ID:         playlist.ID.String(),
		Name:       playlist.Name,
		TrackCount: len(ids),
	}, nil
}

// convertSpotifyTrack maps a [spotify.FullTrack] to a [models.Track], joining multiple artists with ", ".
func convertSpotifyTrack(t *spotify.FullTrack) models.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return models.Track{
		ID:     t.ID.String(),
		Title:  t.Name,
		Artist: strings.Join(artists, ", "),
		Album:  t.Album.Name,
	}
}
