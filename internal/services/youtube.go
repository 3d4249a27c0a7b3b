// YouTube Music implementation of [Service]
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python library.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/shared"
)

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID string          `json:"videoId"`
	Title   string          `json:"title"`
	Artists []YouTubeArtist `json:"artists"`
	Album   *youtubeAlbum   `json:"album"`
}

func (t YouTubeTrack) toTrack() models.Track {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}

	track := models.Track{ID: t.VideoID, Title: t.Title, Artist: strings.Join(names, ", ")}
	if t.Album != nil {
		track.Album = t.Album.Name
	}
	return track
}

// YouTubeService implements the Service interface for YouTube Music via proxy.
type YouTubeService struct {
	api      *APIService
	authFile string
}

// NewYouTubeService creates a YouTube Music service talking to the proxy at baseURL.
//
// authFile is the path of the headers file the proxy authenticates with and is sent via X-Auth-File.
func NewYouTubeService(baseURL, authFile string, client *http.Client) *YouTubeService {
	api := NewAPIService(baseURL, client)
	if authFile != "" {
		api.SetHeader("X-Auth-File", authFile)
	}
	return &YouTubeService{api: api, authFile: authFile}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// call performs a request and decodes a 2xx response into result, mapping failures to sentinel errors.
func (y *YouTubeService) call(ctx context.Context, method, endpoint string, body, result any, fallback error) error {
	resp, err := y.api.Do(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: %w", fallback, err)
	}

	if !resp.OK() {
		msg := fmt.Sprintf("youtube music API error: status %d", resp.StatusCode)
		if detail := resp.Detail(); detail != "" {
			msg = fmt.Sprintf("youtube music API error (status %d): %s", resp.StatusCode, detail)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
		case resp.StatusCode == http.StatusNotFound && errors.Is(fallback, shared.ErrAPIRequest):
			return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, msg)
		default:
			return fmt.Errorf("%w: %s", fallback, msg)
		}
	}

	if result != nil {
		if err := resp.Decode(result); err != nil {
			return fmt.Errorf("%w: %w", fallback, err)
		}
	}
	return nil
}

// Authorize checks that a headers file is configured and that the proxy accepts it.
func (y *YouTubeService) Authorize(ctx context.Context) error {
	if y.authFile == "" {
		return fmt.Errorf("%w: credentials.youtube.headers_path is not set", shared.ErrUnauthorized)
	}
	return y.call(ctx, http.MethodGet, "/api/library/playlists?limit=1", nil, nil, shared.ErrServiceUnavailable)
}

// ListPlaylists retrieves all playlists for the authenticated user.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YouTubeService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var ytPlaylists []struct {
		PlaylistID  string `json:"playlistId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Count       int    `json:"count"`
	}

	if err := y.call(ctx, http.MethodGet, "/api/library/playlists", nil, &ytPlaylists, shared.ErrAPIRequest); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, len(ytPlaylists))
	for i, ytp := range ytPlaylists {
		playlists[i] = models.Playlist{
			ID:          ytp.PlaylistID,
			Name:        ytp.Title,
			Description: ytp.Description,
			TrackCount:  ytp.Count,
		}
	}
	return playlists, nil
}

// LoadTracks retrieves the ordered tracks of a playlist.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YouTubeService) LoadTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var ytPlaylist struct {
		ID     string         `json:"id"`
		Tracks []YouTubeTrack `json:"tracks"`
	}

	endpoint := "/api/playlists/" + url.PathEscape(playlistID)
	if err := y.call(ctx, http.MethodGet, endpoint, nil, &ytPlaylist, shared.ErrAPIRequest); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(ytPlaylist.Tracks))
	for _, ytt := range ytPlaylist.Tracks {
		if ytt.VideoID == "" {
			continue
		}
		tracks = append(tracks, ytt.toTrack())
	}
	return tracks, nil
}

// Search queries the YouTube Music catalog.
//
// Calls GET /api/search?q={term}&filter=songs&limit={limit} on the proxy.
func (y *YouTubeService) Search(ctx context.Context, term string, kind Kind, limit int) ([]models.Track, error) {
	if kind != KindSong {
		return nil, fmt.Errorf("%w: unsupported search kind %q", shared.ErrSearchFailed, kind)
	}
	if limit <= 0 {
		limit = 1
	}

	query := url.Values{}
	query.Set("q", term)
	query.Set("filter", "songs")
	query.Set("limit", fmt.Sprint(limit))

	var results []YouTubeTrack
	if err := y.call(ctx, http.MethodGet, "/api/search?"+query.Encode(), nil, &results, shared.ErrSearchFailed); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, min(limit, len(results)))
	for _, r := range results {
		if r.VideoID == "" {
			continue
		}
		tracks = append(tracks, r.toTrack())
		if len(tracks) == limit {
			break
		}
	}
	return tracks, nil
}

// CreatePlaylist creates a private playlist and adds tracks to it.
//
// Creates the playlist via POST /api/playlists and adds tracks via POST /api/playlists/{id}/items.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, name, description string, tracks []models.Track) (*models.PlaylistHandle, error) {
	createReq := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{name, description, "PRIVATE"}

	var createResp struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := y.call(ctx, http.MethodPost, "/api/playlists", createReq, &createResp, shared.ErrCreationFailed); err != nil {
		return nil, err
	}
	if createResp.PlaylistID == "" {
		return nil, fmt.Errorf("%w: proxy returned no playlist id", shared.ErrCreationFailed)
	}

	if len(tracks) > 0 {
		videoIDs := make([]string, len(tracks))
		for i, track := range tracks {
			videoIDs[i] = track.ID
		}

		addReq := struct {
			VideoIDs []string `json:"video_ids"`
		}{videoIDs}

		endpoint := fmt.Sprintf("/api/playlists/%s/items", url.PathEscape(createResp.PlaylistID))
		if err := y.call(ctx, http.MethodPost, endpoint, addReq, nil, shared.ErrCreationFailed); err != nil {
			return nil, fmt.Errorf("adding tracks to %s: %w", createResp.PlaylistID, err)
		}
	}

	return &models.PlaylistHandle{
		ID:         createResp.PlaylistID,
		Name:       name,
		TrackCount: len(tracks),
	}, nil
}
