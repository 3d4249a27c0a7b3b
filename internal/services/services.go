package services

import (
	"context"

	"github.com/desertthunder/otv/internal/models"
)

// Kind selects the type of catalog entity a search returns.
type Kind string

const (
	KindSong  Kind = "song"
	KindAlbum Kind = "album"
)

// Library reads a user's playlists and creates new ones.
type Library interface {
	// ListPlaylists returns every playlist in the user's library, without tracks.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	// LoadTracks returns the ordered tracks of a playlist.
	LoadTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// CreatePlaylist creates a playlist holding tracks in order.
	// Errors wrap [shared.ErrCreationFailed] or [shared.ErrUnauthorized].
	CreatePlaylist(ctx context.Context, name, description string, tracks []models.Track) (*models.PlaylistHandle, error)
}

// Catalog searches a provider's catalog.
type Catalog interface {
	// Search returns at most limit results for term, best match first.
	// Errors wrap [shared.ErrUnauthorized] or [shared.ErrSearchFailed].
	Search(ctx context.Context, term string, kind Kind, limit int) ([]models.Track, error)
}

// Service defines the interface for music service providers (Spotify, YouTube Music).
type Service interface {
	Library
	Catalog

	// Authorize verifies that library access is granted, returning [shared.ErrUnauthorized] when it is not.
	Authorize(ctx context.Context) error

	// Name returns the name of the service (e.g., "Spotify", "YouTube Music")
	Name() string
}
