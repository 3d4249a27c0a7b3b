// package models defines the data model for playlist replacement runs
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	GetID() string           // GetID returns the unique identifier for this model
	GetCreatedAt() time.Time // GetCreatedAt returns when this model was created
	Validate() error         // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Runs are append-only, so there is no Update or Delete.
type Repository[T Model] interface {
	Create(model T) error        // Create inserts a new model into the database
	Get(id string) (T, error)    // Get retrieves a model by its ID
	List(limit int) ([]T, error) // List retrieves the most recent models, newest first
}

// Track represents a music track from any service
type Track struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"` // empty when the service reports no album
}

func (t Track) String() string {
	if t.Album == "" {
		return fmt.Sprintf("%s - %s", t.Artist, t.Title)
	}
	return fmt.Sprintf("%s - %s (%s)", t.Artist, t.Title, t.Album)
}

// Playlist represents an ordered music playlist from any service
type Playlist struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	TrackCount  int     `json:"track_count"`
	Tracks      []Track `json:"tracks,omitempty"`
}

// PlaylistHandle identifies a playlist created by a service.
type PlaylistHandle struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
}

// Run is the persisted summary of a finished batch run.
type Run struct {
	ID                   string        `json:"id"`
	Sequence             int64         `json:"sequence"`
	Service              string        `json:"service"`
	State                string        `json:"state"`
	DryRun               bool          `json:"dry_run"`
	PlaylistsExamined    int           `json:"playlists_examined"`
	PlaylistsTransformed int           `json:"playlists_transformed"`
	PlaylistsFailed      int           `json:"playlists_failed"`
	TracksExamined       int           `json:"tracks_examined"`
	TracksClassified     int           `json:"tracks_classified"`
	TracksReplaced       int           `json:"tracks_replaced"`
	Substitutions        int           `json:"substitutions"`
	NoMatch              int           `json:"no_match"`
	SearchFailed         int           `json:"search_failed"`
	StartedAt            time.Time     `json:"started_at"`
	FinishedAt           time.Time     `json:"finished_at"`
	CreatedAt            time.Time     `json:"created_at"`
	Playlists            []RunPlaylist `json:"playlists,omitempty"`
}

// RunPlaylist is the outcome for one source playlist in a [Run].
type RunPlaylist struct {
	SourceID    string `json:"source_id"`
	SourceName  string `json:"source_name"`
	CreatedID   string `json:"created_id,omitempty"`
	CreatedName string `json:"created_name,omitempty"`
	Replaced    int    `json:"replaced"`
	Error       string `json:"error,omitempty"`
}

func (r *Run) GetID() string           { return r.ID }
func (r *Run) GetCreatedAt() time.Time { return r.CreatedAt }

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Validate checks required fields before the run is persisted.
func (r *Run) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("run id is required")
	case r.Service == "":
		return fmt.Errorf("run service is required")
	case r.State == "":
		return fmt.Errorf("run state is required")
	case r.StartedAt.IsZero():
		return fmt.Errorf("run start time is required")
	case r.FinishedAt.Before(r.StartedAt):
		return fmt.Errorf("run finished before it started")
	}

	for i, p := range r.Playlists {
		if p.SourceID == "" {
			return fmt.Errorf("run playlist %d: source id is required", i)
		}
	}
	return nil
}
