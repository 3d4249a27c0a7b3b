// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/services"
	"github.com/desertthunder/otv/internal/shared"
)

var _ services.Service = (*FakeService)(nil)

// FakeService is an in-memory test double for [services.Service].
//
// Playlists are served with their Tracks; Results maps search terms to catalog results. Error maps inject failures
// keyed by playlist ID (LoadErrs), search term (SearchErrs) or playlist name (CreateErrs).
type FakeService struct {
	ServiceName string
	Playlists   []models.Playlist
	Results     map[string][]models.Track

	AuthorizeErr error
	ListErr      error
	LoadErrs     map[string]error
	SearchErrs   map[string]error
	CreateErrs   map[string]error

	// FlakySearches makes the first n searches for a term fail with [shared.ErrSearchFailed].
	FlakySearches map[string]int

	// OnSearch runs before a search is served. OnCreate runs after the empty playlist exists and before its
	// tracks are added, the point where a real service can be left with a half-written playlist.
	OnSearch func(term string)
	OnCreate func(name string)

	mu          sync.Mutex
	searchCalls map[string]int
	loadCalls   map[string]int
	created     []models.Playlist
}

func (f *FakeService) Name() string {
	if f.ServiceName == "" {
		return "fake"
	}
	return f.ServiceName
}

func (f *FakeService) Authorize(ctx context.Context) error {
	return f.AuthorizeErr
}

func (f *FakeService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	out := make([]models.Playlist, len(f.Playlists))
	for i, p := range f.Playlists {
		out[i] = models.Playlist{ID: p.ID, Name: p.Name, Description: p.Description, TrackCount: len(p.Tracks)}
	}
	return out, nil
}

func (f *FakeService) LoadTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	f.mu.Lock()
	if f.loadCalls == nil {
		f.loadCalls = make(map[string]int)
	}
	f.loadCalls[playlistID]++
	f.mu.Unlock()

	if err := f.LoadErrs[playlistID]; err != nil {
		return nil, err
	}

	for _, p := range f.Playlists {
		if p.ID == playlistID {
			return append([]models.Track(nil), p.Tracks...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (f *FakeService) Search(ctx context.Context, term string, kind services.Kind, limit int) ([]models.Track, error) {
	if f.OnSearch != nil {
		f.OnSearch(term)
	}

	f.mu.Lock()
	if f.searchCalls == nil {
		f.searchCalls = make(map[string]int)
	}
	f.searchCalls[term]++
	attempt := f.searchCalls[term]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.SearchErrs[term]; err != nil {
		return nil, err
	}
	if attempt <= f.FlakySearches[term] {
		return nil, fmt.Errorf("%w: attempt %d", shared.ErrSearchFailed, attempt)
	}

	results := f.Results[term]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return append([]models.Track(nil), results...), nil
}

// CreatePlaylist creates the playlist in two steps like the real services: an empty playlist first, then its
// tracks. Either step fails when ctx is done, so a cancelled context can leave an empty playlist behind.
func (f *FakeService) CreatePlaylist(ctx context.Context, name, description string, tracks []models.Track) (*models.PlaylistHandle, error) {
	if err := f.CreateErrs[name]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrCreationFailed, err)
	}

	f.mu.Lock()
	idx := len(f.created)
	id := fmt.Sprintf("created-%d", idx+1)
	f.created = append(f.created, models.Playlist{ID: id, Name: name, Description: description})
	f.mu.Unlock()

	if f.OnCreate != nil {
		f.OnCreate(name)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: adding tracks: %w", shared.ErrCreationFailed, err)
	}

	f.mu.Lock()
	f.created[idx].Tracks = append([]models.Track(nil), tracks...)
	f.created[idx].TrackCount = len(tracks)
	f.mu.Unlock()

	return &models.PlaylistHandle{ID: id, Name: name, TrackCount: len(tracks)}, nil
}

// SearchCount returns the total number of Search calls.
func (f *FakeService) SearchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.searchCalls {
		n += c
	}
	return n
}

// SearchCalls returns the number of Search calls made for term.
func (f *FakeService) SearchCalls(term string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls[term]
}

// LoadCalls returns the number of LoadTracks calls made for playlistID.
func (f *FakeService) LoadCalls(playlistID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadCalls[playlistID]
}

// Created returns the playlists created so far, in creation order.
func (f *FakeService) Created() []models.Playlist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Playlist(nil), f.created...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites int, target io.Writer) *LimitedWriter {
	return &LimitedWriter{maxWrites: maxWrites, target: target}
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
