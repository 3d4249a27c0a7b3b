package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

var testSpotifyConfig = shared.SpotifyConfig{
	ClientID:     "test_client_id",
	ClientSecret: "test_client_secret",
}

func spotifyTrackJSON(id, name, album string) map[string]any {
	return map[string]any{
		"id":      id,
		"name":    name,
		"type":    "track",
		"artists": []map[string]any{{"name": "Taylor Swift"}},
		"album":   map[string]any{"name": album},
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func newTestSpotify(t *testing.T, mux *http.ServeMux) *SpotifyService {
	t.Helper()
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	svc, err := NewSpotifyService(testSpotifyConfig, WithSpotifyHTTPClient(ts.Client()), WithSpotifyBaseURL(ts.URL))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			svc, err := NewSpotifyService(testSpotifyConfig)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", svc.Name())
			}
			if svc.OAuthConfig().RedirectURL != defaultRedirect {
				t.Errorf("expected default redirect URI, got %s", svc.OAuthConfig().RedirectURL)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			_, err := NewSpotifyService(shared.SpotifyConfig{ClientID: "only_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Saved Token", func(t *testing.T) {
			cfg := testSpotifyConfig
			cfg.AccessToken = "saved_access"
			cfg.RefreshToken = "saved_refresh"

			svc, err := NewSpotifyService(cfg)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			token, err := svc.Token()
			if err != nil {
				t.Fatalf("expected token, got %v", err)
			}
			if token.AccessToken != "saved_access" {
				t.Errorf("expected saved access token, got %s", token.AccessToken)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		svc, _ := NewSpotifyService(testSpotifyConfig)
		authURL := svc.AuthURL("test_state")

		for _, want := range []string{"accounts.spotify.com", "test_client_id", "test_state", "playlist-modify-private"} {
			if !strings.Contains(authURL, want) {
				t.Errorf("auth URL should contain %q: %s", want, authURL)
			}
		}
	})

	t.Run("Unauthorized without token", func(t *testing.T) {
		svc, _ := NewSpotifyService(testSpotifyConfig)

		if err := svc.Authorize(context.Background()); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.Token(); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized from Token, got %v", err)
		}
	})

	t.Run("Authorize", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(t, w, http.StatusOK, map[string]any{"id": "user1", "display_name": "Tester"})
		})
		svc := newTestSpotify(t, mux)

		if err := svc.Authorize(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := svc.Authorize(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected user profile to be fetched once, got %d", calls.Load())
		}
	})

	t.Run("Authorize rejected", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"status": 401, "message": "The access token expired"},
			})
		})
		svc := newTestSpotify(t, mux)

		if err := svc.Authorize(context.Background()); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("ListPlaylists follows pagination", func(t *testing.T) {
		var base string
		mux := http.NewServeMux()
		mux.HandleFunc("GET /me/playlists", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("offset") == "1" {
				writeJSON(t, w, http.StatusOK, map[string]any{
					"items": []map[string]any{{"id": "p2", "name": "Gym", "tracks": map[string]any{"total": 5}}},
					"next":  nil,
				})
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{
				"items": []map[string]any{{"id": "p1", "name": "Road Trip", "description": "drive", "tracks": map[string]any{"total": 2}}},
				"next":  base + "/me/playlists?offset=1",
			})
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()
		base = ts.URL

		svc, _ := NewSpotifyService(testSpotifyConfig, WithSpotifyHTTPClient(ts.Client()), WithSpotifyBaseURL(ts.URL))
		playlists, err := svc.ListPlaylists(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []models.Playlist{
			{ID: "p1", Name: "Road Trip", Description: "drive", TrackCount: 2},
			{ID: "p2", Name: "Gym", TrackCount: 5},
		}
		if len(playlists) != len(want) {
			t.Fatalf("expected %d playlists, got %d", len(want), len(playlists))
		}
		for i := range want {
			if playlists[i].ID != want[i].ID || playlists[i].Name != want[i].Name || playlists[i].TrackCount != want[i].TrackCount {
				t.Errorf("playlist %d = %+v, want %+v", i, playlists[i], want[i])
			}
		}
	})

	t.Run("LoadTracks", func(t *testing.T) {
		items := func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("id") != "p1" {
				writeJSON(t, w, http.StatusNotFound, map[string]any{"error": map[string]any{"status": 404, "message": "Not found"}})
				return
			}
			writeJSON(t, w, http.StatusOK, map[string]any{
				"items": []map[string]any{
					{"track": spotifyTrackJSON("t1", "Style", "1989")},
					{"track": spotifyTrackJSON("t2", "Cruel Summer", "Lover")},
				},
				"next": nil,
			})
		}
		mux := http.NewServeMux()
		mux.HandleFunc("GET /playlists/{id}/tracks", items)
		mux.HandleFunc("GET /playlists/{id}/items", items)
		svc := newTestSpotify(t, mux)

		tracks, err := svc.LoadTracks(context.Background(), "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := []models.Track{
			{ID: "t1", Title: "Style", Artist: "Taylor Swift", Album: "1989"},
			{ID: "t2", Title: "Cruel Summer", Artist: "Taylor Swift", Album: "Lover"},
		}
		if len(tracks) != len(want) {
			t.Fatalf("expected %d tracks, got %d", len(want), len(tracks))
		}
		for i := range want {
			if tracks[i] != want[i] {
				t.Errorf("track %d = %+v, want %+v", i, tracks[i], want[i])
			}
		}

		if _, err := svc.LoadTracks(context.Background(), "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Search", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
			switch q := r.URL.Query().Get("q"); {
			case strings.HasPrefix(q, "expired"):
				writeJSON(t, w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"status": 401, "message": "expired"}})
			case strings.HasPrefix(q, "broken"):
				writeJSON(t, w, http.StatusBadRequest, map[string]any{"error": map[string]any{"status": 400, "message": "bad query"}})
			case strings.HasPrefix(q, "nothing"):
				writeJSON(t, w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": []any{}}})
			default:
				if r.URL.Query().Get("type") != "track" {
					t.Errorf("expected type=track, got %s", r.URL.Query().Get("type"))
				}
				writeJSON(t, w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": []any{
					spotifyTrackJSON("tv1", "Style (Taylor's Version)", "1989 (Taylor's Version)"),
					spotifyTrackJSON("tv2", "Style (Taylor's Version) [Live]", "1989 (Taylor's Version)"),
				}}})
			}
		})
		svc := newTestSpotify(t, mux)
		ctx := context.Background()

		tracks, err := svc.Search(ctx, "Style (Taylor's Version) Taylor Swift", KindSong, 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].ID != "tv1" {
			t.Errorf("expected first match tv1, got %+v", tracks)
		}

		if tracks, err := svc.Search(ctx, "nothing here", KindSong, 1); err != nil || len(tracks) != 0 {
			t.Errorf("expected empty results, got %+v, %v", tracks, err)
		}

		if _, err := svc.Search(ctx, "expired token", KindSong, 1); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}

		if _, err := svc.Search(ctx, "broken", KindSong, 1); !errors.Is(err, shared.ErrSearchFailed) {
			t.Errorf("expected ErrSearchFailed, got %v", err)
		}

		if _, err := svc.Search(ctx, "Red", KindAlbum, 1); !errors.Is(err, shared.ErrSearchFailed) {
			t.Errorf("expected ErrSearchFailed for album kind, got %v", err)
		}
	})

	t.Run("CreatePlaylist batches tracks", func(t *testing.T) {
		var (
			mu      sync.Mutex
			batches [][]string
		)
		mux := http.NewServeMux()
		mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"id": "user1"})
		})
		mux.HandleFunc("POST /users/{user}/playlists", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name   string `json:"name"`
				Public bool   `json:"public"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if r.PathValue("user") != "user1" {
				t.Errorf("expected user1, got %s", r.PathValue("user"))
			}
			if body.Public {
				t.Error("expected private playlist")
			}
			writeJSON(t, w, http.StatusCreated, map[string]any{"id": "new1", "name": body.Name})
		})
		mux.HandleFunc("POST /playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			batches = append(batches, body.URIs)
			mu.Unlock()
			writeJSON(t, w, http.StatusCreated, map[string]any{"snapshot_id": "snap"})
		})
		svc := newTestSpotify(t, mux)

		tracks := make([]models.Track, 150)
		for i := range tracks {
			tracks[i] = models.Track{ID: fmt.Sprintf("t%03d", i)}
		}

		handle, err := svc.CreatePlaylist(context.Background(), "Road Trip (Taylor's Version)", "", tracks)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if handle.ID != "new1" || handle.Name != "Road Trip (Taylor's Version)" || handle.TrackCount != 150 {
			t.Errorf("unexpected handle %+v", handle)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(batches) != 2 || len(batches[0]) != 100 || len(batches[1]) != 50 {
			t.Fatalf("expected batches of 100 and 50, got %d batches", len(batches))
		}
		if !strings.HasSuffix(batches[0][0], "t000") {
			t.Errorf("expected first uri for t000, got %s", batches[0][0])
		}
	})

	t.Run("CreatePlaylist failure", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"id": "user1"})
		})
		mux.HandleFunc("POST /users/{user}/playlists", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusBadRequest, map[string]any{"error": map[string]any{"status": 400, "message": "bad name"}})
		})
		svc := newTestSpotify(t, mux)

		_, err := svc.CreatePlaylist(context.Background(), "x", "", nil)
		if !errors.Is(err, shared.ErrCreationFailed) {
			t.Errorf("expected ErrCreationFailed, got %v", err)
		}
	})
}

func TestSpotifyTranslate(t *testing.T) {
	svc, _ := NewSpotifyService(testSpotifyConfig)

	tests := []struct {
		name     string
		err      error
		fallback error
		want     error
	}{
		{"unauthorized", spotify.Error{Status: 401, Message: "expired"}, shared.ErrSearchFailed, shared.ErrUnauthorized},
		{"forbidden", spotify.Error{Status: 403, Message: "scope"}, shared.ErrCreationFailed, shared.ErrUnauthorized},
		{"not found playlist", spotify.Error{Status: 404}, shared.ErrAPIRequest, shared.ErrPlaylistNotFound},
		{"not found search", spotify.Error{Status: 404}, shared.ErrSearchFailed, shared.ErrSearchFailed},
		{"server error", spotify.Error{Status: 500}, shared.ErrSearchFailed, shared.ErrSearchFailed},
		{"refresh rejected", &oauth2.RetrieveError{Response: &http.Response{StatusCode: 400}}, shared.ErrSearchFailed, shared.ErrUnauthorized},
		{"transport", errors.New("connection reset"), shared.ErrCreationFailed, shared.ErrCreationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.translate(tt.err, tt.fallback); !errors.Is(got, tt.want) {
				t.Errorf("translate() = %v, want %v", got, tt.want)
			}
		})
	}
}
