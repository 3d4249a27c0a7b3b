package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/otv/internal/models"
)

const (
	DefaultMarker = "(Taylor's Version)"
	DefaultArtist = "Taylor Swift"
	DefaultSuffix = " (Taylor's Version)"
)

// DefaultAlbums are the albums re-released as "Taylor's Version".
var DefaultAlbums = []string{"1989", "Speak Now", "Red", "Fearless"}

// ShouldReplace reports whether track comes from one of albums and is not already a re-recording.
//
// Matching is a case-sensitive substring test on the album title, so "Red (Deluxe Edition)" matches "Red".
// A track whose album or title already contains marker is never replaced.
func ShouldReplace(track models.Track, albums []string, marker string) bool {
	if marker != "" && (strings.Contains(track.Album, marker) || strings.Contains(track.Title, marker)) {
		return false
	}

	for _, album := range albums {
		if album != "" && strings.Contains(track.Album, album) {
			return true
		}
	}
	return false
}

// Classifier decides which tracks need a replacement.
type Classifier struct {
	Albums []string
	Marker string
	Artist string
}

// NewClassifier creates a Classifier, falling back to the defaults for empty arguments.
func NewClassifier(albums []string, marker, artist string) *Classifier {
	if len(albums) == 0 {
		albums = DefaultAlbums
	}
	if marker == "" {
		marker = DefaultMarker
	}
	if artist == "" {
		artist = DefaultArtist
	}
	return &Classifier{Albums: albums, Marker: marker, Artist: artist}
}

// Classify reports whether track must be replaced.
func (c *Classifier) Classify(track models.Track) bool {
	return ShouldReplace(track, c.Albums, c.Marker)
}

// IsTargetArtist reports whether the track's artist credit includes the configured artist.
func (c *Classifier) IsTargetArtist(track models.Track) bool {
	return strings.Contains(track.Artist, c.Artist)
}

// Candidate returns the track as a [Candidate] when it is by the target artist and must be replaced.
//
// Tracks without an ID cannot be deduplicated or re-added and are never candidates.
func (c *Classifier) Candidate(track models.Track) (Candidate, bool) {
	if track.ID == "" || !c.IsTargetArtist(track) || !c.Classify(track) {
		return Candidate{}, false
	}
	return Candidate{Track: track, Term: c.Term(track)}, true
}

// Term builds the catalog search term for track.
func (c *Classifier) Term(track models.Track) string {
	return fmt.Sprintf("%s %s %s", track.Title, c.Marker, c.Artist)
}

// SearchTerm builds the default catalog search term: "{title} (Taylor's Version) Taylor Swift".
func SearchTerm(title string) string {
	return fmt.Sprintf("%s %s %s", title, DefaultMarker, DefaultArtist)
}

// Candidate is a classified track and the term used to look up its replacement.
type Candidate struct {
	Track models.Track
	Term  string
}
