package tasks

import (
	"github.com/desertthunder/otv/internal/models"
)

// Transformed is the output of [Transform] for one source playlist.
type Transformed struct {
	Source    models.Playlist
	Name      string
	Tracks    []models.Track // Same length as Source.Tracks
	Positions []int          // Indexes where a replacement was substituted
}

// Replaced returns the number of substituted positions.
func (t Transformed) Replaced() int {
	return len(t.Positions)
}

// ReplacementName returns the name of the playlist created from name.
func ReplacementName(name string) string {
	return name + DefaultSuffix
}

// Transform builds the replacement track list for playlist.
//
// Position i of the output holds lookup's replacement for input position i when classify accepts the track and
// lookup finds one, and the original track otherwise. The source playlist is not modified.
func Transform(playlist models.Playlist, classify func(models.Track) bool, lookup func(models.Track) (models.Track, bool)) Transformed {
	out := Transformed{
		Source: playlist,
		Name:   ReplacementName(playlist.Name),
		Tracks: make([]models.Track, len(playlist.Tracks)),
	}

	for i, track := range playlist.Tracks {
		out.Tracks[i] = track
		if !classify(track) {
			continue
		}
		if replacement, ok := lookup(track); ok {
			out.Tracks[i] = replacement
			out.Positions = append(out.Positions, i)
		}
	}
	return out
}
