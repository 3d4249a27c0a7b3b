package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/tasks"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = candidateItem{}
)

// playlistItem wraps an affected [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
	affected int
	target   string
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	return fmt.Sprintf("%d of %d tracks to replace • %s", i.affected, len(i.playlist.Tracks), i.target)
}

// candidateItem wraps a [tasks.Candidate] to implement [list.Item].
type candidateItem struct {
	candidate tasks.Candidate
}

func (i candidateItem) FilterValue() string { return i.candidate.Track.Title }
func (i candidateItem) Title() string       { return i.candidate.Track.Title }
func (i candidateItem) Description() string {
	desc := i.candidate.Track.Artist
	if i.candidate.Track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.candidate.Track.Album)
	}
	return desc
}

// scanItems builds the list items for the affected playlists and candidate songs of scan.
func scanItems(scan *tasks.ScanResult, name func(string) string) (playlists, songs []list.Item) {
	candidates := make(map[string]bool, len(scan.Candidates))
	for _, c := range scan.Candidates {
		candidates[c.Track.ID] = true
		songs = append(songs, candidateItem{candidate: c})
	}

	for _, p := range scan.Playlists {
		affected := 0
		for _, t := range p.Tracks {
			if candidates[t.ID] {
				affected++
			}
		}
		playlists = append(playlists, playlistItem{playlist: p, affected: affected, target: name(p.Name)})
	}
	return playlists, songs
}
