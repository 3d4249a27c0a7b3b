package models

import (
	"testing"
	"time"
)

func TestTrackString(t *testing.T) {
	tests := []struct {
		name  string
		track Track
		want  string
	}{
		{"with album", Track{Title: "Style", Artist: "Taylor Swift", Album: "1989"}, "Taylor Swift - Style (1989)"},
		{"without album", Track{Title: "Style", Artist: "Taylor Swift"}, "Taylor Swift - Style"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.track.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	valid := func() *Run {
		return &Run{ID: "run-1", Service: "Spotify", State: "done", StartedAt: start, FinishedAt: start.Add(time.Minute)}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid run, got %v", err)
	}

	if got := valid().Duration(); got != time.Minute {
		t.Errorf("Duration() = %v, want 1m", got)
	}

	tests := []struct {
		name   string
		mutate func(r *Run)
	}{
		{"missing id", func(r *Run) { r.ID = "" }},
		{"missing service", func(r *Run) { r.Service = "" }},
		{"missing state", func(r *Run) { r.State = "" }},
		{"missing start", func(r *Run) { r.StartedAt = time.Time{} }},
		{"finished before start", func(r *Run) { r.FinishedAt = start.Add(-time.Second) }},
		{"playlist without source", func(r *Run) { r.Playlists = []RunPlaylist{{SourceName: "x"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			if err := r.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
