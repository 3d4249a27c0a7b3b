package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/otv/internal/models"
)

// State is the lifecycle state of a [Report].
type State string

const (
	StateRunning      State = "running"
	StateDone         State = "done"
	StateCancelled    State = "cancelled"
	StateUnauthorized State = "unauthorized"
)

// PlaylistOutcome records what happened to one source playlist.
type PlaylistOutcome struct {
	Source    models.Playlist        `json:"source"`
	Name      string                 `json:"name"`
	Created   *models.PlaylistHandle `json:"created,omitempty"`
	Replaced  int                    `json:"replaced"`
	Positions []int                  `json:"positions,omitempty"`
	DryRun    bool                   `json:"dry_run,omitempty"`
	Err       error                  `json:"-"`
	Error     string                 `json:"error,omitempty"`
}

// TrackFailure records a candidate that could not be resolved.
type TrackFailure struct {
	Track  models.Track `json:"track"`
	Reason Reason       `json:"-"`
	Err    error        `json:"-"`
	Kind   string       `json:"reason"`
	Error  string       `json:"error,omitempty"`
}

// Report summarizes a run. It is created when the run starts and finalized when it ends.
type Report struct {
	ID      string `json:"id"`
	Service string `json:"service"`
	DryRun  bool   `json:"dry_run"`
	State   State  `json:"state"`

	PlaylistsExamined    int `json:"playlists_examined"`
	PlaylistsTransformed int `json:"playlists_transformed"`
	PlaylistsFailed      int `json:"playlists_failed"`
	TracksExamined       int `json:"tracks_examined"`
	TracksClassified     int `json:"tracks_classified"`
	TracksReplaced       int `json:"tracks_replaced"`
	Substitutions        int `json:"substitutions"`
	NoMatch              int `json:"no_match"`
	SearchFailed         int `json:"search_failed"`

	Playlists           []PlaylistOutcome `json:"playlists"`
	Failures            []TrackFailure    `json:"failures,omitempty"`
	ReplacementPlaylist *PlaylistOutcome  `json:"replacement_playlist,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func newReport(id, service string, dryRun bool, now time.Time) *Report {
	return &Report{
		ID:        id,
		Service:   service,
		DryRun:    dryRun,
		State:     StateRunning,
		StartedAt: now,
	}
}

func (r *Report) addPlaylist(o PlaylistOutcome) {
	if o.Err != nil {
		o.Error = o.Err.Error()
		r.PlaylistsFailed++
	}
	r.Playlists = append(r.Playlists, o)
}

func (r *Report) addFailure(res Resolution) {
	f := TrackFailure{Track: res.Source, Reason: res.Reason, Err: res.Err, Kind: res.Reason.String()}
	if res.Err != nil {
		f.Error = res.Err.Error()
	}

	switch res.Reason {
	case ReasonNoMatch:
		r.NoMatch++
	case ReasonSearchFailed:
		r.SearchFailed++
	}
	r.Failures = append(r.Failures, f)
}

func (r *Report) finish(state State, now time.Time) {
	r.State = state
	r.FinishedAt = now
}

// Duration returns the elapsed run time, or zero while the run is in progress.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Found reports whether any track was classified for replacement.
func (r *Report) Found() bool {
	return r.TracksClassified > 0
}

// Summary returns the one-line completion message.
func (r *Report) Summary() string {
	switch r.State {
	case StateUnauthorized:
		return fmt.Sprintf("%s access required", r.Service)
	case StateCancelled:
		return fmt.Sprintf("Cancelled: replaced %d songs on %d playlists before stopping", r.Substitutions, r.PlaylistsTransformed)
	}

	if !r.Found() {
		return "No songs found to replace"
	}
	if r.DryRun {
		return fmt.Sprintf("Would replace %d songs on %d playlists", r.Substitutions, r.PlaylistsTransformed)
	}
	return fmt.Sprintf("Replaced %d songs on %d playlists", r.Substitutions, r.PlaylistsTransformed)
}

// Run converts the report into its persisted form.
func (r *Report) Run() *models.Run {
	run := &models.Run{
		ID:                   r.ID,
		Service:              r.Service,
		State:                string(r.State),
		DryRun:               r.DryRun,
		PlaylistsExamined:    r.PlaylistsExamined,
		PlaylistsTransformed: r.PlaylistsTransformed,
		PlaylistsFailed:      r.PlaylistsFailed,
		TracksExamined:       r.TracksExamined,
		TracksClassified:     r.TracksClassified,
		TracksReplaced:       r.TracksReplaced,
		Substitutions:        r.Substitutions,
		NoMatch:              r.NoMatch,
		SearchFailed:         r.SearchFailed,
		StartedAt:            r.StartedAt,
		FinishedAt:           r.FinishedAt,
	}

	for _, o := range r.Playlists {
		p := models.RunPlaylist{
			SourceID:   o.Source.ID,
			SourceName: o.Source.Name,
			Replaced:   o.Replaced,
			Error:      o.Error,
		}
		if o.Created != nil {
			p.CreatedID = o.Created.ID
			p.CreatedName = o.Created.Name
		}
		run.Playlists = append(run.Playlists, p)
	}
	return run
}
