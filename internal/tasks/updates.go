package tasks

import (
	"fmt"

	"github.com/desertthunder/otv/internal/models"
)

// ProgressUpdate represents a progress event during a run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase          Phase  // Run phase
	Step           int    // Current step number within phase
	Total          int    // Total steps in this phase
	Message        string // Human-readable message for display
	PlaylistsTotal int
	PlaylistsDone  int
	TracksTotal    int
	TracksDone     int
	Data           any // Optional phase-specific data: a [models.Playlist], [Resolution], [PlaylistOutcome] or *[Report]
}

// Fraction returns Step/Total in [0, 1].
func (u ProgressUpdate) Fraction() float64 {
	if u.Total <= 0 {
		return 0
	}
	return min(float64(u.Step)/float64(u.Total), 1)
}

// Run phase enumeration
type Phase int

const (
	PhaseAuthorizing Phase = iota
	PhaseScanning
	PhaseResolving
	PhaseTransforming
	PhaseReporting
	PhaseDone
	PhaseUnauthorized
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseAuthorizing:
		return "authorizing"
	case PhaseScanning:
		return "scanning"
	case PhaseResolving:
		return "resolving"
	case PhaseTransforming:
		return "transforming"
	case PhaseReporting:
		return "reporting"
	case PhaseDone:
		return "done"
	case PhaseUnauthorized:
		return "unauthorized"
	case PhaseCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// Terminal reports whether no further phase follows p.
func (p Phase) Terminal() bool {
	return p >= PhaseDone
}

func authorizingUpdate(service string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseAuthorizing,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Requesting %s library access...", service),
	}
}

func unauthorizedUpdate(service string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseUnauthorized,
		Message: fmt.Sprintf("%s access required: %v", service, err),
	}
}

func scanningUpdate(done, total, tracks int, pl *models.Playlist) ProgressUpdate {
	u := ProgressUpdate{
		Phase:          PhaseScanning,
		Step:           done,
		Total:          total,
		PlaylistsTotal: total,
		PlaylistsDone:  done,
		TracksTotal:    tracks,
		TracksDone:     tracks,
		Message:        "Scanning playlists...",
	}
	if pl != nil {
		u.Message = fmt.Sprintf("[%d/%d] Scanned %s (%d tracks)", done, total, pl.Name, len(pl.Tracks))
		u.Data = *pl
	}
	return u
}

func resolvingUpdate(done, total int, res *Resolution) ProgressUpdate {
	u := ProgressUpdate{
		Phase:       PhaseResolving,
		Step:        done,
		Total:       total,
		TracksTotal: total,
		TracksDone:  done,
		Message:     "Getting Taylor's Versions...",
	}
	if res != nil {
		mark := "✓"
		if !res.Found() {
			mark = "✗"
		}
		u.Message = fmt.Sprintf("[%d/%d] %s %s", done, total, mark, res.Source.Title)
		u.Data = *res
	}
	return u
}

func transformingUpdate(done, total int, outcome *PlaylistOutcome) ProgressUpdate {
	u := ProgressUpdate{
		Phase:          PhaseTransforming,
		Step:           done,
		Total:          total,
		PlaylistsTotal: total,
		PlaylistsDone:  done,
		Message:        "Creating new playlists...",
	}
	if outcome != nil {
		switch {
		case outcome.Err != nil:
			u.Message = fmt.Sprintf("[%d/%d] ✗ %s: %v", done, total, outcome.Source.Name, outcome.Err)
		case outcome.DryRun:
			u.Message = fmt.Sprintf("[%d/%d] Would create %s (%d replaced)", done, total, outcome.Name, outcome.Replaced)
		default:
			u.Message = fmt.Sprintf("[%d/%d] ✓ %s (%d replaced)", done, total, outcome.Name, outcome.Replaced)
		}
		u.Data = *outcome
	}
	return u
}

func reportingUpdate(r *Report) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseReporting,
		Step:    1,
		Total:   1,
		Message: "Summarizing run...",
		Data:    r,
	}
}

func terminalUpdate(phase Phase, r *Report) ProgressUpdate {
	return ProgressUpdate{
		Phase:          phase,
		Step:           1,
		Total:          1,
		PlaylistsTotal: r.PlaylistsExamined,
		PlaylistsDone:  r.PlaylistsTransformed + r.PlaylistsFailed,
		TracksTotal:    r.TracksClassified,
		TracksDone:     r.TracksReplaced,
		Message:        r.Summary(),
		Data:           r,
	}
}
