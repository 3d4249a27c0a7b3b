package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/desertthunder/otv/internal/tasks"
	tu "github.com/desertthunder/otv/internal/testing"
)

var (
	loveStory   = models.Track{ID: "ls", Title: "Love Story", Artist: "Taylor Swift", Album: "Fearless"}
	loveStoryTV = models.Track{ID: "ls-tv", Title: "Love Story (Taylor's Version)", Artist: "Taylor Swift", Album: "Fearless (Taylor's Version)"}
	lover       = models.Track{ID: "lv", Title: "Lover", Artist: "Taylor Swift", Album: "Lover"}
	style       = models.Track{ID: "st", Title: "Style", Artist: "Taylor Swift", Album: "1989"}
)

func newTestService() *tu.FakeService {
	return &tu.FakeService{
		Playlists: []models.Playlist{
			{ID: "p1", Name: "Favorites", Tracks: []models.Track{loveStory, lover}},
			{ID: "p2", Name: "Chill", Tracks: []models.Track{lover}},
		},
		Results: map[string][]models.Track{tasks.SearchTerm("Love Story"): {loveStoryTV}},
	}
}

func newTestModel(svc *tu.FakeService, authorize Authorizer) *Model {
	engine := tasks.NewPlaylistEngine(svc, tasks.EngineOpts{Backoff: time.Millisecond})
	m := NewModel(context.Background(), engine, authorize)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// finishJob feeds every message of the current job into the model until the job is done.
func finishJob(t *testing.T, m *Model) {
	t.Helper()

	j := m.job
	if j == nil {
		t.Fatal("no job running")
	}
	for {
		msg := waitForProgress(j)()
		m.Update(msg)
		if msg.(Msg).kind == MsgJobDone {
			return
		}
	}
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func TestModel_ScanToReview(t *testing.T) {
	m := newTestModel(newTestService(), nil)
	m.startScan()
	if m.State() != ScanView {
		t.Fatalf("state = %v, want ScanView", m.State())
	}

	finishJob(t, m)

	if m.State() != ReviewView {
		t.Fatalf("state = %v, want ReviewView (err %v)", m.State(), m.Err())
	}
	if got := len(m.playlists.Items()); got != 1 {
		t.Errorf("playlists = %d, want 1", got)
	}
	if got := len(m.songs.Items()); got != 1 {
		t.Errorf("songs = %d, want 1", got)
	}
	if !strings.Contains(m.View(), "Favorites") {
		t.Errorf("review view should list the affected playlist, got %q", m.View())
	}

	m.Update(keyPress("tab"))
	if !m.showSongs || !strings.Contains(m.View(), "Love Story") {
		t.Errorf("tab should switch to the songs list, got %q", m.View())
	}
}

func TestModel_FullRun(t *testing.T) {
	svc := newTestService()
	m := newTestModel(svc, nil)
	m.startScan()
	finishJob(t, m)

	m.Update(keyPress("enter"))
	if m.State() != ConfirmView {
		t.Fatalf("state = %v, want ConfirmView", m.State())
	}
	if !strings.Contains(m.View(), "Favorites (Taylor's Version)") {
		t.Errorf("confirm view should name the new playlist, got %q", m.View())
	}

	m.Update(keyPress("n"))
	if m.State() != ReviewView {
		t.Fatalf("state = %v, want ReviewView after declining", m.State())
	}

	m.Update(keyPress("enter"))
	m.Update(keyPress("y"))
	if m.State() != ProgressView {
		t.Fatalf("state = %v, want ProgressView", m.State())
	}
	finishJob(t, m)

	if m.State() != ResultView {
		t.Fatalf("state = %v, want ResultView", m.State())
	}
	if m.Err() != nil {
		t.Fatalf("unexpected error %v", m.Err())
	}
	if m.Report() == nil || m.Report().State != tasks.StateDone {
		t.Fatalf("report = %+v, want a done report", m.Report())
	}
	if got := len(svc.Created()); got != 1 {
		t.Errorf("created %d playlists, want 1", got)
	}
	if !strings.Contains(m.View(), "Replaced 1 songs on 1 playlists") {
		t.Errorf("result view should show the summary, got %q", m.View())
	}
}

func TestModel_NothingToReplace(t *testing.T) {
	svc := &tu.FakeService{Playlists: []models.Playlist{{ID: "p1", Name: "Chill", Tracks: []models.Track{lover}}}}
	m := newTestModel(svc, nil)
	m.startScan()
	finishJob(t, m)

	if m.State() != ProgressView {
		t.Fatalf("state = %v, want ProgressView while the run is finalized", m.State())
	}
	finishJob(t, m)

	if m.State() != ResultView {
		t.Fatalf("state = %v, want ResultView", m.State())
	}
	if !strings.Contains(m.View(), "No songs found to replace") {
		t.Errorf("expected no songs message, got %q", m.View())
	}
	if len(svc.Created()) != 0 {
		t.Error("no playlists should be created")
	}
}

func TestModel_FailedLookups(t *testing.T) {
	svc := newTestService()
	svc.Playlists[1].Tracks = append(svc.Playlists[1].Tracks, style)
	m := newTestModel(svc, nil)
	m.startScan()
	finishJob(t, m)
	m.Update(keyPress("enter"))
	m.Update(keyPress("y"))
	finishJob(t, m)

	view := m.View()
	if !strings.Contains(view, "No Taylor's Version found for:") || !strings.Contains(view, "Style") {
		t.Errorf("result view should list songs without a match, got %q", view)
	}
}

func TestModel_AccessRequired(t *testing.T) {
	svc := newTestService()
	svc.AuthorizeErr = fmt.Errorf("%w: no token", shared.ErrUnauthorized)

	authorized := false
	m := newTestModel(svc, func(ctx context.Context) error {
		authorized = true
		return nil
	})
	m.startScan()
	finishJob(t, m)

	if m.State() != AccessRequiredView {
		t.Fatalf("state = %v, want AccessRequiredView", m.State())
	}
	if !errors.Is(m.Err(), shared.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", m.Err())
	}
	if !strings.Contains(m.View(), "Access Required") {
		t.Errorf("expected access required view, got %q", m.View())
	}

	_, cmd := m.Update(keyPress("a"))
	if cmd == nil || !m.authorizing {
		t.Fatal("pressing a should start authorization")
	}

	m.Update(authorizedMsg(errors.New("state mismatch")))
	if m.State() != AccessRequiredView || !strings.Contains(m.View(), "state mismatch") {
		t.Errorf("failed authorization should stay on the access view, got %q", m.View())
	}

	svc.AuthorizeErr = nil
	m.runAuthorize()()
	if !authorized {
		t.Error("authorizer was not called")
	}
	m.Update(authorizedMsg(nil))
	if m.State() != ScanView {
		t.Fatalf("state = %v, want ScanView after authorizing", m.State())
	}
	finishJob(t, m)
	if m.State() != ReviewView {
		t.Errorf("state = %v, want ReviewView", m.State())
	}
}

func TestModel_AccessRequiredWithoutAuthorizer(t *testing.T) {
	svc := newTestService()
	svc.AuthorizeErr = shared.ErrUnauthorized
	m := newTestModel(svc, nil)
	m.startScan()
	finishJob(t, m)

	if !strings.Contains(m.View(), "otv auth spotify") {
		t.Errorf("expected command line hint, got %q", m.View())
	}
	if _, cmd := m.Update(keyPress("a")); cmd != nil {
		t.Error("authorize key should do nothing without an authorizer")
	}
}

func TestModel_ScanError(t *testing.T) {
	svc := newTestService()
	svc.ListErr = shared.ErrAPIRequest
	m := newTestModel(svc, nil)
	m.startScan()
	finishJob(t, m)

	if m.State() != ResultView {
		t.Fatalf("state = %v, want ResultView", m.State())
	}
	if !strings.Contains(m.View(), "Error:") {
		t.Errorf("expected error in view, got %q", m.View())
	}

	svc.ListErr = nil
	m.Update(keyPress("r"))
	if m.State() != ScanView {
		t.Fatalf("state = %v, want ScanView after restart", m.State())
	}
	finishJob(t, m)
	if m.State() != ReviewView {
		t.Errorf("state = %v, want ReviewView", m.State())
	}
}

func TestModel_CancelKey(t *testing.T) {
	m := newTestModel(newTestService(), nil)
	cancelled := false
	m.view = ProgressView
	m.cancel = func() { cancelled = true }

	m.Update(keyPress("esc"))
	if !cancelled {
		t.Error("esc should cancel the running job")
	}
}

func TestModel_StaleJob(t *testing.T) {
	m := newTestModel(newTestService(), nil)
	m.startScan()
	stale := m.job
	finishJob(t, m)

	m.Update(progressUpdateMsg(stale, tasks.ProgressUpdate{Phase: tasks.PhaseResolving, Message: "stale"}))
	m.Update(jobDoneMsg(stale))

	if m.State() != ReviewView {
		t.Errorf("state = %v, stale messages should be ignored", m.State())
	}
	if m.update.Message == "stale" {
		t.Error("stale progress update was applied")
	}
}

func TestScanItems(t *testing.T) {
	scan := &tasks.ScanResult{
		Playlists:  []models.Playlist{{ID: "p1", Name: "Favorites", Tracks: []models.Track{loveStory, lover, style}}},
		Candidates: []tasks.Candidate{{Track: loveStory}, {Track: style}},
	}

	playlists, songs := scanItems(scan, tasks.ReplacementName)
	if len(playlists) != 1 || len(songs) != 2 {
		t.Fatalf("got %d playlists and %d songs", len(playlists), len(songs))
	}

	item := playlists[0].(playlistItem)
	if item.affected != 2 {
		t.Errorf("affected = %d, want 2", item.affected)
	}
	if want := "2 of 3 tracks to replace • Favorites (Taylor's Version)"; item.Description() != want {
		t.Errorf("Description() = %q, want %q", item.Description(), want)
	}

	song := songs[1].(candidateItem)
	if song.Title() != "Style" || song.Description() != "Taylor Swift • 1989" {
		t.Errorf("song item = %q / %q", song.Title(), song.Description())
	}
}
