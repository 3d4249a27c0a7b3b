package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/desertthunder/otv/internal/tasks"
)

const maxListedFailures = 8

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ScanView ViewState = iota
	ReviewView
	ConfirmView
	ProgressView
	ResultView
	AccessRequiredView
)

// Authorizer runs an interactive authorization flow for the engine's service.
type Authorizer func(ctx context.Context) error

// job is one background engine call and its progress channel.
//
// scan, report and err are written before updates is closed and read only after.
type job struct {
	apply   bool
	updates chan tasks.ProgressUpdate
	scan    *tasks.ScanResult
	report  *tasks.Report
	err     error
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	view      ViewState
	engine    *tasks.PlaylistEngine
	authorize Authorizer

	width  int
	height int

	playlists   list.Model
	songs       list.Model
	showSongs   bool
	scan        *tasks.ScanResult
	job         *job
	update      tasks.ProgressUpdate
	report      *tasks.Report
	err         error
	authorizing bool

	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap
}

// NewModel creates a new TUI model driving engine. authorize may be nil, in which case the access-required view
// only explains how to authorize from the command line.
func NewModel(ctx context.Context, engine *tasks.PlaylistEngine, authorize Authorizer) *Model {
	return &Model{
		ctx:       ctx,
		view:      ScanView,
		engine:    engine,
		authorize: authorize,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.title.UnsetMarginBottom())),
		bar:       progress.New(progress.WithDefaultGradient()),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Report returns the report of the last completed run, if any.
func (m *Model) Report() *tasks.Report {
	return m.report
}

// Err returns the error that ended the last scan or run, if any.
func (m *Model) Err() error {
	return m.err
}

// State returns the current view state.
func (m *Model) State() ViewState {
	return m.view
}

// Init starts scanning the library.
func (m *Model) Init() tea.Cmd {
	return m.startScan()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-8, 20)
		if m.hasLists() {
			m.playlists.SetSize(msg.Width-4, msg.Height-6)
			m.songs.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != ScanView && m.view != ProgressView && !m.authorizing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case ScanView, ProgressView:
			return m.handleRunningKeys(msg)
		case ReviewView:
			return m.handleReviewKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case AccessRequiredView:
			return m.handleAccessKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		data := msg.data.(struct {
			job    *job
			update tasks.ProgressUpdate
		})
		if data.job != m.job {
			return m, nil
		}
		m.update = data.update
		return m, waitForProgress(data.job)

	case MsgJobDone:
		j := msg.data.(*job)
		if j != m.job {
			return m, nil
		}
		m.job = nil
		if j.apply {
			return m.finishApply(j)
		}
		return m.finishScan(j)

	case MsgAuthorized:
		m.authorizing = false
		if err, _ := msg.data.(error); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		return m, m.startScan()
	}
	return m, nil
}

func (m *Model) finishScan(j *job) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(j.err, shared.ErrUnauthorized):
		m.err = j.err
		m.view = AccessRequiredView
		return m, nil
	case j.err != nil:
		m.err = j.err
		m.view = ResultView
		return m, nil
	case j.scan.Report.State == tasks.StateCancelled:
		return m, tea.Quit
	}

	m.scan = j.scan
	m.err = nil
	if len(j.scan.Candidates) == 0 {
		return m, m.startApply()
	}

	playlists, songs := scanItems(j.scan, m.engine.PlaylistName)
	m.playlists = list.New(playlists, list.NewDefaultDelegate(), m.width-4, m.height-6)
	m.playlists.Title = fmt.Sprintf("%d playlists with songs to replace", len(playlists))
	m.songs = list.New(songs, list.NewDefaultDelegate(), m.width-4, m.height-6)
	m.songs.Title = fmt.Sprintf("%d songs to replace", len(songs))
	m.showSongs = false
	m.view = ReviewView
	return m, nil
}

func (m *Model) finishApply(j *job) (tea.Model, tea.Cmd) {
	m.report = j.report
	m.err = j.err
	if errors.Is(j.err, shared.ErrUnauthorized) {
		m.view = AccessRequiredView
		return m, nil
	}
	m.view = ResultView
	return m, nil
}

func (m *Model) handleRunningKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) && m.cancel != nil {
		m.cancel()
	}
	return m, nil
}

func (m *Model) handleReviewKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	active := &m.playlists
	if m.showSongs {
		active = &m.songs
	}
	if active.FilterState() == list.Filtering {
		var cmd tea.Cmd
		*active, cmd = active.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.showSongs = !m.showSongs
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	*active, cmd = active.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		return m, m.startApply()
	case key.Matches(msg, m.keys.no):
		m.view = ReviewView
		return m, nil
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.report = nil
		m.err = nil
		return m, m.startScan()
	}
	return m, nil
}

func (m *Model) handleAccessKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.authorize) && m.authorize != nil && !m.authorizing:
		m.authorizing = true
		return m, tea.Batch(m.spinner.Tick, m.runAuthorize())
	}
	return m, nil
}

// hasLists reports whether the review lists were built for the current scan.
func (m *Model) hasLists() bool {
	return m.scan != nil && len(m.scan.Candidates) > 0
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != ReviewView {
		return m, nil
	}

	var cmd tea.Cmd
	if m.showSongs {
		m.songs, cmd = m.songs.Update(msg)
	} else {
		m.playlists, cmd = m.playlists.Update(msg)
	}
	return m, cmd
}

// startScan runs [tasks.PlaylistEngine.Scan] in the background.
func (m *Model) startScan() tea.Cmd {
	j := m.newJob(false)
	ctx := m.jobContext()
	m.view = ScanView
	m.scan = nil

	go func() {
		defer close(j.updates)
		j.scan, j.err = m.engine.Scan(ctx, j.updates)
	}()
	return tea.Batch(m.spinner.Tick, waitForProgress(j))
}

// startApply runs [tasks.PlaylistEngine.Apply] on the reviewed scan in the background.
func (m *Model) startApply() tea.Cmd {
	j := m.newJob(true)
	ctx := m.jobContext()
	scan := m.scan
	m.view = ProgressView

	go func() {
		defer close(j.updates)
		j.report, j.err = m.engine.Apply(ctx, scan, j.updates)
	}()
	return tea.Batch(m.spinner.Tick, waitForProgress(j))
}

func (m *Model) newJob(apply bool) *job {
	j := &job{apply: apply, updates: make(chan tasks.ProgressUpdate, 64)}
	m.job = j
	m.update = tasks.ProgressUpdate{}
	return j
}

func (m *Model) jobContext() context.Context {
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	return ctx
}

func (m *Model) runAuthorize() tea.Cmd {
	ctx := m.ctx
	authorize := m.authorize
	return func() tea.Msg {
		return authorizedMsg(authorize(ctx))
	}
}

// waitForProgress delivers the next update of j, or [MsgJobDone] once its channel is closed.
func waitForProgress(j *job) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-j.updates
		if !ok {
			return jobDoneMsg(j)
		}
		return progressUpdateMsg(j, update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ScanView:
		return m.renderScan()
	case ReviewView:
		return m.renderReview()
	case ConfirmView:
		return m.renderConfirm()
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	case AccessRequiredView:
		return m.renderAccessRequired()
	default:
		return ""
	}
}

func (m *Model) renderScan() string {
	title := styles.title.Render("Only Taylor's Version")

	msg := m.update.Message
	if msg == "" {
		msg = "Starting..."
	}

	var counts string
	if m.update.Phase == tasks.PhaseScanning && m.update.PlaylistsTotal > 0 {
		counts = fmt.Sprintf("\n%s", m.bar.ViewAs(m.update.Fraction()))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.cancel})
	return fmt.Sprintf("%s\n%s %s%s\n\n%s", title, m.spinner.View(), msg, counts, helpView)
}

func (m *Model) renderReview() string {
	var body string
	if m.showSongs {
		body = m.songs.View()
	} else {
		body = m.playlists.View()
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.tab, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", body, helpView)
}

func (m *Model) renderConfirm() string {
	verb := "Create"
	if m.engine.DryRun() {
		verb = "Preview"
	}
	title := styles.title.Render(fmt.Sprintf("%s %d new playlists?", verb, len(m.scan.Playlists)))

	var b strings.Builder
	for _, p := range m.scan.Playlists {
		fmt.Fprintf(&b, "  • %s\n", m.engine.PlaylistName(p.Name))
	}
	fmt.Fprintf(&b, "\nTaylor's Versions will be looked up for %d songs on %s.\n", len(m.scan.Candidates), m.engine.Service())
	b.WriteString(styles.help.Render("Your original playlists are not changed."))
	if m.engine.DryRun() {
		b.WriteString("\n" + styles.warn.Render("Dry run: nothing will be created."))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, b.String(), helpView)
}

func (m *Model) renderProgress() string {
	var phase string
	switch m.update.Phase {
	case tasks.PhaseResolving:
		phase = "Getting Taylor's Versions"
	case tasks.PhaseTransforming:
		phase = "Creating new playlists"
	case tasks.PhaseReporting, tasks.PhaseDone:
		phase = "Finishing up"
	case tasks.PhaseCancelled:
		phase = "Cancelling"
	default:
		phase = "Working"
	}
	title := styles.title.Render(phase)

	counts := fmt.Sprintf("Songs %d/%d", m.update.TracksDone, m.update.TracksTotal)
	if m.update.Phase == tasks.PhaseTransforming {
		counts = fmt.Sprintf("Playlists %d/%d", m.update.PlaylistsDone, m.update.PlaylistsTotal)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.cancel})
	return fmt.Sprintf("%s\n%s\n\n%s %s\n%s\n\n%s",
		title, m.bar.ViewAs(m.update.Fraction()), m.spinner.View(), m.update.Message, styles.help.Render(counts), helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Error: %v", m.err)), helpView)
	}

	if m.report == nil {
		return fmt.Sprintf("%s\n\n%s", styles.box.Render(styles.ok.Render("No songs found to replace")), helpView)
	}

	r := m.report
	var b strings.Builder
	b.WriteString(styles.ok.Render(r.Summary()))
	fmt.Fprintf(&b, "\n\nPlaylists: %d created, %d failed", r.PlaylistsTransformed, r.PlaylistsFailed)
	fmt.Fprintf(&b, "\nSongs: %d replaced, %d not found, %d failed", r.TracksReplaced, r.NoMatch, r.SearchFailed)

	for _, o := range r.Playlists {
		if o.Err != nil {
			fmt.Fprintf(&b, "\n%s", styles.err.Render(fmt.Sprintf("✗ %s: %v", o.Source.Name, o.Err)))
		}
	}

	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, "\n\n%s", styles.warn.Render("No Taylor's Version found for:"))
		for i, f := range r.Failures {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "\n  … and %d more", len(r.Failures)-i)
				break
			}
			fmt.Fprintf(&b, "\n  • %s", f.Track.Title)
		}
	}

	return fmt.Sprintf("%s\n\n%s", styles.box.Render(b.String()), helpView)
}

func (m *Model) renderAccessRequired() string {
	service := m.engine.Service()
	title := styles.title.Render("Access Required")
	body := fmt.Sprintf("otv needs access to your %s library to find and replace songs.", service)

	if m.authorizing {
		return fmt.Sprintf("%s\n%s\n\n%s Waiting for authorization in your browser...", title, body, m.spinner.View())
	}

	var detail string
	if m.err != nil && !errors.Is(m.err, shared.ErrUnauthorized) {
		detail = "\n\n" + styles.err.Render(m.err.Error())
	}

	if m.authorize == nil {
		return fmt.Sprintf("%s\n%s\n\nRun `otv auth spotify` and start again.%s\n\n%s",
			title, body, detail, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.authorize, m.keys.quit})
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, body, detail, helpView)
}

// Run starts the TUI program with model and blocks until it exits.
func Run(ctx context.Context, model *Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	if model.cancel != nil {
		model.cancel()
	}
	return nil
}
