package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/services"
	"github.com/desertthunder/otv/internal/shared"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers = 4
	maxWorkers     = 8

	DefaultReplacementPlaylistName = "OTV: Replacement Tracks"
)

// Recorder persists finished reports.
type Recorder interface {
	Record(ctx context.Context, report *Report) error
}

// EngineOpts configures a [PlaylistEngine].
type EngineOpts struct {
	Albums []string // Re-released album titles (default: [DefaultAlbums])
	Marker string   // Re-recording marker (default: [DefaultMarker])
	Artist string   // Artist whose tracks are classified (default: [DefaultArtist])
	Suffix string   // Appended to source playlist names (default: [DefaultSuffix])

	Workers    int           // Concurrent searches, clamped to 1..8 (default: 4)
	RateLimit  float64       // Searches per second; <= 0 disables throttling
	MaxRetries int           // Extra attempts per failed search
	Backoff    time.Duration // Base retry delay

	ReplacementPlaylist     bool   // Also create a playlist with every replacement
	ReplacementPlaylistName string // (default: [DefaultReplacementPlaylistName])

	DryRun   bool     // Run every phase but skip playlist creation
	Recorder Recorder // Optional run history
	Logger   *log.Logger
	Now      func() time.Time
}

// OptsFromConfig maps the replace section of the config onto [EngineOpts].
func OptsFromConfig(cfg shared.ReplaceConfig) EngineOpts {
	return EngineOpts{
		Albums:                  cfg.Albums,
		Marker:                  cfg.Marker,
		Artist:                  cfg.Artist,
		Suffix:                  cfg.Suffix,
		Workers:                 cfg.Workers,
		RateLimit:               cfg.RateLimit,
		MaxRetries:              cfg.MaxRetries,
		Backoff:                 cfg.RetryBackoff(),
		ReplacementPlaylist:     cfg.ReplacementPlaylist,
		ReplacementPlaylistName: cfg.ReplacementPlaylistName,
	}
}

// PlaylistEngine runs the replacement pipeline against one service.
//
// An engine keeps no state between runs; each [PlaylistEngine.Run] builds its own report and resolution cache.
type PlaylistEngine struct {
	svc        services.Service
	opts       EngineOpts
	classifier *Classifier
	resolver   *Resolver
	logger     *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine for svc.
func NewPlaylistEngine(svc services.Service, opts EngineOpts) *PlaylistEngine {
	switch {
	case opts.Workers <= 0:
		opts.Workers = defaultWorkers
	case opts.Workers > maxWorkers:
		opts.Workers = maxWorkers
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	if opts.ReplacementPlaylistName == "" {
		opts.ReplacementPlaylistName = DefaultReplacementPlaylistName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	classifier := NewClassifier(opts.Albums, opts.Marker, opts.Artist)
	logger := shared.WithLogger(opts.Logger, "service", svc.Name())

	return &PlaylistEngine{
		svc:        svc,
		opts:       opts,
		classifier: classifier,
		resolver: NewResolver(svc, ResolverOpts{
			RateLimit:  opts.RateLimit,
			MaxRetries: opts.MaxRetries,
			Backoff:    opts.Backoff,
			Term:       classifier.Term,
			Logger:     logger,
		}),
		logger: logger,
	}
}

// DryRun reports whether playlist creation is skipped.
func (e *PlaylistEngine) DryRun() bool {
	return e.opts.DryRun
}

// Service returns the name of the service the engine runs against.
func (e *PlaylistEngine) Service() string {
	return e.svc.Name()
}

// Workers returns the effective search concurrency.
func (e *PlaylistEngine) Workers() int {
	return e.opts.Workers
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// ScanResult is the work set found by [PlaylistEngine.Scan].
type ScanResult struct {
	Playlists  []models.Playlist // Affected playlists with their tracks, each at most once
	Candidates []Candidate       // Unique candidates by track ID, in first-seen order
	Report     *Report
}

// Run performs a full replacement run: [PlaylistEngine.Scan] followed by [PlaylistEngine.Apply].
func (e *PlaylistEngine) Run(ctx context.Context, progress chan<- ProgressUpdate) (*Report, error) {
	scan, err := e.Scan(ctx, progress)
	if err != nil {
		if scan != nil {
			return scan.Report, err
		}
		return nil, err
	}
	return e.Apply(ctx, scan, progress)
}

// Scan authorizes, lists every playlist and classifies their tracks.
//
// An unauthorized service ends the scan with [shared.ErrUnauthorized], an empty report in the Unauthorized state and
// a [PhaseUnauthorized] update. Cancellation returns the partial scan with a Cancelled report and a nil error.
func (e *PlaylistEngine) Scan(ctx context.Context, progress chan<- ProgressUpdate) (*ScanResult, error) {
	report := newReport(shared.GenerateID(), e.svc.Name(), e.opts.DryRun, e.opts.Now())
	scan := &ScanResult{Report: report}

	e.logger.Info("authorizing")
	e.sendProgress(progress, authorizingUpdate(e.svc.Name()))
	if err := e.svc.Authorize(ctx); err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			return scan, e.unauthorized(progress, report, err)
		}
		if ctx.Err() != nil {
			e.cancel(ctx, progress, report)
			return scan, nil
		}
		return scan, fmt.Errorf("authorizing %s: %w", e.svc.Name(), err)
	}

	e.logger.Info("scanning playlists")
	listed, err := e.svc.ListPlaylists(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			return scan, e.unauthorized(progress, report, err)
		}
		if ctx.Err() != nil {
			e.cancel(ctx, progress, report)
			return scan, nil
		}
		return scan, fmt.Errorf("listing playlists: %w", err)
	}

	playlists := make([]models.Playlist, 0, len(listed))
	seenPlaylists := make(map[string]bool, len(listed))
	for _, p := range listed {
		if seenPlaylists[p.ID] {
			continue
		}
		seenPlaylists[p.ID] = true
		playlists = append(playlists, p)
	}

	report.PlaylistsExamined = len(playlists)
	e.sendProgress(progress, scanningUpdate(0, len(playlists), 0, nil))

	seenTracks := make(map[string]bool)
	for i, p := range playlists {
		if ctx.Err() != nil {
			e.cancel(ctx, progress, report)
			return scan, nil
		}

		tracks, err := e.svc.LoadTracks(ctx, p.ID)
		if err != nil {
			switch {
			case errors.Is(err, shared.ErrUnauthorized):
				return scan, e.unauthorized(progress, report, err)
			case ctx.Err() != nil:
				e.cancel(ctx, progress, report)
				return scan, nil
			}
			e.logger.Warn("failed to load playlist", "playlist", p.Name, "err", err)
			report.addPlaylist(PlaylistOutcome{Source: p, Name: e.PlaylistName(p.Name), Err: fmt.Errorf("loading tracks: %w", err)})
			continue
		}
		p.Tracks = tracks
		p.TrackCount = len(tracks)

		affected := false
		for _, t := range tracks {
			report.TracksExamined++
			c, ok := e.classifier.Candidate(t)
			if !ok {
				continue
			}

			report.TracksClassified++
			affected = true
			if !seenTracks[t.ID] {
				seenTracks[t.ID] = true
				scan.Candidates = append(scan.Candidates, c)
			}
		}

		if affected {
			scan.Playlists = append(scan.Playlists, p)
		}
		e.sendProgress(progress, scanningUpdate(i+1, len(playlists), report.TracksExamined, &p))
	}

	e.logger.Info("scan complete",
		"playlists", len(playlists), "affected", len(scan.Playlists),
		"tracks", report.TracksExamined, "candidates", len(scan.Candidates))
	return scan, nil
}

// Apply resolves the candidates of scan, creates the replacement playlists and finalizes the report.
func (e *PlaylistEngine) Apply(ctx context.Context, scan *ScanResult, progress chan<- ProgressUpdate) (*Report, error) {
	report := scan.Report
	if report.State != StateRunning {
		return report, nil
	}

	e.logger.Info("resolving replacements", "candidates", len(scan.Candidates), "workers", e.opts.Workers)
	cache, err := e.resolveAll(ctx, scan.Candidates, report, progress)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			return report, e.unauthorized(progress, report, err)
		}
		return report, err
	}
	if ctx.Err() != nil {
		e.cancel(ctx, progress, report)
		return report, nil
	}

	e.logger.Info("creating playlists", "playlists", len(scan.Playlists), "dry_run", e.opts.DryRun)
	applied, err := e.transformAll(ctx, scan.Playlists, cache, report, progress)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			return report, e.unauthorized(progress, report, err)
		}
		return report, err
	}
	report.TracksReplaced = len(applied)
	if ctx.Err() != nil {
		e.cancel(ctx, progress, report)
		return report, nil
	}

	if e.opts.ReplacementPlaylist {
		if err := e.createReplacementPlaylist(ctx, scan.Candidates, cache, report); err != nil {
			return report, e.unauthorized(progress, report, err)
		}
	}

	e.sendProgress(progress, reportingUpdate(report))
	report.finish(StateDone, e.opts.Now())
	e.record(ctx, report)

	e.logger.Info("run complete",
		"transformed", report.PlaylistsTransformed, "failed", report.PlaylistsFailed,
		"replaced", report.TracksReplaced, "substitutions", report.Substitutions,
		"no_match", report.NoMatch, "search_failed", report.SearchFailed)
	e.sendProgress(progress, terminalUpdate(PhaseDone, report))
	return report, nil
}

// resolveAll resolves every candidate once with bounded parallelism into a cache keyed by track ID.
//
// An unauthorized search cancels the remaining searches and is returned as the error.
func (e *PlaylistEngine) resolveAll(ctx context.Context, candidates []Candidate, report *Report, progress chan<- ProgressUpdate) (map[string]Resolution, error) {
	var (
		mu    sync.Mutex
		done  atomic.Int64
		cache = make(map[string]Resolution, len(candidates))
		total = len(candidates)
	)

	e.sendProgress(progress, resolvingUpdate(0, total, nil))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for _, c := range candidates {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			res := e.resolver.Resolve(gctx, c.Track)
			switch res.Reason {
			case ReasonUnauthorized:
				return res.Err
			case ReasonCancelled:
				return nil
			case ReasonNoMatch, ReasonSearchFailed:
				e.logger.Warn("no replacement", "track", c.Track.Title, "reason", res.Reason, "err", res.Err)
			}

			mu.Lock()
			cache[c.Track.ID] = res
			if !res.Found() {
				report.addFailure(res)
			}
			mu.Unlock()

			n := int(done.Add(1))
			e.sendProgress(progress, resolvingUpdate(n, total, &res))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return cache, err
	}

	sort.SliceStable(report.Failures, func(i, j int) bool {
		return report.Failures[i].Track.ID < report.Failures[j].Track.ID
	})
	return cache, nil
}

// transformAll creates the replacement playlists in playlist ID order and returns the set of track IDs whose
// resolution was applied to at least one created playlist.
func (e *PlaylistEngine) transformAll(ctx context.Context, playlists []models.Playlist, cache map[string]Resolution, report *Report, progress chan<- ProgressUpdate) (map[string]bool, error) {
	ordered := append([]models.Playlist(nil), playlists...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	lookup := func(t models.Track) (models.Track, bool) {
		res, ok := cache[t.ID]
		if !ok || !res.Found() {
			return models.Track{}, false
		}
		return *res.Replacement, true
	}
	classify := func(t models.Track) bool {
		_, ok := e.classifier.Candidate(t)
		return ok
	}

	applied := make(map[string]bool)
	total := len(ordered)
	e.sendProgress(progress, transformingUpdate(0, total, nil))

	for i, p := range ordered {
		if ctx.Err() != nil {
			return applied, nil
		}

		t := Transform(p, classify, lookup)
		source := p
		source.Tracks = nil
		outcome := PlaylistOutcome{
			Source:    source,
			Name:      e.PlaylistName(p.Name),
			Replaced:  t.Replaced(),
			Positions: t.Positions,
			DryRun:    e.opts.DryRun,
		}

		if !e.opts.DryRun {
			// Cancellation is only honoured between playlists; a started create always adds its tracks.
			handle, err := e.svc.CreatePlaylist(context.WithoutCancel(ctx), outcome.Name, e.description(p.Name), t.Tracks)
			if err != nil {
				if errors.Is(err, shared.ErrUnauthorized) {
					return applied, err
				}
				outcome.Err = err
				e.logger.Error("failed to create playlist", "playlist", outcome.Name, "err", err)
			}
			outcome.Created = handle
		}

		if outcome.Err == nil {
			report.PlaylistsTransformed++
			report.Substitutions += outcome.Replaced
			for _, pos := range t.Positions {
				applied[p.Tracks[pos].ID] = true
			}
		}

		report.addPlaylist(outcome)
		e.sendProgress(progress, transformingUpdate(i+1, total, &outcome))
	}
	return applied, nil
}

// createReplacementPlaylist creates the playlist holding every resolved replacement in candidate order.
// Only an unauthorized failure is returned; other failures are recorded on the report.
func (e *PlaylistEngine) createReplacementPlaylist(ctx context.Context, candidates []Candidate, cache map[string]Resolution, report *Report) error {
	var tracks []models.Track
	for _, c := range candidates {
		if res, ok := cache[c.Track.ID]; ok && res.Found() {
			tracks = append(tracks, *res.Replacement)
		}
	}
	if len(tracks) == 0 {
		return nil
	}

	outcome := &PlaylistOutcome{
		Name:     e.opts.ReplacementPlaylistName,
		Replaced: len(tracks),
		DryRun:   e.opts.DryRun,
	}
	report.ReplacementPlaylist = outcome
	if e.opts.DryRun {
		return nil
	}

	handle, err := e.svc.CreatePlaylist(context.WithoutCancel(ctx), outcome.Name, "Every Taylor's Version added to your playlists.", tracks)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthorized) {
			return err
		}
		outcome.Err = err
		outcome.Error = err.Error()
		e.logger.Error("failed to create replacement playlist", "err", err)
		return nil
	}
	outcome.Created = handle
	return nil
}

// PlaylistName returns the name given to the replacement of the playlist called name.
func (e *PlaylistEngine) PlaylistName(name string) string {
	return name + e.opts.Suffix
}

func (e *PlaylistEngine) description(name string) string {
	return fmt.Sprintf("%q with re-recorded tracks swapped in by otv.", name)
}

// unauthorized finalizes report as Unauthorized, emits the re-authorization signal and returns the wrapped error.
func (e *PlaylistEngine) unauthorized(progress chan<- ProgressUpdate, report *Report, err error) error {
	e.logger.Error("library access not authorized", "err", err)
	report.finish(StateUnauthorized, e.opts.Now())
	e.sendProgress(progress, unauthorizedUpdate(e.svc.Name(), err))
	if !errors.Is(err, shared.ErrUnauthorized) {
		err = fmt.Errorf("%w: %w", shared.ErrUnauthorized, err)
	}
	return err
}

// cancel finalizes report as Cancelled with its partial counts.
func (e *PlaylistEngine) cancel(ctx context.Context, progress chan<- ProgressUpdate, report *Report) {
	e.logger.Warn("run cancelled", "err", ctx.Err())
	report.finish(StateCancelled, e.opts.Now())
	e.record(context.WithoutCancel(ctx), report)
	e.sendProgress(progress, terminalUpdate(PhaseCancelled, report))
}

// record hands a finished report to the recorder; failures are logged only.
func (e *PlaylistEngine) record(ctx context.Context, report *Report) {
	if e.opts.Recorder == nil {
		return
	}
	if err := e.opts.Recorder.Record(ctx, report); err != nil {
		e.logger.Warn("failed to record run", "run", report.ID, "err", err)
	}
}
