package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/services"
	"github.com/desertthunder/otv/internal/shared"
	"golang.org/x/time/rate"
)

// Reason explains the outcome of a [Resolution].
type Reason int

const (
	ReasonResolved Reason = iota
	ReasonNoMatch
	ReasonSearchFailed
	ReasonUnauthorized
	ReasonCancelled
)

func (r Reason) String() string {
	switch r {
	case ReasonResolved:
		return "resolved"
	case ReasonNoMatch:
		return "no_match"
	case ReasonSearchFailed:
		return "search_failed"
	case ReasonUnauthorized:
		return "unauthorized"
	case ReasonCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// Resolution is the catalog lookup result for one source track.
// A nil Replacement means no replacement was found; Reason and Err say why.
type Resolution struct {
	Source      models.Track
	Replacement *models.Track
	Reason      Reason
	Err         error
}

// Found reports whether a replacement was resolved.
func (r Resolution) Found() bool {
	return r.Replacement != nil
}

// ResolverOpts configures a [Resolver].
type ResolverOpts struct {
	RateLimit  float64                   // Searches per second; <= 0 disables throttling
	MaxRetries int                       // Extra attempts after a failed search
	Backoff    time.Duration             // Delay before the first retry, doubled on each further retry
	Term       func(models.Track) string // Search term builder (default: [SearchTerm] of the title)
	Logger     *log.Logger
}

// Resolver looks up the re-recorded counterpart of a track in a catalog.
type Resolver struct {
	catalog    services.Catalog
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	term       func(models.Track) string
	logger     *log.Logger
}

// NewResolver creates a Resolver searching catalog.
func NewResolver(catalog services.Catalog, opts ResolverOpts) *Resolver {
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	term := opts.Term
	if term == nil {
		term = func(t models.Track) string { return SearchTerm(t.Title) }
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &Resolver{
		catalog:    catalog,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: max(opts.MaxRetries, 0),
		backoff:    opts.Backoff,
		term:       term,
		logger:     logger,
	}
}

// Resolve searches the catalog for the replacement of track and selects the first result.
//
// Failed searches are retried up to MaxRetries times with exponential backoff. An unauthorized search is never
// retried. Cancelling ctx ends the lookup with [ReasonCancelled].
func (r *Resolver) Resolve(ctx context.Context, track models.Track) Resolution {
	res := Resolution{Source: track}
	term := r.term(track)

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.backoff * time.Duration(1<<(attempt-1))
			r.logger.Debug("retrying search", "term", term, "attempt", attempt, "delay", delay, "err", lastErr)
			if err := sleepWithContext(ctx, delay); err != nil {
				return cancelled(res, err)
			}
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return cancelled(res, err)
		}

		results, err := r.catalog.Search(ctx, term, services.KindSong, 1)
		switch {
		case err == nil && len(results) == 0:
			res.Reason = ReasonNoMatch
			res.Err = fmt.Errorf("%w: %q", shared.ErrNoMatch, term)
			return res
		case err == nil:
			replacement := results[0]
			res.Replacement = &replacement
			res.Reason = ReasonResolved
			return res
		case errors.Is(err, shared.ErrUnauthorized):
			res.Reason = ReasonUnauthorized
			res.Err = err
			return res
		case ctx.Err() != nil:
			return cancelled(res, ctx.Err())
		}
		lastErr = err
	}

	res.Reason = ReasonSearchFailed
	res.Err = fmt.Errorf("%w: %q after %d attempts: %w", shared.ErrSearchFailed, term, r.maxRetries+1, lastErr)
	return res
}

func cancelled(res Resolution, err error) Resolution {
	res.Reason = ReasonCancelled
	res.Err = fmt.Errorf("%w: %w", shared.ErrCancelled, err)
	return res
}

// sleepWithContext waits for d or until ctx is done, whichever comes first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
