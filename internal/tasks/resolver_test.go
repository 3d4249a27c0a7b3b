package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/otv/internal/models"
	"github.com/desertthunder/otv/internal/shared"
	tu "github.com/desertthunder/otv/internal/testing"
)

func TestResolver_Resolve(t *testing.T) {
	style := models.Track{ID: "a", Title: "Style", Artist: "Taylor Swift", Album: "1989"}
	styleTV := models.Track{ID: "a-tv", Title: "Style (Taylor's Version)", Artist: "Taylor Swift", Album: "1989 (Taylor's Version)"}
	term := SearchTerm(style.Title)

	tests := []struct {
		name       string
		svc        *tu.FakeService
		maxRetries int
		wantReason Reason
		wantErr    error
		wantCalls  int
	}{
		{
			name:       "first result selected",
			svc:        &tu.FakeService{Results: map[string][]models.Track{term: {styleTV, style}}},
			wantReason: ReasonResolved,
			wantCalls:  1,
		},
		{
			name:       "no results",
			svc:        &tu.FakeService{},
			wantReason: ReasonNoMatch,
			wantErr:    shared.ErrNoMatch,
			wantCalls:  1,
		},
		{
			name: "transient failure retried",
			svc: &tu.FakeService{
				Results:       map[string][]models.Track{term: {styleTV}},
				FlakySearches: map[string]int{term: 2},
			},
			maxRetries: 2,
			wantReason: ReasonResolved,
			wantCalls:  3,
		},
		{
			name:       "retries exhausted",
			svc:        &tu.FakeService{FlakySearches: map[string]int{term: 5}},
			maxRetries: 1,
			wantReason: ReasonSearchFailed,
			wantErr:    shared.ErrSearchFailed,
			wantCalls:  2,
		},
		{
			name:       "unauthorized is not retried",
			svc:        &tu.FakeService{SearchErrs: map[string]error{term: shared.ErrUnauthorized}},
			maxRetries: 3,
			wantReason: ReasonUnauthorized,
			wantErr:    shared.ErrUnauthorized,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.svc, ResolverOpts{MaxRetries: tt.maxRetries, Backoff: time.Millisecond})
			res := r.Resolve(context.Background(), style)

			if res.Reason != tt.wantReason {
				t.Errorf("Reason = %v, want %v", res.Reason, tt.wantReason)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if tt.wantErr == nil && res.Err != nil {
				t.Errorf("unexpected error: %v", res.Err)
			}
			if got := tt.svc.SearchCalls(term); got != tt.wantCalls {
				t.Errorf("search calls = %d, want %d", got, tt.wantCalls)
			}
			if res.Source.ID != style.ID {
				t.Errorf("Source.ID = %q, want %q", res.Source.ID, style.ID)
			}
			if tt.wantReason == ReasonResolved && (res.Replacement == nil || res.Replacement.ID != styleTV.ID) {
				t.Errorf("Replacement = %v, want %v", res.Replacement, styleTV)
			}
		})
	}
}

func TestResolver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := &tu.FakeService{}
	r := NewResolver(svc, ResolverOpts{RateLimit: 1})
	res := r.Resolve(ctx, models.Track{ID: "a", Title: "Style"})

	if res.Reason != ReasonCancelled {
		t.Errorf("Reason = %v, want %v", res.Reason, ReasonCancelled)
	}
	if !errors.Is(res.Err, shared.ErrCancelled) {
		t.Errorf("Err = %v, want ErrCancelled", res.Err)
	}
	if res.Found() {
		t.Error("cancelled resolution should not be found")
	}
}

func TestResolver_CustomTerm(t *testing.T) {
	svc := &tu.FakeService{Results: map[string][]models.Track{"custom": {{ID: "z"}}}}
	r := NewResolver(svc, ResolverOpts{Term: func(models.Track) string { return "custom" }})

	if res := r.Resolve(context.Background(), models.Track{ID: "a"}); !res.Found() {
		t.Errorf("expected custom term to resolve, got %v", res.Reason)
	}
}

func TestSleepWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepWithContext() = %v, want context.Canceled", err)
	}
	if err := sleepWithContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepWithContext() = %v, want nil", err)
	}
}
