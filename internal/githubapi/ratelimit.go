package githubapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/go-github/v62/github"

	"github-insights/internal/model"
)

// rateTracker is the single shared arbiter of the request budget. Every
// worker goroutine funnels its responses through the same tracker, so the
// remaining count reflects all in-flight fetches, not just one worker's.
type rateTracker struct {
	mu    sync.Mutex
	state model.RateLimit
}

// observe records the budget reported on a response. GitHub's counters are
// eventually consistent across concurrent requests, so we keep the lowest
// remaining seen for the current window rather than blindly overwriting.
func (t *rateTracker) observe(resp *github.Response) {
	if resp == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	reset := resp.Rate.Reset.Time
	if reset.After(t.state.ResetAt) {
		// New window, take the fresh numbers.
		t.state = model.RateLimit{
			Limit:     resp.Rate.Limit,
			Remaining: resp.Rate.Remaining,
			ResetAt:   reset,
		}
		return
	}
	if resp.Rate.Remaining < t.state.Remaining || t.state.Limit == 0 {
		t.state = model.RateLimit{
			Limit:     resp.Rate.Limit,
			Remaining: resp.Rate.Remaining,
			ResetAt:   reset,
		}
	}
}

// snapshot returns the last observed budget.
func (t *rateTracker) snapshot() model.RateLimit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// set replaces the tracked state. Used after an explicit rate-limit query.
func (t *rateTracker) set(rl model.RateLimit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = rl
}

// sleepUntil blocks until the given time or context cancellation.
func sleepUntil(ctx context.Context, until time.Time) error {
	d := time.Until(until)
	if d <= 0 {
		return nil
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
