// Package analytics computes the per-user AnalyticsSnapshot from stored
// commits and repositories. The calculators are pure functions; this
// aggregator is the only component that touches the cache.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github-insights/internal/model"
	"github-insights/internal/store"
)

// Aggregator serves cached snapshots and recomputes them on demand.
type Aggregator struct {
	db     store.Querier
	logger *slog.Logger
	now    func() time.Time
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(db store.Querier, logger *slog.Logger) *Aggregator {
	return &Aggregator{db: db, logger: logger, now: time.Now}
}

// GetAnalytics returns the cached snapshot regardless of staleness. Only
// when no snapshot exists does it compute one synchronously. Staleness is
// by design: recomputation is the expensive path and is triggered
// explicitly via RefreshAnalytics or at the end of a sync.
func (a *Aggregator) GetAnalytics(ctx context.Context, userID int64) (model.AnalyticsSnapshot, error) {
	snap, err := a.db.GetSnapshot(ctx, userID)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.AnalyticsSnapshot{}, fmt.Errorf("loading snapshot: %w", err)
	}
	return a.RefreshAnalytics(ctx, userID)
}

// RefreshAnalytics recomputes the snapshot from current storage and
// overwrites the cache.
func (a *Aggregator) RefreshAnalytics(ctx context.Context, userID int64) (model.AnalyticsSnapshot, error) {
	commits, err := a.db.ListCommitsByUser(ctx, userID)
	if err != nil {
		return model.AnalyticsSnapshot{}, fmt.Errorf("loading commits: %w", err)
	}
	repos, err := a.db.ListRepositoriesByUser(ctx, userID)
	if err != nil {
		return model.AnalyticsSnapshot{}, fmt.Errorf("loading repositories: %w", err)
	}
	langBytes, err := a.db.LanguageBytesByUser(ctx, userID)
	if err != nil {
		return model.AnalyticsSnapshot{}, fmt.Errorf("loading languages: %w", err)
	}

	snap := Compute(userID, commits, repos, langBytes, a.now())

	if err := a.db.SaveSnapshot(ctx, snap); err != nil {
		return model.AnalyticsSnapshot{}, fmt.Errorf("saving snapshot: %w", err)
	}
	a.logger.Info("Analytics snapshot recomputed",
		"user_id", userID, "commits", snap.TotalCommits, "repos", snap.TotalRepos)
	return snap, nil
}

// HasAnalyticsData is a fast existence check on the cache.
func (a *Aggregator) HasAnalyticsData(ctx context.Context, userID int64) (bool, error) {
	return a.db.HasSnapshot(ctx, userID)
}

// Compute derives a snapshot from the given data. Pure: no I/O, no clock
// reads beyond the supplied now.
func Compute(userID int64, commits []model.Commit, repos []model.Repository, langBytes map[string]int64, now time.Time) model.AnalyticsSnapshot {
	snap := model.AnalyticsSnapshot{
		UserID:       userID,
		TotalCommits: len(commits),
		TotalRepos:   len(repos),
		CalculatedAt: now,
	}

	for _, c := range commits {
		snap.TotalAdditions += c.Additions
		snap.TotalDeletions += c.Deletions
		if !c.StatsSampled {
			snap.UnenrichedCount++
		}
	}

	streaks := Streaks(commits, now)
	snap.CurrentStreak = streaks.Current
	snap.LongestStreak = streaks.Longest
	snap.ActiveDays = streaks.ActiveDays

	snap.CommitsByHour, snap.CommitsByDay = Histograms(commits)
	snap.Languages = Languages(repos, commits, langBytes)
	snap.RepoActivity = RepoBreakdown(repos, commits)
	snap.Impact = Impact(commits)
	snap.Quality = Quality(commits)
	snap.Persona = DerivePersona(snap.Impact, snap.CommitsByHour)
	snap.RangeStart, snap.RangeEnd = rangeOf(commits)
	snap.Comparison = Compare(snap)

	return snap
}
