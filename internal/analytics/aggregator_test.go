package analytics

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github-insights/internal/model"
	"github-insights/internal/store"
	"github-insights/internal/store/storetest"
)

func testAggregator(db store.Querier) *Aggregator {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	a := NewAggregator(db, logger)
	a.now = func() time.Time { return time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestAggregator_GetAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("returns cached snapshot untouched even when stale", func(t *testing.T) {
		mockQ := new(storetest.MockQuerier)
		cached := model.AnalyticsSnapshot{UserID: 7, TotalCommits: 42}
		mockQ.On("GetSnapshot", ctx, int64(7)).Return(cached, nil).Once()

		snap, err := testAggregator(mockQ).GetAnalytics(ctx, 7)

		assert.NoError(t, err)
		assert.Equal(t, cached, snap)
		// New commits may well exist in storage; the cache is still served.
		mockQ.AssertNotCalled(t, "ListCommitsByUser", mock.Anything, mock.Anything)
		mockQ.AssertExpectations(t)
	})

	t.Run("computes synchronously when no snapshot exists", func(t *testing.T) {
		mockQ := new(storetest.MockQuerier)
		mockQ.On("GetSnapshot", ctx, int64(7)).Return(model.AnalyticsSnapshot{}, store.ErrNotFound).Once()
		mockQ.On("ListCommitsByUser", ctx, int64(7)).Return([]model.Commit{
			{SHA: "a", Message: "feat: one", RepositoryID: 1, CommitDate: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)},
		}, nil).Once()
		mockQ.On("ListRepositoriesByUser", ctx, int64(7)).Return([]model.Repository{
			{GithubRepoID: 1, Owner: "o", Name: "r"},
		}, nil).Once()
		mockQ.On("LanguageBytesByUser", ctx, int64(7)).Return(map[string]int64{"Go": 1000}, nil).Once()
		mockQ.On("SaveSnapshot", ctx, mock.Anything).Return(nil).Once()

		snap, err := testAggregator(mockQ).GetAnalytics(ctx, 7)

		assert.NoError(t, err)
		assert.Equal(t, 1, snap.TotalCommits)
		assert.Equal(t, 1, snap.TotalRepos)
		mockQ.AssertExpectations(t)
	})

	t.Run("propagates storage failures", func(t *testing.T) {
		mockQ := new(storetest.MockQuerier)
		dbErr := errors.New("connection reset")
		mockQ.On("GetSnapshot", ctx, int64(7)).Return(model.AnalyticsSnapshot{}, dbErr).Once()

		_, err := testAggregator(mockQ).GetAnalytics(ctx, 7)

		assert.ErrorIs(t, err, dbErr)
	})
}

func TestAggregator_RefreshAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("always recomputes and overwrites the cache", func(t *testing.T) {
		mockQ := new(storetest.MockQuerier)
		mockQ.On("ListCommitsByUser", ctx, int64(7)).Return([]model.Commit{}, nil).Once()
		mockQ.On("ListRepositoriesByUser", ctx, int64(7)).Return([]model.Repository{}, nil).Once()
		mockQ.On("LanguageBytesByUser", ctx, int64(7)).Return(map[string]int64{}, nil).Once()
		mockQ.On("SaveSnapshot", ctx, mock.MatchedBy(func(s model.AnalyticsSnapshot) bool {
			return s.UserID == 7
		})).Return(nil).Once()

		_, err := testAggregator(mockQ).RefreshAnalytics(ctx, 7)

		assert.NoError(t, err)
		mockQ.AssertNotCalled(t, "GetSnapshot", mock.Anything, mock.Anything)
		mockQ.AssertExpectations(t)
	})
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	lang := "Go"
	repos := []model.Repository{{GithubRepoID: 1, Owner: "o", Name: "r", Language: &lang}}
	commits := []model.Commit{
		{SHA: "a", Message: "feat: add worker pool", RepositoryID: 1, Additions: 65, Deletions: 35, FilesChanged: 4, StatsSampled: true, CommitDate: now.AddDate(0, 0, -1)},
		{SHA: "b", Message: "fix: stop double close", RepositoryID: 1, CommitDate: now},
	}

	snap := Compute(7, commits, repos, map[string]int64{"Go": 5000}, now)

	assert.Equal(t, int64(7), snap.UserID)
	assert.Equal(t, 2, snap.TotalCommits)
	assert.Equal(t, 65, snap.TotalAdditions)
	assert.Equal(t, 1, snap.UnenrichedCount, "commit without sampled stats is flagged, not zero-scored")
	assert.Equal(t, 2, snap.CurrentStreak)
	assert.Equal(t, "Go", snap.Languages[0].Language)
	assert.Equal(t, "o/r", snap.RepoActivity[0].Repo)
	assert.NotEmpty(t, snap.Comparison)
	assert.Equal(t, snap.RangeEnd, now)
}
