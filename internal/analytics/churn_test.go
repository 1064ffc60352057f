package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github-insights/internal/model"
)

func statCommit(additions, deletions, files int) model.Commit {
	return model.Commit{
		Additions:    additions,
		Deletions:    deletions,
		FilesChanged: files,
		StatsSampled: true,
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name   string
		commit model.Commit
		want   string
	}{
		{"tiny commit is maintenance regardless of ratio", statCommit(8, 2, 1), model.CategoryMaintenance},
		{"small few-file commit is a fix", statCommit(30, 10, 2), model.CategoryFix},
		{"small many-file commit is not a fix", statCommit(40, 5, 10), model.CategoryFeature},
		{"mostly additions is a feature", statCommit(90, 10, 5), model.CategoryFeature},
		{"mostly deletions is cleanup", statCommit(5, 95, 1), model.CategoryCleanup},
		{"balanced commit is a refactor", statCommit(60, 40, 8), model.CategoryRefactor},
		{"empty commit is maintenance", statCommit(0, 0, 0), model.CategoryMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.commit))
		})
	}
}

func TestChurnRate(t *testing.T) {
	day := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	at := func(c model.Commit, repo int64, ts time.Time) model.Commit {
		c.RepositoryID = repo
		c.CommitDate = ts
		return c
	}

	t.Run("no commits means no churn", func(t *testing.T) {
		assert.Zero(t, ChurnRate(nil))
	})

	t.Run("deletion-heavy same-day follow-up counts as churn", func(t *testing.T) {
		commits := []model.Commit{
			at(statCommit(100, 10, 4), 1, day),
			at(statCommit(5, 80, 2), 1, day.Add(2*time.Hour)),
		}

		assert.InDelta(t, 0.5, ChurnRate(commits), 1e-9)
	})

	t.Run("first commit of the day never counts", func(t *testing.T) {
		commits := []model.Commit{
			at(statCommit(5, 80, 2), 1, day),
		}

		assert.Zero(t, ChurnRate(commits))
	})

	t.Run("different repositories do not churn against each other", func(t *testing.T) {
		commits := []model.Commit{
			at(statCommit(100, 10, 4), 1, day),
			at(statCommit(5, 80, 2), 2, day.Add(time.Hour)),
		}

		assert.Zero(t, ChurnRate(commits))
	})

	t.Run("unenriched commits are excluded", func(t *testing.T) {
		unenriched := model.Commit{RepositoryID: 1, CommitDate: day.Add(time.Hour)}
		commits := []model.Commit{
			at(statCommit(100, 10, 4), 1, day),
			unenriched,
		}

		assert.Zero(t, ChurnRate(commits))
	})
}

func TestImpact(t *testing.T) {
	day := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)

	t.Run("empty set yields zero score and full category map", func(t *testing.T) {
		stats := Impact(nil)

		assert.Zero(t, stats.ImpactScore)
		assert.Len(t, stats.Categories, 5)
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		var commits []model.Commit
		for i := 0; i < 20; i++ {
			c := statCommit(90, 10, 5)
			c.RepositoryID = 1
			c.CommitDate = day.AddDate(0, 0, i)
			commits = append(commits, c)
		}

		stats := Impact(commits)

		assert.Greater(t, stats.ImpactScore, 0.0)
		assert.LessOrEqual(t, stats.ImpactScore, 100.0)
		assert.Equal(t, 20, stats.Categories[model.CategoryFeature])
	})

	t.Run("identical size commits are maximally consistent", func(t *testing.T) {
		commits := []model.Commit{
			{RepositoryID: 1, CommitDate: day, Additions: 65, Deletions: 35, FilesChanged: 5, StatsSampled: true},
			{RepositoryID: 1, CommitDate: day.AddDate(0, 0, 1), Additions: 65, Deletions: 35, FilesChanged: 5, StatsSampled: true},
		}

		stats := Impact(commits)

		// additions ratio exactly optimal, no churn, perfect consistency:
		// only the feature share (zero here) is missing from the maximum.
		assert.InDelta(t, 60.0, stats.ImpactScore, 1e-9)
	})
}
