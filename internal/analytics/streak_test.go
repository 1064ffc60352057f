package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github-insights/internal/model"
)

func commitOn(t time.Time) model.Commit {
	return model.Commit{SHA: "sha-" + t.Format("20060102-150405"), Message: "m", CommitDate: t}
}

func TestStreaks(t *testing.T) {
	now := time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time {
		return now.AddDate(0, 0, offset)
	}

	t.Run("empty commit set has no streaks", func(t *testing.T) {
		assert.Equal(t, StreakResult{}, Streaks(nil, now))
	})

	t.Run("three consecutive days ending today", func(t *testing.T) {
		commits := []model.Commit{commitOn(day(-2)), commitOn(day(-1)), commitOn(day(0))}

		result := Streaks(commits, now)

		assert.Equal(t, 3, result.Current)
		assert.Equal(t, 3, result.Longest)
		assert.Equal(t, 3, result.ActiveDays)
	})

	t.Run("old streak does not count as current", func(t *testing.T) {
		commits := []model.Commit{commitOn(day(-5)), commitOn(day(-4))}

		result := Streaks(commits, now)

		assert.Equal(t, 0, result.Current, "gap from today exceeds one day")
		assert.Equal(t, 2, result.Longest)
	})

	t.Run("yesterday still counts as active", func(t *testing.T) {
		commits := []model.Commit{commitOn(day(-2)), commitOn(day(-1))}

		result := Streaks(commits, now)

		assert.Equal(t, 2, result.Current, "grace day keeps the streak alive")
	})

	t.Run("multiple commits per day deduplicate", func(t *testing.T) {
		commits := []model.Commit{
			commitOn(day(0).Add(-2 * time.Hour)),
			commitOn(day(0)),
			commitOn(day(0).Add(3 * time.Hour)),
		}

		result := Streaks(commits, now)

		assert.Equal(t, 1, result.Current)
		assert.Equal(t, 1, result.ActiveDays)
	})

	t.Run("longest run survives a later gap", func(t *testing.T) {
		commits := []model.Commit{
			commitOn(day(-20)), commitOn(day(-19)), commitOn(day(-18)),
			commitOn(day(-17)), commitOn(day(-16)),
			commitOn(day(-3)), commitOn(day(-2)),
		}

		result := Streaks(commits, now)

		assert.Equal(t, 5, result.Longest)
		assert.Equal(t, 0, result.Current)
	})
}
