package analytics

import (
	"sort"
	"time"

	"github-insights/internal/model"
)

// StreakResult is the output of the streak calculator.
type StreakResult struct {
	Current    int
	Longest    int
	ActiveDays int
}

// Streaks derives commit-day streaks from the commit set. Timestamps are
// normalized to UTC calendar days and deduplicated before scanning.
//
// The current streak counts backward from today only while the most
// recent active day is today or yesterday: yesterday still counts as
// active so a streak does not read as broken before the user has had a
// chance to commit today.
func Streaks(commits []model.Commit, now time.Time) StreakResult {
	if len(commits) == 0 {
		return StreakResult{}
	}

	seen := make(map[time.Time]struct{})
	for _, c := range commits {
		day := c.CommitDate.UTC().Truncate(24 * time.Hour)
		seen[day] = struct{}{}
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	current := 0
	today := now.UTC().Truncate(24 * time.Hour)
	last := days[len(days)-1]
	if gap := today.Sub(last); gap <= 24*time.Hour {
		current = 1
		for i := len(days) - 2; i >= 0; i-- {
			if days[i+1].Sub(days[i]) != 24*time.Hour {
				break
			}
			current++
		}
	}

	return StreakResult{
		Current:    current,
		Longest:    longest,
		ActiveDays: len(days),
	}
}
