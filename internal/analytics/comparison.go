package analytics

import (
	"math"
	"time"

	"github-insights/internal/model"
)

// Static population baselines the dashboard compares against. Values are
// medians, so landing on the baseline reads as the 50th percentile.
var baselines = []struct {
	metric   string
	baseline float64
}{
	{"commits_per_week", 10},
	{"longest_streak_days", 7},
	{"impact_score", 60},
	{"quality_score", 65},
}

// Compare places the user's headline metrics against the fixed baselines.
// The percentile is a smooth value/(value+baseline) mapping: 50 at the
// baseline, approaching 100 as the metric dwarfs it.
func Compare(snapshot model.AnalyticsSnapshot) []model.ComparisonResult {
	weeks := snapshot.RangeEnd.Sub(snapshot.RangeStart).Hours() / (24 * 7)
	if weeks < 1 {
		weeks = 1
	}

	values := map[string]float64{
		"commits_per_week":    float64(snapshot.TotalCommits) / weeks,
		"longest_streak_days": float64(snapshot.LongestStreak),
		"impact_score":        snapshot.Impact.ImpactScore,
		"quality_score":       snapshot.Quality.Score,
	}

	results := make([]model.ComparisonResult, 0, len(baselines))
	for _, b := range baselines {
		v := values[b.metric]
		percentile := 0
		if v+b.baseline > 0 {
			percentile = int(math.Round(v / (v + b.baseline) * 100))
		}
		results = append(results, model.ComparisonResult{
			Metric:     b.metric,
			Value:      round2(v),
			Baseline:   b.baseline,
			Percentile: percentile,
		})
	}
	return results
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// rangeOf returns the first and last commit timestamps of the set.
func rangeOf(commits []model.Commit) (start, end time.Time) {
	for _, c := range commits {
		if start.IsZero() || c.CommitDate.Before(start) {
			start = c.CommitDate
		}
		if c.CommitDate.After(end) {
			end = c.CommitDate
		}
	}
	return start, end
}
