package analytics

import (
	"math"
	"sort"
	"time"

	"github-insights/internal/model"
)

// Categorization thresholds. These are fixed: analytics reproducibility
// for existing fixtures depends on them not drifting.
const (
	maintenanceMaxTotal = 10
	fixMaxTotal         = 50
	fixMaxFiles         = 3
	featureMinAddRatio  = 0.8
	cleanupMaxAddRatio  = 0.3

	// A same-day follow-up commit whose deletions exceed this share of
	// its total counts as a churn event.
	churnDeletionRatio = 0.6

	// The additions ratio considered healthiest for the impact score.
	optimalAddRatio = 0.65
)

// Categorize assigns a commit to one of the five work categories from its
// size and additions-to-total ratio. Size rules take precedence over
// ratio rules, so a 10-line commit is maintenance no matter its shape.
func Categorize(c model.Commit) string {
	total := c.TotalChanges()
	switch {
	case total <= maintenanceMaxTotal:
		return model.CategoryMaintenance
	case total <= fixMaxTotal && c.FilesChanged <= fixMaxFiles:
		return model.CategoryFix
	}

	addRatio := float64(c.Additions) / float64(total)
	switch {
	case addRatio > featureMinAddRatio:
		return model.CategoryFeature
	case addRatio < cleanupMaxAddRatio:
		return model.CategoryCleanup
	default:
		return model.CategoryRefactor
	}
}

// ChurnRate estimates how much of the work is rework. It is a statistical
// proxy, not true file-history diffing: a commit counts as churn when it
// follows an earlier commit in the same repository on the same calendar
// day and mostly deletes. The rate is churn events over enriched commits.
func ChurnRate(commits []model.Commit) float64 {
	enriched := withStats(commits)
	if len(enriched) == 0 {
		return 0
	}

	type dayKey struct {
		repo int64
		day  time.Time
	}

	sorted := make([]model.Commit, len(enriched))
	copy(sorted, enriched)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CommitDate.Before(sorted[j].CommitDate)
	})

	firstOfDay := make(map[dayKey]bool)
	churned := 0
	for _, c := range sorted {
		key := dayKey{repo: c.RepositoryID, day: c.CommitDate.UTC().Truncate(24 * time.Hour)}
		if !firstOfDay[key] {
			firstOfDay[key] = true
			continue
		}
		total := c.TotalChanges()
		if total > 0 && float64(c.Deletions)/float64(total) > churnDeletionRatio {
			churned++
		}
	}

	return float64(churned) / float64(len(enriched))
}

// Impact computes the category histogram, churn rate and the weighted
// impact score: feature share 40%, proximity of the overall additions
// ratio to the optimum 20%, commit-size consistency 20%, inverse churn
// 20%. Clamped to [0,100].
func Impact(commits []model.Commit) model.ImpactStats {
	categories := map[string]int{
		model.CategoryFeature:     0,
		model.CategoryRefactor:    0,
		model.CategoryFix:         0,
		model.CategoryCleanup:     0,
		model.CategoryMaintenance: 0,
	}

	enriched := withStats(commits)
	for _, c := range enriched {
		categories[Categorize(c)]++
	}

	churn := ChurnRate(commits)
	stats := model.ImpactStats{
		Categories: categories,
		ChurnRate:  churn,
	}
	if len(enriched) == 0 {
		return stats
	}

	featureRatio := float64(categories[model.CategoryFeature]) / float64(len(enriched))

	var totalAdd, totalDel float64
	sizes := make([]float64, 0, len(enriched))
	for _, c := range enriched {
		totalAdd += float64(c.Additions)
		totalDel += float64(c.Deletions)
		sizes = append(sizes, float64(c.TotalChanges()))
	}

	proximity := 0.0
	if totalAdd+totalDel > 0 {
		addRatio := totalAdd / (totalAdd + totalDel)
		proximity = 1 - math.Min(1, math.Abs(addRatio-optimalAddRatio)/optimalAddRatio)
	}

	consistency := 1 / (1 + coefficientOfVariation(sizes))

	score := featureRatio*40 + proximity*20 + consistency*20 + (1-churn)*20
	stats.ImpactScore = clamp(score, 0, 100)
	return stats
}

// withStats filters to commits whose statistics were actually fetched.
// Unenriched zeros would otherwise drag every ratio toward maintenance.
func withStats(commits []model.Commit) []model.Commit {
	out := make([]model.Commit, 0, len(commits))
	for _, c := range commits {
		if c.StatsSampled {
			out = append(out, c)
		}
	}
	return out
}

func coefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq/float64(len(values))) / mean
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
