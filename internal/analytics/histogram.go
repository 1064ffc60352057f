package analytics

import (
	"sort"

	"github-insights/internal/model"
)

// Histograms fills the hour-of-day and day-of-week commit histograms.
// Hours are UTC; the dashboard localizes for display.
func Histograms(commits []model.Commit) (byHour [24]int, byDay [7]int) {
	for _, c := range commits {
		t := c.CommitDate.UTC()
		byHour[t.Hour()]++
		byDay[int(t.Weekday())]++
	}
	return byHour, byDay
}

// Languages turns per-repository byte counts and per-commit language
// attribution (via each repository's primary language) into a sorted
// breakdown.
func Languages(repos []model.Repository, commits []model.Commit, bytesByLang map[string]int64) []model.LanguageStat {
	primaryByRepo := make(map[int64]string, len(repos))
	for _, r := range repos {
		if r.Language != nil && *r.Language != "" {
			primaryByRepo[r.GithubRepoID] = *r.Language
		}
	}

	commitsByLang := make(map[string]int)
	for _, c := range commits {
		if lang, ok := primaryByRepo[c.RepositoryID]; ok {
			commitsByLang[lang]++
		}
	}

	var totalBytes int64
	for _, b := range bytesByLang {
		totalBytes += b
	}

	names := make(map[string]struct{})
	for lang := range bytesByLang {
		names[lang] = struct{}{}
	}
	for lang := range commitsByLang {
		names[lang] = struct{}{}
	}

	stats := make([]model.LanguageStat, 0, len(names))
	for lang := range names {
		stat := model.LanguageStat{
			Language: lang,
			Bytes:    bytesByLang[lang],
			Commits:  commitsByLang[lang],
		}
		if totalBytes > 0 {
			stat.Percent = float64(stat.Bytes) / float64(totalBytes) * 100
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Bytes != stats[j].Bytes {
			return stats[i].Bytes > stats[j].Bytes
		}
		return stats[i].Language < stats[j].Language
	})
	return stats
}

// RepoBreakdown aggregates per-repository commit activity, sorted by
// commit count descending.
func RepoBreakdown(repos []model.Repository, commits []model.Commit) []model.RepoActivity {
	nameByRepo := make(map[int64]string, len(repos))
	for _, r := range repos {
		nameByRepo[r.GithubRepoID] = r.FullName()
	}

	byRepo := make(map[int64]*model.RepoActivity)
	for _, c := range commits {
		entry, ok := byRepo[c.RepositoryID]
		if !ok {
			entry = &model.RepoActivity{Repo: nameByRepo[c.RepositoryID]}
			byRepo[c.RepositoryID] = entry
		}
		entry.Commits++
		entry.Additions += c.Additions
		entry.Deletions += c.Deletions
		if c.CommitDate.After(entry.LastCommit) {
			entry.LastCommit = c.CommitDate
		}
	}

	out := make([]model.RepoActivity, 0, len(byRepo))
	for _, entry := range byRepo {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Commits != out[j].Commits {
			return out[i].Commits > out[j].Commits
		}
		return out[i].Repo < out[j].Repo
	})
	return out
}
