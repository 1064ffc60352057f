// Package enrich turns raw fetched commits into storage-ready records:
// validation, statistics sampling and stat merging.
package enrich

import (
	"log/slog"
	"time"

	"github-insights/internal/model"
)

// Sentinel values used when a commit arrives without author identity.
const (
	UnknownAuthor = "unknown"
	UnknownEmail  = "unknown@localhost"
)

// ValidateBatch drops commits that cannot be stored (no SHA or no
// message) and substitutes sentinels for missing author fields. It
// returns the surviving commits and the number dropped.
func ValidateBatch(commits []model.Commit, logger *slog.Logger) ([]model.Commit, int) {
	valid := make([]model.Commit, 0, len(commits))
	dropped := 0

	for _, c := range commits {
		if c.SHA == "" || c.Message == "" {
			logger.Warn("Dropping invalid commit", "sha", c.SHA)
			dropped++
			continue
		}
		if c.AuthorName == "" {
			c.AuthorName = UnknownAuthor
		}
		if c.AuthorEmail == "" {
			c.AuthorEmail = UnknownEmail
		}
		if c.CommitDate.IsZero() {
			c.CommitDate = c.AuthorDate
		}
		valid = append(valid, c)
	}
	return valid, dropped
}

// SampleShas picks the commits whose statistics are worth one API call
// each, under a fixed per-repository budget. Roughly 70% of the budget
// goes to commits inside the recent window (all of them, until that share
// runs out); the remaining 30% covers older history, systematically
// sampled every Nth commit with N = ceil(olderCount / olderBudget). The
// split keeps API cost bounded on any repository size while biasing
// fidelity toward recent activity, which dominates the derived analytics.
func SampleShas(commits []model.Commit, budget int, recentWindow time.Duration, now time.Time) []string {
	if budget <= 0 || len(commits) == 0 {
		return nil
	}

	cutoff := now.Add(-recentWindow)
	var recent, older []model.Commit
	for _, c := range commits {
		if c.CommitDate.After(cutoff) {
			recent = append(recent, c)
		} else {
			older = append(older, c)
		}
	}

	recentBudget := budget * 70 / 100
	olderBudget := budget - recentBudget

	shas := make([]string, 0, budget)
	for i := 0; i < len(recent) && i < recentBudget; i++ {
		shas = append(shas, recent[i].SHA)
	}

	if len(older) > 0 && olderBudget > 0 {
		stride := (len(older) + olderBudget - 1) / olderBudget // ceil
		if stride < 1 {
			stride = 1
		}
		for i := 0; i < len(older) && olderBudget > 0; i += stride {
			shas = append(shas, older[i].SHA)
			olderBudget--
		}
	}

	return shas
}

// MergeStats copies sampled statistics onto matching commits. Commits
// outside the sample keep zero stats and StatsSampled=false, so downstream
// consumers can tell "unenriched" from "empty commit" instead of reading
// silently wrong zeros.
func MergeStats(commits []model.Commit, statsBySha map[string]model.CommitStats) []model.Commit {
	out := make([]model.Commit, len(commits))
	for i, c := range commits {
		if stats, ok := statsBySha[c.SHA]; ok {
			c.Additions = stats.Additions
			c.Deletions = stats.Deletions
			c.FilesChanged = stats.FilesChanged
			c.StatsSampled = true
		}
		out[i] = c
	}
	return out
}
