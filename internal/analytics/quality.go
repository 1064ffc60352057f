package analytics

import (
	"regexp"
	"strings"

	"github-insights/internal/model"
)

// Conventional-commit prefix, e.g. "feat(api): add pagination".
var conventionalRe = regexp.MustCompile(`^(feat|fix|docs|style|refactor|perf|test|build|ci|chore|revert)(\([^)]*\))?!?:\s`)

// Messages considered placeholders rather than descriptions.
// Whitespace or end-of-subject after the token keeps conventional
// prefixes like "test(pkg):" from matching.
var wipRe = regexp.MustCompile(`(?i)^(wip|tmp|temp|fixup|squash|asdf+|test)(\s|$)`)

const (
	shortMessageLen   = 10
	descriptiveMinLen = 20
)

// Quality grades commit-message hygiene with deterministic rules: no
// learned model, just ratios over the commit set.
func Quality(commits []model.Commit) model.QualityStats {
	if len(commits) == 0 {
		return model.QualityStats{Grade: "N/A"}
	}

	var (
		totalLen     int
		conventional int
		short        int
		descriptive  int
		wip          int
	)

	for _, c := range commits {
		subject := strings.TrimSpace(c.Message)
		if i := strings.IndexByte(subject, '\n'); i >= 0 {
			subject = subject[:i]
		}
		totalLen += len(subject)

		if conventionalRe.MatchString(subject) {
			conventional++
		}
		if len(subject) < shortMessageLen {
			short++
		}
		if len(subject) >= descriptiveMinLen && strings.Contains(subject, " ") {
			descriptive++
		}
		if wipRe.MatchString(subject) {
			wip++
		}
	}

	n := float64(len(commits))
	stats := model.QualityStats{
		AvgMessageLength:  float64(totalLen) / n,
		ConventionalRatio: float64(conventional) / n,
		ShortMessageRatio: float64(short) / n,
		DescriptiveRatio:  float64(descriptive) / n,
		WIPRatio:          float64(wip) / n,
	}

	stats.Score = clamp(
		stats.ConventionalRatio*30+
			stats.DescriptiveRatio*30+
			(1-stats.ShortMessageRatio)*25+
			(1-stats.WIPRatio)*15,
		0, 100)
	stats.Grade = grade(stats.Score)
	return stats
}

func grade(score float64) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 55:
		return "C"
	case score >= 40:
		return "D"
	default:
		return "F"
	}
}
