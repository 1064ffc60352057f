package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github-insights/internal/model"
)

func msg(m string) model.Commit {
	return model.Commit{SHA: "x", Message: m}
}

func TestQuality(t *testing.T) {
	t.Run("empty set is ungraded", func(t *testing.T) {
		stats := Quality(nil)
		assert.Equal(t, "N/A", stats.Grade)
		assert.Zero(t, stats.Score)
	})

	t.Run("conventional descriptive messages grade high", func(t *testing.T) {
		commits := []model.Commit{
			msg("feat(api): add paginated commit listing"),
			msg("fix(store): handle duplicate sha on batch insert"),
			msg("refactor(sync): extract incremental boundary lookup"),
			msg("test(analytics): cover streak grace day rule"),
		}

		stats := Quality(commits)

		assert.Equal(t, 1.0, stats.ConventionalRatio)
		assert.Equal(t, 1.0, stats.DescriptiveRatio)
		assert.Zero(t, stats.ShortMessageRatio)
		assert.Zero(t, stats.WIPRatio)
		assert.Equal(t, "A", stats.Grade)
	})

	t.Run("placeholder messages grade low", func(t *testing.T) {
		commits := []model.Commit{
			msg("wip"),
			msg("tmp"),
			msg("asdf"),
			msg("fixup stuff"),
		}

		stats := Quality(commits)

		assert.Zero(t, stats.ConventionalRatio)
		assert.Equal(t, 1.0, stats.WIPRatio)
		assert.Equal(t, "F", stats.Grade)
	})

	t.Run("only the subject line is graded", func(t *testing.T) {
		commits := []model.Commit{
			msg("short\n\nA very long body that should not influence the subject length metric at all."),
		}

		stats := Quality(commits)

		assert.Equal(t, 5.0, stats.AvgMessageLength)
		assert.Equal(t, 1.0, stats.ShortMessageRatio)
	})
}
