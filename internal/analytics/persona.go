package analytics

import (
	"fmt"

	"github-insights/internal/model"
)

// Developer archetypes, picked from the dominant work category.
const (
	ArchetypeBuilder     = "builder"
	ArchetypeRefiner     = "refiner"
	ArchetypeFirefighter = "firefighter"
	ArchetypeCaretaker   = "caretaker"
	ArchetypeGeneralist  = "generalist"
)

// Commit schedules, picked from the dominant hour-of-day band (UTC).
const (
	ScheduleEarlyBird = "early bird"
	ScheduleDaytime   = "daytime"
	ScheduleEvening   = "evening"
	ScheduleNightOwl  = "night owl"
)

// DerivePersona maps the category histogram and hour histogram onto a
// fixed archetype/schedule table. Deterministic by construction so the
// same commit set always yields the same persona.
func DerivePersona(impact model.ImpactStats, byHour [24]int) model.Persona {
	archetype := dominantArchetype(impact.Categories)
	schedule := dominantSchedule(byHour)
	return model.Persona{
		Archetype:   archetype,
		Schedule:    schedule,
		Description: fmt.Sprintf("%s who commits mostly in the %s", archetype, schedule),
	}
}

func dominantArchetype(categories map[string]int) string {
	total := 0
	for _, n := range categories {
		total += n
	}
	if total == 0 {
		return ArchetypeGeneralist
	}

	best, bestCount := "", 0
	for cat, n := range categories {
		if n > bestCount || (n == bestCount && cat < best) {
			best, bestCount = cat, n
		}
	}
	// A category must carry at least 40% of the classified commits to
	// define the archetype on its own.
	if bestCount*5 < total*2 {
		return ArchetypeGeneralist
	}

	switch best {
	case model.CategoryFeature:
		return ArchetypeBuilder
	case model.CategoryRefactor, model.CategoryCleanup:
		return ArchetypeRefiner
	case model.CategoryFix:
		return ArchetypeFirefighter
	case model.CategoryMaintenance:
		return ArchetypeCaretaker
	default:
		return ArchetypeGeneralist
	}
}

func dominantSchedule(byHour [24]int) string {
	bands := map[string][2]int{
		ScheduleEarlyBird: {5, 9},
		ScheduleDaytime:   {9, 17},
		ScheduleEvening:   {17, 22},
	}

	counts := map[string]int{}
	for name, band := range bands {
		for h := band[0]; h < band[1]; h++ {
			counts[name] += byHour[h]
		}
	}
	// Night wraps around midnight.
	for h := 22; h < 24; h++ {
		counts[ScheduleNightOwl] += byHour[h]
	}
	for h := 0; h < 5; h++ {
		counts[ScheduleNightOwl] += byHour[h]
	}

	best, bestCount := ScheduleDaytime, -1
	for _, name := range []string{ScheduleDaytime, ScheduleEvening, ScheduleEarlyBird, ScheduleNightOwl} {
		if counts[name] > bestCount {
			best, bestCount = name, counts[name]
		}
	}
	return best
}
