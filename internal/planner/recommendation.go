package planner

import (
	"fmt"

	"github.com/stepfree/stepfree/internal/scoring"
)

// Decision thresholds for the recommendation table.
const (
	// smallTimeCostSeconds is a switching cost low enough that any
	// accessibility improvement justifies it.
	smallTimeCostSeconds = 120

	// largeTimeCostSeconds is a switching cost high enough that only a
	// substantial improvement justifies it.
	largeTimeCostSeconds = 300

	// marginalImprovementPoints is the overall-score improvement below
	// which a large time cost is not worth paying.
	marginalImprovementPoints = 10

	// strongGradeGap is the letter-grade gap that triggers a strong
	// recommendation regardless of time cost.
	strongGradeGap = 2
)

// buildComparison fills the comparison metrics and walks the
// recommendation decision table. Every branch is deterministic for
// the same pair of scored routes.
func buildComparison(fastest, accessible *ScoredRoute) Comparison {
	cmp := Comparison{
		TimeDeltaSeconds:  accessible.Route.DurationSeconds - fastest.Route.DurationSeconds,
		BlockingOnFastest: len(fastest.Warnings) > 0,
	}
	if gap := scoring.GradeRank(accessible.Score.Grade) - scoring.GradeRank(fastest.Score.Grade); gap > 0 {
		cmp.GradeGap = gap
	}
	cmp.Recommendation = recommend(fastest, accessible, cmp)
	return cmp
}

// recommend is ordered strongest condition first: blocking obstacles,
// then grade gap, then the time-cost trade-off.
func recommend(fastest, accessible *ScoredRoute, cmp Comparison) string {
	if fastest.Route.ID == accessible.Route.ID {
		return fmt.Sprintf(
			"Only one route is available. It is rated %s (%s) for your profile.",
			accessible.Score.Grade, formatScore(accessible.Score.Overall),
		)
	}

	extra := formatDuration(cmp.TimeDeltaSeconds)

	if cmp.BlockingOnFastest {
		return fmt.Sprintf(
			"Warning: the faster route has a blocking obstacle (%s). Take the accessible route instead; it adds %s.",
			fastest.Warnings[0], extra,
		)
	}

	if cmp.GradeGap >= strongGradeGap {
		return fmt.Sprintf(
			"Strongly recommended: the accessible route is rated %s versus %s for the faster one, and adds only %s.",
			accessible.Score.Grade, fastest.Score.Grade, extra,
		)
	}

	improvement := accessible.Score.Overall - fastest.Score.Overall

	if cmp.TimeDeltaSeconds <= smallTimeCostSeconds && improvement > 0 {
		return fmt.Sprintf(
			"The accessible route scores %s versus %s and adds %s. Worth the switch.",
			formatScore(accessible.Score.Overall), formatScore(fastest.Score.Overall), extra,
		)
	}

	if cmp.TimeDeltaSeconds > largeTimeCostSeconds && improvement < marginalImprovementPoints {
		return fmt.Sprintf(
			"The faster route is nearly as accessible (%s vs %s) and saves %s. Stay on the faster route.",
			fastest.Score.Grade, accessible.Score.Grade, extra,
		)
	}

	return fmt.Sprintf(
		"Both routes are comparable: the accessible route is rated %s and adds %s over the %s-rated faster route.",
		accessible.Score.Grade, extra, fastest.Score.Grade,
	)
}

func formatScore(overall float64) string {
	return fmt.Sprintf("%d/100", int(overall+0.5))
}

// formatDuration renders a time delta for the traveller.
func formatDuration(seconds int) string {
	if seconds < 0 {
		seconds = -seconds
	}
	switch {
	case seconds < 60:
		return "under a minute"
	case seconds < 120:
		return "about a minute"
	default:
		return fmt.Sprintf("about %d minutes", (seconds+30)/60)
	}
}
