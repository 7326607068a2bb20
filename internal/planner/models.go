// Package planner scores candidate routes against the obstacle pool
// and selects the fastest and most accessible options for a traveller.
package planner

import (
	"errors"

	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/routing"
	"github.com/stepfree/stepfree/internal/scoring"
)

// ErrNoRouteAvailable is returned when no candidate route survives
// scoring and all fallbacks. This is the one fatal path: callers must
// tell the traveller no usable route exists.
var ErrNoRouteAvailable = errors.New("no route available")

// ScoredRoute pairs a candidate route with its accessibility
// assessment and the obstacles associated to it.
type ScoredRoute struct {
	Route      routing.Route
	Score      scoring.Score
	Confidence scoring.Confidence

	// Recommendation categorizes the overall score for the traveller.
	Recommendation scoring.Recommendation

	// Obstacles are the pool entries within the association buffer of
	// this route's geometry, after any synthetic-variant suppression.
	Obstacles []*obstacle.Obstacle

	// Warnings describe profile-blocking obstacles on this route.
	Warnings []string
}

// Comparison summarizes the trade-off between the two selected routes.
type Comparison struct {
	// TimeDeltaSeconds is accessible duration minus fastest duration.
	// Zero or negative means the accessible route costs no extra time.
	TimeDeltaSeconds int

	// GradeGap is how many letter grades the accessible route improves
	// on the fastest (0 when equal or worse).
	GradeGap int

	// BlockingOnFastest is true when the fastest route carries an
	// obstacle this profile cannot pass.
	BlockingOnFastest bool

	// Recommendation is the traveller-facing advice string.
	Recommendation string
}

// Selection is the route selector's caller-facing contract.
type Selection struct {
	Fastest    *ScoredRoute
	Accessible *ScoredRoute
	Comparison Comparison
}
