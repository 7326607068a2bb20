package planner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/profile"
	"github.com/stepfree/stepfree/internal/routing"
	"github.com/stepfree/stepfree/internal/scoring"
)

// Synthetic variant multipliers. Fixed so selection stays deterministic.
const (
	accessibleVariantDurationFactor = 1.15
	accessibleVariantDistanceFactor = 1.10
	mainRoadsVariantDurationFactor  = 1.25
	mainRoadsVariantDistanceFactor  = 1.20

	// materialDifferenceRatio is the minimum relative duration or
	// distance difference for two candidates to count as materially
	// different routes.
	materialDifferenceRatio = 0.05

	// defaultAccessibleBonus is the tie-break bonus for routes flagged
	// as accessibility-optimized. Applied during selection only, never
	// added to the reported score.
	defaultAccessibleBonus = 5.0
)

// SelectorConfig holds configuration for the route selector.
type SelectorConfig struct {
	// Engine scores candidate routes. Required.
	Engine *scoring.Engine

	// Logger for selector operations.
	Logger zerolog.Logger

	// BufferMeters is the obstacle association buffer
	// (default: obstacle.DefaultBufferMeters).
	BufferMeters float64

	// AccessibleBonus is the selection-time bonus for
	// accessibility-optimized routes (default: 5).
	AccessibleBonus float64
}

// Selector picks the fastest and most accessible routes from a set of
// candidates.
type Selector struct {
	engine          *scoring.Engine
	logger          zerolog.Logger
	bufferMeters    float64
	accessibleBonus float64
}

// NewSelector creates a route selector.
func NewSelector(cfg SelectorConfig) *Selector {
	buffer := cfg.BufferMeters
	if buffer == 0 {
		buffer = obstacle.DefaultBufferMeters
	}

	bonus := cfg.AccessibleBonus
	if bonus == 0 {
		bonus = defaultAccessibleBonus
	}

	return &Selector{
		engine:          cfg.Engine,
		logger:          cfg.Logger,
		bufferMeters:    buffer,
		accessibleBonus: bonus,
	}
}

// suppression controls which associated obstacles a synthetic variant
// is assumed to steer around.
type suppression int

const (
	suppressNone suppression = iota
	// suppressPassable drops profile-relevant obstacles below blocking
	// severity. Blocking obstacles stay: the variant shares the base
	// geometry and cannot route around a true blocker.
	suppressPassable
	// suppressSevere drops profile-relevant high-severity obstacles,
	// keeping blocking and everything below high.
	suppressSevere
)

type candidate struct {
	route    routing.Route
	suppress suppression
}

// SelectRoutes scores every candidate against the obstacle pool and
// returns the fastest and most accessible picks with a recommendation.
//
// When the provider supplies fewer than two materially different
// routes, deterministic synthetic variants are added so the traveller
// always sees a real choice. Zero candidates is the one fatal path.
func (s *Selector) SelectRoutes(ctx context.Context, candidates []routing.Route, pool []*obstacle.Obstacle, prof profile.Profile) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, ErrNoRouteAvailable
	}

	pending := make([]candidate, 0, len(candidates)+2)
	for _, r := range candidates {
		pending = append(pending, candidate{route: r})
	}

	if materialCount(candidates) < 2 {
		pending = append(pending, s.synthesize(candidates[0])...)
		s.logger.Debug().
			Int("provider_routes", len(candidates)).
			Int("total_candidates", len(pending)).
			Msg("added synthetic route variants")
	}

	// Scoring is pure computation over already-fetched data; the
	// context only gates whether the result is still wanted.
	scored := s.scoreAll(pending, pool, prof)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fastest := scored[s.pickFastest(scored)]
	accessibleIdx := s.pickAccessible(scored)

	// Diversity invariant: never hand back the same route in both
	// slots when another option exists.
	if scored[accessibleIdx].Route.ID == fastest.Route.ID && len(scored) > 1 {
		accessibleIdx = s.pickAlternative(scored, accessibleIdx)
	}
	accessible := scored[accessibleIdx]

	return &Selection{
		Fastest:    fastest,
		Accessible: accessible,
		Comparison: buildComparison(fastest, accessible),
	}, nil
}

// scoreAll associates and scores candidates in parallel. Scoring is
// side-effect-free per route, so no locking is needed beyond the wait.
func (s *Selector) scoreAll(pending []candidate, pool []*obstacle.Obstacle, prof profile.Profile) []*ScoredRoute {
	scored := make([]*ScoredRoute, len(pending))

	var wg sync.WaitGroup
	for i, c := range pending {
		wg.Add(1)
		go func(i int, c candidate) {
			defer wg.Done()
			scored[i] = s.scoreOne(c, pool, prof)
		}(i, c)
	}
	wg.Wait()

	return scored
}

func (s *Selector) scoreOne(c candidate, pool []*obstacle.Obstacle, prof profile.Profile) *ScoredRoute {
	associated := obstacle.NearRoute(c.route.Geometry, pool, s.bufferMeters)
	associated = applySuppression(associated, c.suppress, prof)

	score, confidence := s.engine.Score(scoring.Input{
		Obstacles:            associated,
		Profile:              prof,
		StrategicAlternative: c.route.AccessibilityOptimized,
	})

	return &ScoredRoute{
		Route:          c.route,
		Score:          score,
		Confidence:     confidence,
		Recommendation: scoring.RecommendationFor(score.Overall),
		Obstacles:      associated,
		Warnings:       blockerWarnings(associated, prof),
	}
}

func applySuppression(obstacles []*obstacle.Obstacle, mode suppression, prof profile.Profile) []*obstacle.Obstacle {
	if mode == suppressNone {
		return obstacles
	}

	kept := make([]*obstacle.Obstacle, 0, len(obstacles))
	for _, o := range obstacles {
		if !prof.RelevantObstacle(o.Type) {
			kept = append(kept, o)
			continue
		}
		switch mode {
		case suppressPassable:
			if o.Severity == obstacle.SeverityBlocking {
				kept = append(kept, o)
			}
		case suppressSevere:
			if o.Severity != obstacle.SeverityHigh {
				kept = append(kept, o)
			}
		}
	}
	return kept
}

// synthesize builds deterministic variants of the base route: an
// accessibility-optimized detour and a calmer main-roads path. Both
// are marked synthetic so presentation layers never pass them off as
// provider-verified.
func (s *Selector) synthesize(base routing.Route) []candidate {
	accessible := base
	accessible.ID = base.ID + "-acc"
	accessible.Summary = "Accessibility-optimized variant"
	accessible.DurationSeconds = int(float64(base.DurationSeconds) * accessibleVariantDurationFactor)
	accessible.DistanceMeters = int(float64(base.DistanceMeters) * accessibleVariantDistanceFactor)
	accessible.Synthetic = true
	accessible.AccessibilityOptimized = true
	accessible.Instructions = nil

	mainRoads := base
	mainRoads.ID = base.ID + "-main"
	mainRoads.Summary = "Main roads variant"
	mainRoads.DurationSeconds = int(float64(base.DurationSeconds) * mainRoadsVariantDurationFactor)
	mainRoads.DistanceMeters = int(float64(base.DistanceMeters) * mainRoadsVariantDistanceFactor)
	mainRoads.Synthetic = true
	mainRoads.Instructions = nil

	return []candidate{
		{route: accessible, suppress: suppressPassable},
		{route: mainRoads, suppress: suppressSevere},
	}
}

// pickFastest returns the index of the minimum-duration route. Ties go
// to the better overall score, then the earlier candidate.
func (s *Selector) pickFastest(scored []*ScoredRoute) int {
	best := 0
	for i := 1; i < len(scored); i++ {
		a, b := scored[i], scored[best]
		switch {
		case a.Route.DurationSeconds < b.Route.DurationSeconds:
			best = i
		case a.Route.DurationSeconds == b.Route.DurationSeconds && a.Score.Overall > b.Score.Overall:
			best = i
		}
	}
	return best
}

// pickAccessible returns the index of the best-scoring route, with the
// accessibility-optimized bonus applied as a tie-breaker.
func (s *Selector) pickAccessible(scored []*ScoredRoute) int {
	best := 0
	for i := 1; i < len(scored); i++ {
		a, b := s.effective(scored[i]), s.effective(scored[best])
		switch {
		case a > b:
			best = i
		case a == b && scored[i].Route.DurationSeconds < scored[best].Route.DurationSeconds:
			best = i
		}
	}
	return best
}

// pickAlternative returns the next-best different route, preferring
// strategic alternatives over plain candidates.
func (s *Selector) pickAlternative(scored []*ScoredRoute, exclude int) int {
	best := -1
	for i := range scored {
		if i == exclude || scored[i].Route.ID == scored[exclude].Route.ID {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		a, b := scored[i], scored[best]
		if a.Route.AccessibilityOptimized != b.Route.AccessibilityOptimized {
			if a.Route.AccessibilityOptimized {
				best = i
			}
			continue
		}
		if s.effective(a) > s.effective(b) {
			best = i
		}
	}
	if best == -1 {
		return exclude
	}
	return best
}

func (s *Selector) effective(r *ScoredRoute) float64 {
	if r.Route.AccessibilityOptimized {
		return r.Score.Overall + s.accessibleBonus
	}
	return r.Score.Overall
}

// materialCount counts candidates that differ meaningfully in duration
// or distance. Providers sometimes return near-identical alternatives.
func materialCount(routes []routing.Route) int {
	var distinct []routing.Route
	for _, r := range routes {
		different := true
		for _, d := range distinct {
			if !materiallyDifferent(r, d) {
				different = false
				break
			}
		}
		if different {
			distinct = append(distinct, r)
		}
	}
	return len(distinct)
}

func materiallyDifferent(a, b routing.Route) bool {
	return relativeDiff(a.DurationSeconds, b.DurationSeconds) > materialDifferenceRatio ||
		relativeDiff(a.DistanceMeters, b.DistanceMeters) > materialDifferenceRatio
}

func relativeDiff(a, b int) float64 {
	if a == b {
		return 0
	}
	max := a
	if b > max {
		max = b
	}
	if max == 0 {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(max)
}

func blockerWarnings(obstacles []*obstacle.Obstacle, prof profile.Profile) []string {
	var warnings []string
	for _, o := range obstacles {
		if prof.HardBlocker(o) {
			warnings = append(warnings, fmt.Sprintf("%s (%s severity) on this route", humanizeType(o.Type), o.Severity))
		}
	}
	return warnings
}

func humanizeType(t obstacle.Type) string {
	return strings.ReplaceAll(string(t), "_", " ")
}
