// Package sidewalk refines a scored route by moving the traveller to
// the other side of the street around avoidable obstacle clusters,
// paying a fixed time cost per crossing.
package sidewalk

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/profile"
	"github.com/stepfree/stepfree/internal/routing"
	"github.com/stepfree/stepfree/internal/scoring"
	"github.com/stepfree/stepfree/pkg/geo"
)

// CrossingRating grades how hard a street crossing is for a profile.
type CrossingRating string

const (
	RatingAccessible CrossingRating = "accessible"
	RatingEasy       CrossingRating = "easy"
	RatingModerate   CrossingRating = "moderate"
	RatingDifficult  CrossingRating = "difficult"
)

// Crossing is a known street crossing with per-profile ratings.
type Crossing struct {
	ID       string
	Location orb.Point
	Ratings  map[profile.DeviceType]CrossingRating
}

// UsableBy reports whether this crossing is rated accessible or easy
// for the given device. Unrated crossings are not usable.
func (c Crossing) UsableBy(device profile.DeviceType) bool {
	switch c.Ratings[device] {
	case RatingAccessible, RatingEasy:
		return true
	default:
		return false
	}
}

// Result is the outcome of a refinement pass.
type Result struct {
	Route      routing.Route
	Score      scoring.Score
	Confidence scoring.Confidence

	// Avoided are the obstacles the refined route sidesteps by
	// crossing the street.
	Avoided []*obstacle.Obstacle

	// Remaining are the obstacles still on the refined route.
	Remaining []*obstacle.Obstacle

	// CrossingsUsed lists the crossings the traveller takes, one per
	// avoided cluster.
	CrossingsUsed []Crossing

	// TimePenaltySeconds is the total added crossing time.
	TimePenaltySeconds int

	// Improved is true when the refined route outscores the baseline.
	Improved bool
}

// OptimizerConfig holds configuration for the sidewalk optimizer.
type OptimizerConfig struct {
	// Engine re-scores the refined route. Required.
	Engine *scoring.Engine

	// Logger for optimizer operations.
	Logger zerolog.Logger

	// CrossingPenaltySeconds is the time cost per street crossing
	// (default: 45).
	CrossingPenaltySeconds int

	// ClusterRadiusMeters groups nearby avoidable obstacles into one
	// crossing (default: 50).
	ClusterRadiusMeters float64

	// MaxCrossingDistanceMeters is how far from a cluster a usable
	// crossing may be (default: 100).
	MaxCrossingDistanceMeters float64
}

// Optimizer produces opposite-side route refinements.
type Optimizer struct {
	engine          *scoring.Engine
	logger          zerolog.Logger
	crossingPenalty int
	clusterRadius   float64
	maxCrossingDist float64
}

// NewOptimizer creates a sidewalk optimizer.
func NewOptimizer(cfg OptimizerConfig) *Optimizer {
	penalty := cfg.CrossingPenaltySeconds
	if penalty == 0 {
		penalty = 45
	}
	radius := cfg.ClusterRadiusMeters
	if radius == 0 {
		radius = 50
	}
	maxDist := cfg.MaxCrossingDistanceMeters
	if maxDist == 0 {
		maxDist = 100
	}

	return &Optimizer{
		engine:          cfg.Engine,
		logger:          cfg.Logger,
		crossingPenalty: penalty,
		clusterRadius:   radius,
		maxCrossingDist: maxDist,
	}
}

// Optimize builds an opposite-side variant of the base route. Obstacles
// with side metadata and an alternative side are filtered out when the
// profile's crossing rules allow it; each avoided cluster costs one
// crossing at a usable crossing point. The result is re-scored so the
// caller can compare it against the baseline with the same metrics.
func (o *Optimizer) Optimize(base routing.Route, obstacles []*obstacle.Obstacle, prof profile.Profile, crossings []Crossing) Result {
	baseScore, _ := o.engine.Score(scoring.Input{Obstacles: obstacles, Profile: prof})

	var avoidable, remaining []*obstacle.Obstacle
	for _, obs := range obstacles {
		if crossingAvoids(obs, prof) {
			avoidable = append(avoidable, obs)
		} else {
			remaining = append(remaining, obs)
		}
	}

	clusters := o.cluster(avoidable)

	var used []Crossing
	for _, cl := range clusters {
		crossing, ok := o.nearestUsableCrossing(cl, crossings, prof.Device)
		if !ok {
			// No safe way across here; the cluster stays on the route.
			remaining = append(remaining, cl...)
			continue
		}
		used = append(used, crossing)
	}

	avoided := subtract(avoidable, remaining)
	penalty := o.crossingPenalty * len(used)

	refined := base
	refined.ID = base.ID + "-sidewalk"
	refined.Summary = "Opposite-side variant"
	refined.DurationSeconds = base.DurationSeconds + penalty
	refined.Synthetic = true
	refined.AccessibilityOptimized = true
	refined.Instructions = nil

	score, confidence := o.engine.Score(scoring.Input{
		Obstacles:            remaining,
		Profile:              prof,
		StrategicAlternative: true,
	})

	o.logger.Debug().
		Int("avoided", len(avoided)).
		Int("crossings", len(used)).
		Int("penalty_seconds", penalty).
		Msg("sidewalk refinement computed")

	return Result{
		Route:              refined,
		Score:              score,
		Confidence:         confidence,
		Avoided:            avoided,
		Remaining:          remaining,
		CrossingsUsed:      used,
		TimePenaltySeconds: penalty,
		Improved:           score.Overall > baseScore.Overall,
	}
}

// crossingAvoids decides whether crossing the street gets this profile
// past the obstacle. Wheelchair users avoid hard blockers whenever an
// alternative side exists; other profiles only cross for high-severity
// surface hazards.
func crossingAvoids(o *obstacle.Obstacle, prof profile.Profile) bool {
	if o.Side == nil || !o.Side.HasAlternative {
		return false
	}

	if prof.Device == profile.DeviceWheelchair {
		switch o.Type {
		case obstacle.TypeStairsNoRamp, obstacle.TypeNarrowPassage, obstacle.TypeVehicleParked:
			return true
		}
		return false
	}

	if o.Severity != obstacle.SeverityHigh && o.Severity != obstacle.SeverityBlocking {
		return false
	}
	return o.Type == obstacle.TypeBrokenPavement || o.Type == obstacle.TypeFlooding
}

// cluster groups avoidable obstacles by proximity. Obstacles are
// sorted by id first so clustering is order-independent.
func (o *Optimizer) cluster(obstacles []*obstacle.Obstacle) [][]*obstacle.Obstacle {
	if len(obstacles) == 0 {
		return nil
	}

	sorted := make([]*obstacle.Obstacle, len(obstacles))
	copy(sorted, obstacles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var clusters [][]*obstacle.Obstacle
	for _, obs := range sorted {
		placed := false
		for i, cl := range clusters {
			if geo.Distance(cl[0].Location, obs.Location) <= o.clusterRadius {
				clusters[i] = append(cl, obs)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []*obstacle.Obstacle{obs})
		}
	}
	return clusters
}

// nearestUsableCrossing finds the closest crossing to the cluster seed
// that the profile can use, within the maximum crossing distance.
func (o *Optimizer) nearestUsableCrossing(cluster []*obstacle.Obstacle, crossings []Crossing, device profile.DeviceType) (Crossing, bool) {
	seed := cluster[0].Location

	best := -1
	bestDist := o.maxCrossingDist
	for i, c := range crossings {
		if !c.UsableBy(device) {
			continue
		}
		d := geo.Distance(seed, c.Location)
		if d <= bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 {
		return Crossing{}, false
	}
	return crossings[best], true
}

func subtract(all, removed []*obstacle.Obstacle) []*obstacle.Obstacle {
	removedIDs := make(map[string]struct{}, len(removed))
	for _, o := range removed {
		removedIDs[o.ID] = struct{}{}
	}

	var kept []*obstacle.Obstacle
	for _, o := range all {
		if _, ok := removedIDs[o.ID]; !ok {
			kept = append(kept, o)
		}
	}
	return kept
}

// String implements fmt.Stringer for logging.
func (c Crossing) String() string {
	return fmt.Sprintf("crossing %s", c.ID)
}
