// Package scoring computes profile-conditioned accessibility scores
// and their confidence for obstacle sets associated with a route.
package scoring

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/profile"
)

// Grade is the letter grade derived from the overall score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeFor maps an overall score to its letter grade. Thresholds are
// part of the external contract.
func GradeFor(overall float64) Grade {
	switch {
	case overall >= 85:
		return GradeA
	case overall >= 70:
		return GradeB
	case overall >= 55:
		return GradeC
	case overall >= 40:
		return GradeD
	default:
		return GradeF
	}
}

// Recommendation is the categorical advice derived from the overall
// score. It shares the grade thresholds.
type Recommendation string

const (
	RecommendationExcellent  Recommendation = "excellent"
	RecommendationGood       Recommendation = "good"
	RecommendationAcceptable Recommendation = "acceptable"
	RecommendationDifficult  Recommendation = "difficult"
	RecommendationAvoid      Recommendation = "avoid"
)

// RecommendationFor maps an overall score to its category.
func RecommendationFor(overall float64) Recommendation {
	switch GradeFor(overall) {
	case GradeA:
		return RecommendationExcellent
	case GradeB:
		return RecommendationGood
	case GradeC:
		return RecommendationAcceptable
	case GradeD:
		return RecommendationDifficult
	default:
		return RecommendationAvoid
	}
}

// GradeRank orders grades for gap comparisons (A = 4 .. F = 0).
func GradeRank(g Grade) int {
	switch g {
	case GradeA:
		return 4
	case GradeB:
		return 3
	case GradeC:
		return 2
	case GradeD:
		return 1
	default:
		return 0
	}
}

// Score is the multi-criteria accessibility score for one route.
// All sub-scores are 0-100.
type Score struct {
	Traversability float64
	Safety         float64
	Comfort        float64
	Overall        float64
	Grade          Grade

	// UserSpecificAdjustment is the profile-driven delta applied to
	// Overall, including the strategic-alternative bonus. It is
	// reported separately so the base score stays comparable across
	// profiles.
	UserSpecificAdjustment float64

	// Degraded marks a score produced by the obstacle-count fallback
	// after the multi-criteria computation failed.
	Degraded bool
}

// Input describes one scoring request.
type Input struct {
	// Obstacles associated with the route (already buffered).
	Obstacles []*obstacle.Obstacle

	// Profile is the traveller's complete mobility profile.
	Profile profile.Profile

	// StrategicAlternative marks routes generated by sidewalk
	// refinement or synthetic alternative generation; they receive an
	// explicit adjustment bonus.
	StrategicAlternative bool
}

// EngineConfig holds scoring weights and penalties. Zero values take
// defaults.
type EngineConfig struct {
	Logger zerolog.Logger

	// ObstacleBaseline is the starting sub-score when relevant
	// obstacles are present (default: 75).
	ObstacleBaseline float64

	// Per-obstacle penalties by severity. Medium and low penalties are
	// capped in total so obstacle-dense areas are not over-punished
	// item by item; density is penalized separately.
	BlockingPenalty float64 // default 22
	HighPenalty     float64 // default 12
	MediumPenalty   float64 // default 6
	MediumCap       float64 // default 18
	LowPenalty      float64 // default 2
	LowCap          float64 // default 8

	// Density thresholds and penalties on the overall score.
	ModerateDensityCount   int     // default 20
	ModerateDensityPenalty float64 // default 8
	SevereDensityCount     int     // default 30
	SevereDensityPenalty   float64 // default 15

	// StrategicBonus is the adjustment for strategic alternatives
	// (default: 8).
	StrategicBonus float64
}

func (c *EngineConfig) applyDefaults() {
	if c.ObstacleBaseline == 0 {
		c.ObstacleBaseline = 75
	}
	if c.BlockingPenalty == 0 {
		c.BlockingPenalty = 22
	}
	if c.HighPenalty == 0 {
		c.HighPenalty = 12
	}
	if c.MediumPenalty == 0 {
		c.MediumPenalty = 6
	}
	if c.MediumCap == 0 {
		c.MediumCap = 18
	}
	if c.LowPenalty == 0 {
		c.LowPenalty = 2
	}
	if c.LowCap == 0 {
		c.LowCap = 8
	}
	if c.ModerateDensityCount == 0 {
		c.ModerateDensityCount = 20
	}
	if c.ModerateDensityPenalty == 0 {
		c.ModerateDensityPenalty = 8
	}
	if c.SevereDensityCount == 0 {
		c.SevereDensityCount = 30
	}
	if c.SevereDensityPenalty == 0 {
		c.SevereDensityPenalty = 15
	}
	if c.StrategicBonus == 0 {
		c.StrategicBonus = 8
	}
}

// Sub-scores for routes without any relevant obstacle. Absence of data
// is treated optimistically, not as unknown.
const (
	cleanTraversability = 95
	cleanSafety         = 95
	cleanComfort        = 90
)

// AHP-style criteria weights.
const (
	weightTraversability = 0.40
	weightSafety         = 0.35
	weightComfort        = 0.25
)

// Engine computes accessibility scores. Stateless and safe for
// concurrent use.
type Engine struct {
	cfg        EngineConfig
	logger     zerolog.Logger
	confidence *Estimator
}

// NewEngine creates a scoring engine.
func NewEngine(cfg EngineConfig) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:        cfg,
		logger:     cfg.Logger,
		confidence: NewEstimator(nil),
	}
}

// NewEngineWithEstimator creates an engine with an injected confidence
// estimator, used by tests that need a fixed clock.
func NewEngineWithEstimator(cfg EngineConfig, est *Estimator) *Engine {
	cfg.applyDefaults()
	return &Engine{cfg: cfg, logger: cfg.Logger, confidence: est}
}

// Score computes the accessibility score and its confidence. It never
// fails: any error in the multi-criteria computation degrades to the
// obstacle-count heuristic.
func (e *Engine) Score(in Input) (Score, Confidence) {
	conf := e.confidence.Estimate(in.Obstacles)

	score, err := e.multiCriteria(in)
	if err != nil {
		e.logger.Warn().Err(err).
			Int("obstacles", len(in.Obstacles)).
			Str("device", string(in.Profile.Device)).
			Msg("multi-criteria scoring failed, using obstacle-count fallback")
		return e.fallback(in), conf
	}
	return score, conf
}

// multiCriteria is the primary scoring path.
func (e *Engine) multiCriteria(in Input) (s Score, err error) {
	// The fallback contract covers programming errors too.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scoring panic: %v", r)
		}
	}()

	if !in.Profile.Device.Valid() {
		return Score{}, fmt.Errorf("%w: %q", profile.ErrUnknownDevice, in.Profile.Device)
	}

	relevant := in.Profile.RelevantObstacles(in.Obstacles)

	var trav, safety, comfort float64
	if len(relevant) == 0 {
		trav, safety, comfort = cleanTraversability, cleanSafety, cleanComfort
	} else {
		trav = e.traversability(relevant)
		safety = e.safety(relevant)
		comfort = e.comfort(relevant)
	}

	// Crowding discomfort from the full obstacle set; never touches
	// traversability or safety so irrelevant obstacles stay isolated.
	if in.Profile.AvoidCrowds {
		comfort -= math.Min(float64(len(in.Obstacles))*0.5, 10)
	}

	overall := weightTraversability*trav + weightSafety*safety + weightComfort*comfort
	overall -= e.densityPenalty(len(relevant))

	// A route with blocking or stacked high-severity obstacles must not
	// read as acceptable, whatever the weighted sum says.
	overall = math.Min(overall, e.severityCeiling(relevant))

	adjustment := e.adjustment(in, relevant)
	overall = clampScore(overall + adjustment)

	return Score{
		Traversability:         clampScore(trav),
		Safety:                 clampScore(safety),
		Comfort:                clampScore(comfort),
		Overall:                overall,
		Grade:                  GradeFor(overall),
		UserSpecificAdjustment: adjustment,
	}, nil
}

func (e *Engine) traversability(relevant []*obstacle.Obstacle) float64 {
	counts := severityCounts(relevant)

	penalty := float64(counts[obstacle.SeverityBlocking]) * e.cfg.BlockingPenalty
	penalty += float64(counts[obstacle.SeverityHigh]) * e.cfg.HighPenalty
	penalty += math.Min(float64(counts[obstacle.SeverityMedium])*e.cfg.MediumPenalty, e.cfg.MediumCap)
	penalty += math.Min(float64(counts[obstacle.SeverityLow])*e.cfg.LowPenalty, e.cfg.LowCap)

	return e.cfg.ObstacleBaseline - penalty
}

// safety weighs hazard-type obstacles beyond their severity grade.
func (e *Engine) safety(relevant []*obstacle.Obstacle) float64 {
	penalty := 0.0
	for _, o := range relevant {
		switch o.Severity {
		case obstacle.SeverityBlocking:
			penalty += e.cfg.BlockingPenalty
		case obstacle.SeverityHigh:
			penalty += e.cfg.HighPenalty
		case obstacle.SeverityMedium:
			penalty += e.cfg.MediumPenalty * 0.6
		case obstacle.SeverityLow:
			penalty += e.cfg.LowPenalty * 0.5
		}

		switch o.Type {
		case obstacle.TypeFlooding, obstacle.TypeBrokenPavement, obstacle.TypeNoSidewalk:
			penalty += 3
		}
	}
	return e.cfg.ObstacleBaseline - math.Min(penalty, e.cfg.ObstacleBaseline)
}

func (e *Engine) comfort(relevant []*obstacle.Obstacle) float64 {
	// Comfort degrades gently with count; severity matters less than
	// the sheer number of interruptions.
	penalty := math.Min(float64(len(relevant))*2.5, 35)
	return e.cfg.ObstacleBaseline + 10 - penalty
}

func (e *Engine) densityPenalty(relevantCount int) float64 {
	switch {
	case relevantCount > e.cfg.SevereDensityCount:
		return e.cfg.SevereDensityPenalty
	case relevantCount > e.cfg.ModerateDensityCount:
		return e.cfg.ModerateDensityPenalty
	default:
		return 0
	}
}

func (e *Engine) severityCeiling(relevant []*obstacle.Obstacle) float64 {
	counts := severityCounts(relevant)

	switch {
	case counts[obstacle.SeverityBlocking] > 0:
		return 35 // at best "difficult"
	case counts[obstacle.SeverityHigh] >= 3:
		return 50
	case counts[obstacle.SeverityHigh] > 0:
		return 68
	default:
		return 100
	}
}

func (e *Engine) adjustment(in Input, relevant []*obstacle.Obstacle) float64 {
	var adj float64
	if in.StrategicAlternative {
		adj += e.cfg.StrategicBonus
	}
	if in.Profile.AvoidStairs {
		for _, o := range relevant {
			if o.Type == obstacle.TypeStairsNoRamp {
				adj -= 5
				break
			}
		}
	}
	return adj
}

// fallback is the obstacle-count heuristic used when the primary path
// fails. It always yields a usable, conservative score.
func (e *Engine) fallback(in Input) Score {
	count := len(in.Obstacles)
	overall := clampScore(90 - float64(count)*5)
	if overall < 20 {
		overall = 20
	}

	return Score{
		Traversability: overall,
		Safety:         overall,
		Comfort:        overall,
		Overall:        overall,
		Grade:          GradeFor(overall),
		Degraded:       true,
	}
}

func severityCounts(obstacles []*obstacle.Obstacle) map[obstacle.Severity]int {
	counts := make(map[obstacle.Severity]int, 4)
	for _, o := range obstacles {
		counts[o.Severity]++
	}
	return counts
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
