package scoring_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/profile"
	"github.com/stepfree/stepfree/internal/scoring"
)

func newEngine() *scoring.Engine {
	return scoring.NewEngine(scoring.EngineConfig{Logger: zerolog.Nop()})
}

func obs(id string, typ obstacle.Type, sev obstacle.Severity) *obstacle.Obstacle {
	return &obstacle.Obstacle{
		ID:         id,
		Type:       typ,
		Severity:   sev,
		ReportedAt: time.Now().Add(-24 * time.Hour),
	}
}

func TestScore_NoObstacles(t *testing.T) {
	engine := newEngine()

	for _, device := range profile.AllDeviceTypes() {
		s, conf := engine.Score(scoring.Input{Profile: profile.MustDefault(device)})

		assert.GreaterOrEqual(t, s.Overall, 90.0, device)
		assert.Equal(t, scoring.GradeA, s.Grade, device)
		assert.InDelta(t, 95, s.Traversability, 0.1)
		assert.InDelta(t, 95, s.Safety, 0.1)
		assert.False(t, s.Degraded)

		// Empty data is a weaker signal than verified obstacles.
		assert.Equal(t, scoring.FreshnessMedium, conf.DataFreshness)
	}
}

func TestScore_IrrelevantObstaclesAreIsolated(t *testing.T) {
	engine := newEngine()
	cane := profile.MustDefault(profile.DeviceCane)

	base, _ := engine.Score(scoring.Input{Profile: cane})

	// Stairs and parked vehicles are outside the cane relevance set.
	withIrrelevant, _ := engine.Score(scoring.Input{
		Profile: cane,
		Obstacles: []*obstacle.Obstacle{
			obs("1", obstacle.TypeStairsNoRamp, obstacle.SeverityBlocking),
			obs("2", obstacle.TypeVehicleParked, obstacle.SeverityHigh),
		},
	})

	assert.Equal(t, base.Traversability, withIrrelevant.Traversability)
	assert.Equal(t, base.Safety, withIrrelevant.Safety)
}

func TestScore_Deterministic(t *testing.T) {
	engine := newEngine()
	in := scoring.Input{
		Profile: profile.MustDefault(profile.DeviceWheelchair),
		Obstacles: []*obstacle.Obstacle{
			obs("1", obstacle.TypeBrokenPavement, obstacle.SeverityMedium),
			obs("2", obstacle.TypeFlooding, obstacle.SeverityHigh),
		},
	}

	a, _ := engine.Score(in)
	b, _ := engine.Score(in)
	assert.Equal(t, a, b)
}

func TestScore_SeverityOrdering(t *testing.T) {
	engine := newEngine()
	wheelchair := profile.MustDefault(profile.DeviceWheelchair)

	score := func(sev obstacle.Severity) float64 {
		s, _ := engine.Score(scoring.Input{
			Profile:   wheelchair,
			Obstacles: []*obstacle.Obstacle{obs("1", obstacle.TypeBrokenPavement, sev)},
		})
		return s.Overall
	}

	low := score(obstacle.SeverityLow)
	medium := score(obstacle.SeverityMedium)
	high := score(obstacle.SeverityHigh)
	blocking := score(obstacle.SeverityBlocking)

	assert.Greater(t, low, medium)
	assert.Greater(t, medium, high)
	assert.Greater(t, high, blocking)
}

func TestScore_BlockingNeverAcceptable(t *testing.T) {
	engine := newEngine()

	s, _ := engine.Score(scoring.Input{
		Profile: profile.MustDefault(profile.DeviceWheelchair),
		Obstacles: []*obstacle.Obstacle{
			obs("1", obstacle.TypeStairsNoRamp, obstacle.SeverityBlocking),
		},
	})

	assert.LessOrEqual(t, s.Overall, 40.0)
	assert.Contains(t, []scoring.Grade{scoring.GradeD, scoring.GradeF}, s.Grade)
}

func TestScore_DensityPenalty(t *testing.T) {
	engine := newEngine()
	wheelchair := profile.MustDefault(profile.DeviceWheelchair)

	many := func(n int) []*obstacle.Obstacle {
		list := make([]*obstacle.Obstacle, n)
		for i := range list {
			list[i] = obs(fmt.Sprintf("o%d", i), obstacle.TypeBrokenPavement, obstacle.SeverityLow)
		}
		return list
	}

	few, _ := engine.Score(scoring.Input{Profile: wheelchair, Obstacles: many(5)})
	moderate, _ := engine.Score(scoring.Input{Profile: wheelchair, Obstacles: many(25)})
	severe, _ := engine.Score(scoring.Input{Profile: wheelchair, Obstacles: many(35)})

	assert.Greater(t, few.Overall, moderate.Overall)
	assert.Greater(t, moderate.Overall, severe.Overall)
}

func TestScore_StrategicBonusInAdjustment(t *testing.T) {
	engine := newEngine()
	wheelchair := profile.MustDefault(profile.DeviceWheelchair)
	obstacles := []*obstacle.Obstacle{
		obs("1", obstacle.TypeBrokenPavement, obstacle.SeverityMedium),
	}

	plain, _ := engine.Score(scoring.Input{Profile: wheelchair, Obstacles: obstacles})
	strategic, _ := engine.Score(scoring.Input{
		Profile:              wheelchair,
		Obstacles:            obstacles,
		StrategicAlternative: true,
	})

	// Bonus is visible in the adjustment, not hidden in sub-scores.
	assert.Greater(t, strategic.UserSpecificAdjustment, plain.UserSpecificAdjustment)
	assert.Equal(t, plain.Traversability, strategic.Traversability)
	assert.Greater(t, strategic.Overall, plain.Overall)
}

func TestScore_FallbackOnInvalidProfile(t *testing.T) {
	engine := newEngine()

	s, _ := engine.Score(scoring.Input{
		Profile: profile.Profile{Device: "hoverboard"},
		Obstacles: []*obstacle.Obstacle{
			obs("1", obstacle.TypeBrokenPavement, obstacle.SeverityMedium),
		},
	})

	// Caller still gets a usable score.
	assert.True(t, s.Degraded)
	assert.Greater(t, s.Overall, 0.0)
	assert.NotEmpty(t, s.Grade)
}

func TestScore_SubScoresInRange(t *testing.T) {
	engine := newEngine()

	var obstacles []*obstacle.Obstacle
	for i := 0; i < 40; i++ {
		obstacles = append(obstacles, obs(fmt.Sprintf("b%d", i), obstacle.TypeFlooding, obstacle.SeverityBlocking))
	}

	s, _ := engine.Score(scoring.Input{
		Profile:   profile.MustDefault(profile.DeviceWheelchair),
		Obstacles: obstacles,
	})

	for name, v := range map[string]float64{
		"traversability": s.Traversability,
		"safety":         s.Safety,
		"comfort":        s.Comfort,
		"overall":        s.Overall,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 100.0, name)
	}
	assert.Equal(t, scoring.GradeF, s.Grade)
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		overall float64
		want    scoring.Grade
	}{
		{95, scoring.GradeA},
		{85, scoring.GradeA},
		{84.9, scoring.GradeB},
		{70, scoring.GradeB},
		{55, scoring.GradeC},
		{40, scoring.GradeD},
		{39.9, scoring.GradeF},
		{0, scoring.GradeF},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, scoring.GradeFor(tt.overall), "overall=%v", tt.overall)
	}
}

func TestRecommendationFor(t *testing.T) {
	tests := []struct {
		overall float64
		want    scoring.Recommendation
	}{
		{100, scoring.RecommendationExcellent},
		{85, scoring.RecommendationExcellent},
		{84.9, scoring.RecommendationGood},
		{70, scoring.RecommendationGood},
		{69.9, scoring.RecommendationAcceptable},
		{55, scoring.RecommendationAcceptable},
		{54.9, scoring.RecommendationDifficult},
		{40, scoring.RecommendationDifficult},
		{39.9, scoring.RecommendationAvoid},
		{0, scoring.RecommendationAvoid},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, scoring.RecommendationFor(tt.overall), "overall=%v", tt.overall)
	}
}

func TestScore_WheelchairBlockedVsPedestrian(t *testing.T) {
	engine := newEngine()
	stairs := []*obstacle.Obstacle{obs("1", obstacle.TypeStairsNoRamp, obstacle.SeverityBlocking)}

	wheel, _ := engine.Score(scoring.Input{
		Profile:   profile.MustDefault(profile.DeviceWheelchair),
		Obstacles: stairs,
	})
	walk, _ := engine.Score(scoring.Input{
		Profile:   profile.MustDefault(profile.DeviceNone),
		Obstacles: stairs,
	})

	require.NotEqual(t, wheel.Overall, walk.Overall)
	assert.Less(t, wheel.Overall, walk.Overall)
}
