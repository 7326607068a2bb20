package handler

import (
	"github.com/paulmach/orb"

	"github.com/stepfree/stepfree/internal/api/models"
	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/scoring"
)

func toGeometry(line orb.LineString) [][2]float64 {
	out := make([][2]float64, len(line))
	for i, p := range line {
		out[i] = [2]float64{p.Lat(), p.Lon()}
	}
	return out
}

func toRouteScore(s scoring.Score) models.RouteScore {
	return models.RouteScore{
		Traversability:         s.Traversability,
		Safety:                 s.Safety,
		Comfort:                s.Comfort,
		Overall:                s.Overall,
		Grade:                  string(s.Grade),
		UserSpecificAdjustment: s.UserSpecificAdjustment,
		Degraded:               s.Degraded,
	}
}

func toRouteConfidence(c scoring.Confidence) models.RouteConfidence {
	out := models.RouteConfidence{
		Overall:             c.Overall,
		DataFreshness:       string(c.DataFreshness),
		CommunityValidation: c.CommunityValidation,
		VerificationStatus:  string(c.VerificationStatus),
	}
	if c.LastVerified != nil {
		ts := models.Timestamp(*c.LastVerified)
		out.LastVerified = &ts
	}
	return out
}

func toObstacleModel(o *obstacle.Obstacle) models.ObstacleModel {
	out := models.ObstacleModel{
		ID:          o.ID,
		Type:        string(o.Type),
		Severity:    string(o.Severity),
		Location:    models.Point{Lat: o.Location.Lat(), Lon: o.Location.Lon()},
		Description: o.Description,
		ReportedAt:  models.Timestamp(o.ReportedAt),
		Upvotes:     o.Upvotes,
		Downvotes:   o.Downvotes,
		Verified:    o.Verified,
	}
	if o.TimePattern != nil {
		pattern := string(*o.TimePattern)
		out.TimePattern = &pattern
	}
	if o.Side != nil {
		out.Side = &models.SideModel{
			Side:           string(o.Side.Side),
			HasAlternative: o.Side.HasAlternative,
		}
	}
	return out
}

func toObstacleModels(obstacles []*obstacle.Obstacle) []models.ObstacleModel {
	out := make([]models.ObstacleModel, len(obstacles))
	for i, o := range obstacles {
		out[i] = toObstacleModel(o)
	}
	return out
}
