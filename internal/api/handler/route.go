package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/api/models"
	"github.com/stepfree/stepfree/internal/api/response"
	"github.com/stepfree/stepfree/internal/featureflags"
	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/internal/planner"
	"github.com/stepfree/stepfree/internal/profile"
	"github.com/stepfree/stepfree/internal/routing"
	"github.com/stepfree/stepfree/internal/scoring"
	"github.com/stepfree/stepfree/internal/sidewalk"
	"github.com/stepfree/stepfree/pkg/geo"
)

// RouteHandler handles route computation endpoints.
type RouteHandler struct {
	routes    *routing.Service
	obstacles *obstacle.Service
	selector  *planner.Selector
	optimizer *sidewalk.Optimizer
	crossings []sidewalk.Crossing
	flags     *featureflags.Service
	logger    zerolog.Logger
}

// RouteHandlerConfig holds dependencies for the RouteHandler.
type RouteHandlerConfig struct {
	Routes    *routing.Service
	Obstacles *obstacle.Service
	Selector  *planner.Selector
	Optimizer *sidewalk.Optimizer

	// Crossings is the known pedestrian crossing set used by the
	// sidewalk refinement.
	Crossings []sidewalk.Crossing

	// Flags carries runtime kill switches; nil means all defaults.
	Flags *featureflags.Service

	Logger zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(cfg RouteHandlerConfig) *RouteHandler {
	return &RouteHandler{
		routes:    cfg.Routes,
		obstacles: cfg.Obstacles,
		selector:  cfg.Selector,
		optimizer: cfg.Optimizer,
		crossings: cfg.Crossings,
		flags:     cfg.Flags,
		logger:    cfg.Logger.With().Str("handler", "route").Logger(),
	}
}

// ComputeRoutes handles POST /v1/routes:compute.
func (h *RouteHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if fieldErrs := validateComputeRequest(input); len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid route request", fieldErrs)
		return
	}

	device := profile.DeviceType(input.DeviceType)
	if input.DeviceType == "" {
		device = profile.DeviceNone
	}
	prof, err := profile.Default(device)
	if err != nil {
		response.BadRequest(w, r, "unknown device type", []models.FieldError{
			{Field: "deviceType", Message: "must be one of wheelchair, walker, crutches, cane, none"},
		})
		return
	}

	origin := orb.Point{input.Origin.Lon, input.Origin.Lat}
	destination := orb.Point{input.Destination.Lon, input.Destination.Lat}

	candidates, err := h.routes.GetCandidates(r.Context(), routing.DirectionsRequest{
		Origin:            origin,
		Destination:       destination,
		Profile:           routeProfileFor(device),
		MaxAlternatives:   input.MaxAlternatives,
		MaxInclinePercent: prof.MaxRampSlope,
		MinWidthMeters:    prof.MinPathWidth,
	})
	if err != nil {
		if errors.Is(err, routing.ErrInvalidCoordinates) {
			response.BadRequest(w, r, "coordinates out of range", nil)
			return
		}
		response.ServiceUnavailable(w, r, "route providers unavailable")
		return
	}

	pool := h.obstaclePool(r, candidates.Routes)

	selection, err := h.selector.SelectRoutes(r.Context(), candidates.Routes, pool, prof)
	if err != nil {
		if errors.Is(err, planner.ErrNoRouteAvailable) {
			response.NoRoute(w, r, "no usable route between these points")
			return
		}
		h.logger.Error().Err(err).Msg("route selection failed")
		response.InternalError(w, r, "route selection failed")
		return
	}

	accessible := toRouteOption(selection.Accessible)
	if input.RefineSidewalk && h.optimizer != nil && !h.flags.SidewalkRefinementDisabled(r.Context()) {
		refined := h.optimizer.Optimize(selection.Accessible.Route, selection.Accessible.Obstacles, prof, h.crossings)
		if refined.Improved {
			accessible = refinedRouteOption(refined, selection.Accessible.Warnings)
		}
	}

	resp := models.RouteComputeResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Fastest:     toRouteOption(selection.Fastest),
		Accessible:  accessible,
		Comparison: models.RouteComparison{
			TimeDeltaSeconds:  selection.Comparison.TimeDeltaSeconds,
			GradeGap:          selection.Comparison.GradeGap,
			BlockingOnFastest: selection.Comparison.BlockingOnFastest,
			Recommendation:    selection.Comparison.Recommendation,
		},
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, resp)
}

func validateComputeRequest(input models.RouteComputeRequest) []models.FieldError {
	var errs []models.FieldError
	if input.Origin == nil {
		errs = append(errs, models.FieldError{Field: "origin", Message: "required"})
	} else if !input.Origin.Valid() {
		errs = append(errs, models.FieldError{Field: "origin", Message: "out of range"})
	}
	if input.Destination == nil {
		errs = append(errs, models.FieldError{Field: "destination", Message: "required"})
	} else if !input.Destination.Valid() {
		errs = append(errs, models.FieldError{Field: "destination", Message: "out of range"})
	}
	return errs
}

// obstaclePool loads the obstacle set covering all candidate
// geometries. A store failure degrades to an empty pool: routes are
// still returned, just unscored against community reports.
func (h *RouteHandler) obstaclePool(r *http.Request, routes []routing.Route) []*obstacle.Obstacle {
	if len(routes) == 0 {
		return nil
	}

	bound := routes[0].Geometry.Bound()
	for _, rt := range routes[1:] {
		bound = bound.Union(rt.Geometry.Bound())
	}

	pool, err := h.obstacles.InArea(r.Context(), geo.PadBound(bound, obstacle.DefaultBufferMeters))
	if err != nil {
		h.logger.Warn().Err(err).Msg("obstacle pool unavailable, scoring without reports")
		return nil
	}
	return pool
}

func routeProfileFor(device profile.DeviceType) routing.RouteProfile {
	if device == profile.DeviceWheelchair {
		return routing.ProfileWheelchair
	}
	return routing.ProfileWalk
}

func toRouteOption(sr *planner.ScoredRoute) models.RouteOption {
	return models.RouteOption{
		ID:                     sr.Route.ID,
		Geometry:               toGeometry(sr.Route.Geometry),
		DistanceMeters:         sr.Route.DistanceMeters,
		DurationSeconds:        sr.Route.DurationSeconds,
		Summary:                sr.Route.Summary,
		Synthetic:              sr.Route.Synthetic,
		AccessibilityOptimized: sr.Route.AccessibilityOptimized,
		Score:                  toRouteScore(sr.Score),
		Confidence:             toRouteConfidence(sr.Confidence),
		Recommendation:         string(sr.Recommendation),
		Obstacles:              toObstacleModels(sr.Obstacles),
		Warnings:               sr.Warnings,
	}
}

func refinedRouteOption(res sidewalk.Result, warnings []string) models.RouteOption {
	return models.RouteOption{
		ID:                     res.Route.ID,
		Geometry:               toGeometry(res.Route.Geometry),
		DistanceMeters:         res.Route.DistanceMeters,
		DurationSeconds:        res.Route.DurationSeconds,
		Summary:                res.Route.Summary,
		Synthetic:              res.Route.Synthetic,
		AccessibilityOptimized: res.Route.AccessibilityOptimized,
		Score:                  toRouteScore(res.Score),
		Confidence:             toRouteConfidence(res.Confidence),
		Recommendation:         string(scoring.RecommendationFor(res.Score.Overall)),
		Obstacles:              toObstacleModels(res.Remaining),
		Warnings:               warnings,
	}
}
