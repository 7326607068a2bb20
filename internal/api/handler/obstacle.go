package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/internal/api/models"
	"github.com/stepfree/stepfree/internal/api/response"
	"github.com/stepfree/stepfree/internal/featureflags"
	"github.com/stepfree/stepfree/internal/obstacle"
)

const (
	defaultQueryRadiusMeters = 250.0
	maxQueryRadiusMeters     = 2000.0
)

// ObstacleHandler handles community obstacle reporting endpoints.
type ObstacleHandler struct {
	obstacles *obstacle.Service
	flags     *featureflags.Service
	logger    zerolog.Logger
}

// NewObstacleHandler creates a new ObstacleHandler. A nil flag service
// leaves reporting always on.
func NewObstacleHandler(obstacles *obstacle.Service, flags *featureflags.Service, logger zerolog.Logger) *ObstacleHandler {
	return &ObstacleHandler{
		obstacles: obstacles,
		flags:     flags,
		logger:    logger.With().Str("handler", "obstacle").Logger(),
	}
}

// ListObstacles handles GET /v1/obstacles?lat=&lon=&radius=.
func (h *ObstacleHandler) ListObstacles(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		response.BadRequest(w, r, "lat and lon query parameters are required", nil)
		return
	}
	if !(models.Point{Lat: lat, Lon: lon}).Valid() {
		response.BadRequest(w, r, "coordinates out of range", nil)
		return
	}

	radius := defaultQueryRadiusMeters
	if raw := r.URL.Query().Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, r, "radius must be a positive number of meters", nil)
			return
		}
		radius = min(parsed, maxQueryRadiusMeters)
	}

	found, err := h.obstacles.Near(r.Context(), orb.Point{lon, lat}, radius)
	if err != nil {
		h.logger.Error().Err(err).Msg("obstacle query failed")
		response.ServiceUnavailable(w, r, "obstacle store unavailable")
		return
	}

	resp := models.ObstacleListResponse{
		Obstacles: toObstacleModels(found),
		Count:     len(found),
	}
	w.Header().Set("Cache-Control", "private, max-age=30")
	response.JSON(w, r, http.StatusOK, resp)
}

// GetObstacle handles GET /v1/obstacles/{obstacleId}.
func (h *ObstacleHandler) GetObstacle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "obstacleId")

	o, err := h.obstacles.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, obstacle.ErrObstacleNotFound) {
			response.NotFound(w, r, "obstacle not found")
			return
		}
		h.logger.Error().Err(err).Str("obstacle_id", id).Msg("obstacle lookup failed")
		response.ServiceUnavailable(w, r, "obstacle store unavailable")
		return
	}

	response.JSON(w, r, http.StatusOK, toObstacleModel(o))
}

// ReportObstacle handles POST /v1/obstacles.
func (h *ObstacleHandler) ReportObstacle(w http.ResponseWriter, r *http.Request) {
	if h.flags.ObstacleReportsDisabled(r.Context()) {
		response.ServiceUnavailable(w, r, "obstacle reporting is temporarily paused")
		return
	}

	var input models.ObstacleReportRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if fieldErrs := validateReport(input); len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid obstacle report", fieldErrs)
		return
	}

	o := &obstacle.Obstacle{
		ID:          "obs_" + uuid.New().String()[:12],
		Type:        obstacle.Type(input.Type),
		Severity:    obstacle.Severity(input.Severity),
		Location:    orb.Point{input.Location.Lon, input.Location.Lat},
		Description: input.Description,
		ReportedAt:  time.Now(),
	}
	if input.TimePattern != nil {
		pattern := obstacle.TimePattern(*input.TimePattern)
		o.TimePattern = &pattern
	}
	if input.Side != nil {
		o.Side = &obstacle.SideInfo{
			Side:           obstacle.Side(input.Side.Side),
			HasAlternative: input.Side.HasAlternative,
		}
	}

	if err := h.obstacles.Report(r.Context(), o); err != nil {
		h.logger.Error().Err(err).Msg("obstacle report failed")
		response.ServiceUnavailable(w, r, "obstacle store unavailable")
		return
	}

	response.Created(w, r, "/v1/obstacles/"+o.ID, toObstacleModel(o))
}

// VoteObstacle handles POST /v1/obstacles/{obstacleId}/votes.
func (h *ObstacleHandler) VoteObstacle(w http.ResponseWriter, r *http.Request) {
	if h.flags.ObstacleReportsDisabled(r.Context()) {
		response.ServiceUnavailable(w, r, "obstacle reporting is temporarily paused")
		return
	}

	id := chi.URLParam(r, "obstacleId")

	var input models.ObstacleVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if input.Vote != "up" && input.Vote != "down" {
		response.BadRequest(w, r, "vote must be up or down", []models.FieldError{
			{Field: "vote", Message: "must be up or down"},
		})
		return
	}

	if err := h.obstacles.Vote(r.Context(), id, input.Vote == "up"); err != nil {
		if errors.Is(err, obstacle.ErrObstacleNotFound) {
			response.NotFound(w, r, "obstacle not found")
			return
		}
		h.logger.Error().Err(err).Str("obstacle_id", id).Msg("vote failed")
		response.ServiceUnavailable(w, r, "obstacle store unavailable")
		return
	}

	response.NoContent(w, r)
}

func validateReport(input models.ObstacleReportRequest) []models.FieldError {
	var errs []models.FieldError
	if !obstacle.Type(input.Type).Valid() {
		errs = append(errs, models.FieldError{Field: "type", Message: "unknown obstacle type"})
	}
	if !obstacle.Severity(input.Severity).Valid() {
		errs = append(errs, models.FieldError{Field: "severity", Message: "must be low, medium, high or blocking"})
	}
	if input.Location == nil {
		errs = append(errs, models.FieldError{Field: "location", Message: "required"})
	} else if !input.Location.Valid() {
		errs = append(errs, models.FieldError{Field: "location", Message: "out of range"})
	}
	if input.Side != nil && input.Side.Side != string(obstacle.SideLeft) && input.Side.Side != string(obstacle.SideRight) {
		errs = append(errs, models.FieldError{Field: "side.side", Message: "must be left or right"})
	}
	return errs
}
