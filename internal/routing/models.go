// Package routing provides candidate walking routes from external
// providers, with caching and a straight-line fallback.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves candidate routes between two points,
	// including alternatives when available.
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
	// SupportedProfiles returns the route profiles this provider supports.
	SupportedProfiles() []RouteProfile
}

// RouteProfile represents a pedestrian routing profile.
type RouteProfile string

const (
	// ProfileWalk is the foot-walking profile.
	ProfileWalk RouteProfile = "foot-walking"
	// ProfileWheelchair is the wheelchair profile; providers that
	// support it avoid steps and prefer lowered kerbs.
	ProfileWheelchair RouteProfile = "wheelchair"
)

// DirectionsRequest is the request for candidate routes.
type DirectionsRequest struct {
	Origin          orb.Point
	Destination     orb.Point
	Profile         RouteProfile
	MaxAlternatives int // maximum number of alternatives (default: 2)

	// Wheelchair restrictions, forwarded to providers that support
	// them. Zero values mean "provider default".
	MaxInclinePercent float64
	MinWidthMeters    float64
}

// DirectionsResponse contains the candidate routes.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is a single candidate route with decoded geometry.
type Route struct {
	ID              string
	Geometry        orb.LineString // lon/lat order
	DistanceMeters  int
	DurationSeconds int
	Summary         string
	Instructions    []Instruction

	// Synthetic marks routes generated locally (straight-line fallback
	// or strategic alternatives); they must never be presented as
	// provider-verified paths.
	Synthetic bool

	// AccessibilityOptimized marks routes generated specifically to
	// reduce obstacle exposure.
	AccessibilityOptimized bool
}

// Instruction is a turn-by-turn instruction.
type Instruction struct {
	Text            string
	DistanceMeters  int
	DurationSeconds int
}

// Error provides detailed error information from a routing provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
