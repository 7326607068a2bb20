package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/stepfree/stepfree/pkg/geo"
)

// Fallback route estimation. Street networks are never straight lines,
// so the crow-flies distance is inflated before estimating duration.
const (
	fallbackDetourFactor = 1.3
	fallbackSpeedMS      = 1.2 // cautious pedestrian pace
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache directions (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees
	// (default: 0.01, ~1.1km). Points within the same cell share
	// cached directions.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale directions on provider
	// errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration
}

// Service provides candidate routes with caching and a straight-line
// fallback when the provider is unavailable.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	mu    sync.RWMutex
	cache map[string]*cachedDirections
}

type cachedDirections struct {
	response  *DirectionsResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	gridSize := cfg.CacheGridSize
	if gridSize == 0 {
		gridSize = 0.01
	}

	staleTTL := cfg.StaleIfErrorTTL
	if staleTTL == 0 {
		staleTTL = 15 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   gridSize,
		staleIfErrorTTL: staleTTL,
		cache:           make(map[string]*cachedDirections),
	}
}

// GetCandidates returns candidate routes between two points. Provider
// failures degrade to a synthetic straight-line route rather than an
// error; only invalid input is fatal.
func (s *Service) GetCandidates(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := validatePoint(req.Origin); err != nil {
		return nil, fmt.Errorf("%w: origin: %v", ErrInvalidCoordinates, err)
	}
	if err := validatePoint(req.Destination); err != nil {
		return nil, fmt.Errorf("%w: destination: %v", ErrInvalidCoordinates, err)
	}

	key := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().Str("cache_key", key).Msg("directions cache hit")
		return cached.response, nil
	}
	s.mu.RUnlock()

	return s.fetch(ctx, req, key)
}

func (s *Service) fetch(ctx context.Context, req DirectionsRequest, key string) (*DirectionsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have fetched while we waited.
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		return cached.response, nil
	}

	resp, err := s.provider.GetDirections(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("profile", string(req.Profile)).
			Str("provider", s.provider.Name()).
			Msg("directions fetch failed")

		if cached, ok := s.cache[key]; ok && time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale directions due to provider error")
			return cached.response, nil
		}

		// Last resort: a straight-line route so travellers are never
		// left without any path.
		s.logger.Warn().Msg("provider exhausted, synthesizing straight-line route")
		return &DirectionsResponse{
			Routes:    []Route{FallbackRoute(req.Origin, req.Destination)},
			Provider:  "fallback",
			FetchedAt: time.Now(),
		}, nil
	}

	for i := range resp.Routes {
		if resp.Routes[i].ID == "" {
			resp.Routes[i].ID = "rt_" + uuid.New().String()[:12]
		}
	}

	now := time.Now()
	s.cache[key] = &cachedDirections{
		response:  resp,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.logger.Debug().
		Str("cache_key", key).
		Int("route_count", len(resp.Routes)).
		Msg("directions cached")

	return resp, nil
}

// FallbackRoute builds a synthetic two-point route between origin and
// destination with a distance and duration estimate.
func FallbackRoute(origin, destination orb.Point) Route {
	distance := geo.Distance(origin, destination) * fallbackDetourFactor
	return Route{
		ID:              "rt_fallback_" + uuid.New().String()[:8],
		Geometry:        orb.LineString{origin, destination},
		DistanceMeters:  int(distance),
		DurationSeconds: int(distance / fallbackSpeedMS),
		Summary:         "Direct path (routing service unavailable)",
		Synthetic:       true,
	}
}

// InvalidateCache clears all cached directions.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// SweepExpired drops cache entries past the stale-if-error window and
// returns how many were removed. Called periodically by the worker.
func (s *Service) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			removed++
		}
	}
	return removed
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// cacheKey quantizes both endpoints onto the cache grid.
func (s *Service) cacheKey(req DirectionsRequest) string {
	oLat := math.Floor(req.Origin.Lat()/s.cacheGridSize) * s.cacheGridSize
	oLon := math.Floor(req.Origin.Lon()/s.cacheGridSize) * s.cacheGridSize
	dLat := math.Floor(req.Destination.Lat()/s.cacheGridSize) * s.cacheGridSize
	dLon := math.Floor(req.Destination.Lon()/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%s:%.2f,%.2f:%.2f,%.2f", req.Profile, oLat, oLon, dLat, dLon)
}

func validatePoint(p orb.Point) error {
	if p.Lat() < -90 || p.Lat() > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", p.Lat())
	}
	if p.Lon() < -180 || p.Lon() > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", p.Lon())
	}
	return nil
}
