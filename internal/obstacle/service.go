package obstacle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/uber/h3-go/v4"

	"github.com/stepfree/stepfree/pkg/geo"
)

// ServiceConfig holds configuration for the obstacle service.
type ServiceConfig struct {
	// Repository is the obstacle datastore.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long an area snapshot stays fresh (default: 2 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale snapshots on store errors
	// (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CacheGridSize is the snapshot cache cell size in degrees
	// (default: 0.02, ~2.2km).
	CacheGridSize float64

	// IndexResolution is the H3 resolution of the snapshot index
	// (default: 9, ~174m edge cells).
	IndexResolution int

	// IndexCellEdgeMeters is the approximate edge length of index
	// cells, used to size ring lookups (default: 175).
	IndexCellEdgeMeters float64
}

// Service provides obstacle data with per-area snapshot caching and an
// H3 cell index for radius queries.
type Service struct {
	repo            Repository
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	cacheGridSize   float64
	indexRes        int
	indexEdgeMeters float64

	mu    sync.RWMutex
	cache map[string]*snapshot
}

// snapshot is a cached, indexed obstacle set for one area.
type snapshot struct {
	obstacles []*Obstacle
	index     map[h3.Cell][]*Obstacle
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new obstacle service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 2 * time.Minute
	}

	staleTTL := cfg.StaleIfErrorTTL
	if staleTTL == 0 {
		staleTTL = 15 * time.Minute
	}

	gridSize := cfg.CacheGridSize
	if gridSize == 0 {
		gridSize = 0.02
	}

	indexRes := cfg.IndexResolution
	if indexRes == 0 {
		indexRes = 9
	}

	edge := cfg.IndexCellEdgeMeters
	if edge == 0 {
		edge = 175
	}

	return &Service{
		repo:            cfg.Repository,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleTTL,
		cacheGridSize:   gridSize,
		indexRes:        indexRes,
		indexEdgeMeters: edge,
		cache:           make(map[string]*snapshot),
	}
}

// InArea returns all obstacles inside the bounding area.
func (s *Service) InArea(ctx context.Context, bound orb.Bound) ([]*Obstacle, error) {
	snap, err := s.getSnapshot(ctx, bound)
	if err != nil {
		return nil, err
	}

	var result []*Obstacle
	for _, o := range snap.obstacles {
		if bound.Contains(o.Location) {
			result = append(result, o)
		}
	}
	return result, nil
}

// Near returns all obstacles within radiusMeters of center, using the
// snapshot's H3 index to limit the candidate set.
func (s *Service) Near(ctx context.Context, center orb.Point, radiusMeters float64) ([]*Obstacle, error) {
	bound := geo.PadBound(orb.Bound{Min: center, Max: center}, radiusMeters)

	snap, err := s.getSnapshot(ctx, bound)
	if err != nil {
		return nil, err
	}

	candidates := snap.candidatesNear(center, radiusMeters, s.indexRes, s.indexEdgeMeters)

	var result []*Obstacle
	for _, o := range candidates {
		if geo.Distance(center, o.Location) <= radiusMeters {
			result = append(result, o)
		}
	}
	return result, nil
}

// AlongRoute samples the route and returns the deduplicated obstacles
// near any sample point. A fetch failure at one sample point yields an
// empty set for that point, not an error.
func (s *Service) AlongRoute(ctx context.Context, route orb.LineString, sampleIntervalMeters, radiusMeters float64) []*Obstacle {
	if sampleIntervalMeters <= 0 {
		sampleIntervalMeters = 500
	}

	samples := geo.Sample(route, sampleIntervalMeters)

	lists := make([][]*Obstacle, 0, len(samples))
	for _, p := range samples {
		found, err := s.Near(ctx, p, radiusMeters)
		if err != nil {
			s.logger.Warn().Err(err).
				Float64("lat", p.Lat()).
				Float64("lon", p.Lon()).
				Msg("obstacle fetch failed for sample point, continuing with empty set")
			continue
		}
		lists = append(lists, found)
	}
	return MergeByID(lists...)
}

// Report stores a new obstacle and invalidates affected snapshots.
func (s *Service) Report(ctx context.Context, o *Obstacle) error {
	if err := s.repo.Create(ctx, o); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

// Vote records a community vote for an obstacle.
func (s *Service) Vote(ctx context.Context, id string, upvote bool) error {
	if err := s.repo.AddVote(ctx, id, upvote); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

// Get retrieves a single obstacle by id.
func (s *Service) Get(ctx context.Context, id string) (*Obstacle, error) {
	return s.repo.GetByID(ctx, id)
}

// InvalidateCache drops all cached snapshots.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*snapshot)
}

// RefreshArea forces a fresh snapshot fetch for the given area.
func (s *Service) RefreshArea(ctx context.Context, bound orb.Bound) error {
	key := s.cacheKey(bound)
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	_, err := s.getSnapshot(ctx, bound)
	return err
}

// getSnapshot returns a fresh or acceptable-stale snapshot covering bound.
func (s *Service) getSnapshot(ctx context.Context, bound orb.Bound) (*snapshot, error) {
	key := s.cacheKey(bound)

	s.mu.RLock()
	if snap, ok := s.cache[key]; ok && time.Now().Before(snap.expiresAt) {
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	return s.refreshSnapshot(ctx, key, bound)
}

func (s *Service) refreshSnapshot(ctx context.Context, key string, bound orb.Bound) (*snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if snap, ok := s.cache[key]; ok && time.Now().Before(snap.expiresAt) {
		return snap, nil
	}

	// Fetch the whole cache cell so neighbouring queries share it.
	fetchBound := s.cellBound(bound)

	obstacles, err := s.repo.QueryArea(ctx, fetchBound)
	if err != nil {
		s.logger.Error().Err(err).Str("cache_key", key).Msg("failed to query obstacle store")

		if snap, ok := s.cache[key]; ok && time.Now().Before(snap.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", snap.fetchedAt).
				Msg("serving stale obstacle snapshot due to store error")
			return snap, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	now := time.Now()
	snap := &snapshot{
		obstacles: obstacles,
		index:     buildIndex(obstacles, s.indexRes),
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cache[key] = snap

	s.logger.Debug().
		Str("cache_key", key).
		Int("obstacles", len(obstacles)).
		Msg("obstacle snapshot refreshed")

	return snap, nil
}

// cacheKey quantizes the bound onto the snapshot cache grid.
func (s *Service) cacheKey(bound orb.Bound) string {
	minLat := math.Floor(bound.Min.Lat()/s.cacheGridSize) * s.cacheGridSize
	minLon := math.Floor(bound.Min.Lon()/s.cacheGridSize) * s.cacheGridSize
	maxLat := math.Ceil(bound.Max.Lat()/s.cacheGridSize) * s.cacheGridSize
	maxLon := math.Ceil(bound.Max.Lon()/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f,%.2f:%.2f,%.2f", minLat, minLon, maxLat, maxLon)
}

// cellBound expands bound to the enclosing cache grid cells.
func (s *Service) cellBound(bound orb.Bound) orb.Bound {
	return orb.Bound{
		Min: orb.Point{
			math.Floor(bound.Min.Lon()/s.cacheGridSize) * s.cacheGridSize,
			math.Floor(bound.Min.Lat()/s.cacheGridSize) * s.cacheGridSize,
		},
		Max: orb.Point{
			math.Ceil(bound.Max.Lon()/s.cacheGridSize) * s.cacheGridSize,
			math.Ceil(bound.Max.Lat()/s.cacheGridSize) * s.cacheGridSize,
		},
	}
}

// buildIndex groups obstacles by H3 cell. An indexing failure for a
// single obstacle degrades to the nil-cell bucket, which is always
// scanned.
func buildIndex(obstacles []*Obstacle, res int) map[h3.Cell][]*Obstacle {
	index := make(map[h3.Cell][]*Obstacle)
	for _, o := range obstacles {
		cell, err := h3.LatLngToCell(h3.NewLatLng(o.Location.Lat(), o.Location.Lon()), res)
		if err != nil {
			cell = 0
		}
		index[cell] = append(index[cell], o)
	}
	return index
}

// candidatesNear returns obstacles in the H3 cells within radiusMeters
// of center, falling back to a full scan when cell math fails.
func (sn *snapshot) candidatesNear(center orb.Point, radiusMeters float64, res int, edgeMeters float64) []*Obstacle {
	origin, err := h3.LatLngToCell(h3.NewLatLng(center.Lat(), center.Lon()), res)
	if err != nil {
		return sn.obstacles
	}

	rings := int(radiusMeters/edgeMeters) + 2
	cells, err := h3.GridDisk(origin, rings)
	if err != nil {
		return sn.obstacles
	}

	var candidates []*Obstacle
	for _, cell := range cells {
		candidates = append(candidates, sn.index[cell]...)
	}
	// Obstacles whose cell could not be computed at build time.
	candidates = append(candidates, sn.index[0]...)
	return candidates
}
