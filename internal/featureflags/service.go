package featureflags

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL bounds how long a stored flag change can go unnoticed
	// (default: 1m).
	CacheTTL time.Duration

	// DefaultFlags override the built-in defaults, used by tests.
	DefaultFlags map[string]*Flag
}

// Service evaluates flags with a short-lived cache over the repository
// and built-in defaults underneath. All methods are safe on a nil
// receiver, which evaluates every flag to its zero value; handlers
// constructed without a flag service keep working with defaults.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults map[string]*Flag

	mu          sync.RWMutex
	cache       map[string]*Flag
	cacheExpiry time.Time
}

// NewService creates a flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}
	defaults := cfg.DefaultFlags
	if defaults == nil {
		defaults = DefaultFlags()
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		defaults: defaults,
		cache:    make(map[string]*Flag),
	}
}

// GetFlag returns the flag for key: cache first, then the repository,
// then the defaults. Unknown keys return nil.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if s == nil {
		return nil
	}
	if s.repo == nil {
		return s.defaults[key]
	}
	if flag := s.getCached(key); flag != nil {
		return flag
	}

	flag, err := s.repo.GetFlag(ctx, key)
	if err == nil {
		s.setCached(key, flag)
		return flag
	}
	if !errors.Is(err, ErrFlagNotFound) {
		s.logger.Warn().Err(err).Str("flag", key).Msg("flag lookup failed, using default")
	}

	return s.defaults[key]
}

// GetAllFlags returns every flag, with stored values layered over the
// defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	if s == nil {
		return nil
	}

	result := make(map[string]*Flag, len(s.defaults))
	for k, v := range s.defaults {
		result[k] = v
	}
	if s.repo == nil {
		return result
	}

	stored, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("flag listing failed, using defaults")
		return result
	}
	for k, v := range stored {
		result[k] = v
	}

	s.mu.Lock()
	s.cache = stored
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return result
}

// SetFlag stores one flag and refreshes the cache entry.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	flag.UpdatedAt = time.Now()
	if err := s.repo.SetFlag(ctx, flag); err != nil {
		return err
	}
	s.setCached(flag.Key, flag)
	return nil
}

// SetFlags stores multiple flags atomically.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	s.mu.Lock()
	for _, flag := range flags {
		s.cache[flag.Key] = flag
	}
	s.mu.Unlock()
	return nil
}

// InvalidateCache drops cached values so the next read hits storage.
func (s *Service) InvalidateCache() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Flag)
	s.cacheExpiry = time.Time{}
}

// IsEnabled reports whether the flag is truthy.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	if s == nil {
		return false
	}
	return s.GetFlag(ctx, key).BoolValue(false)
}

// AnnounceAllAlerts reports whether the trip stream should announce
// every obstacle type regardless of profile relevance.
func (s *Service) AnnounceAllAlerts(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagAnnounceAllAlerts)
}

// SidewalkRefinementDisabled reports whether the crossing refinement
// kill switch is on.
func (s *Service) SidewalkRefinementDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableSidewalkRefinement)
}

// ObstacleReportsDisabled reports whether community reporting and
// voting are paused.
func (s *Service) ObstacleReportsDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableObstacleReports)
}

func (s *Service) getCached(key string) *Flag {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	return s.cache[key]
}

func (s *Service) setCached(key string, flag *Flag) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = flag
	if s.cacheExpiry.Before(time.Now()) {
		s.cacheExpiry = time.Now().Add(s.cacheTTL)
	}
}
