package worker

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

// AreaRefresher refreshes the obstacle snapshot for a bound.
type AreaRefresher interface {
	RefreshArea(ctx context.Context, bound orb.Bound) error
}

// CacheSweeper drops expired entries from the directions cache and
// reports how many were removed.
type CacheSweeper interface {
	SweepExpired() int
}

// RefreshJob keeps obstacle snapshots warm for the configured targets.
type RefreshJob struct {
	config RefreshConfig
	logger zerolog.Logger

	obstacles AreaRefresher
	routes    CacheSweeper // optional, nil skips cache sweeping

	metricsMu sync.RWMutex
	metrics   RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	TotalRuns       int64
	AreasRefreshed  int64
	AreasFailed     int64
	RouteCacheSwept int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config          RefreshConfig
	Logger          zerolog.Logger
	ObstacleService AreaRefresher
	RoutingService  CacheSweeper
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultRefreshConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:    config,
		logger:    cfg.Logger,
		obstacles: cfg.ObstacleService,
		routes:    cfg.RoutingService,
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalAreas int
	Successful int
	Failed     int
	Errors     []RefreshError
	SweptCache int
}

// RefreshError represents a failed area refresh.
type RefreshError struct {
	Target string
	Center orb.Point
	Error  string
}

// Run executes the refresh job for all configured targets.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:  startTime,
		TotalAreas: j.config.TotalAreas(),
	}

	j.logger.Info().
		Int("total_areas", result.TotalAreas).
		Int("concurrency", j.config.Concurrency).
		Msg("starting obstacle refresh job")

	areas := j.config.allAreas()

	areasChan := make(chan refreshArea, len(areas))
	resultsChan := make(chan areaResult, len(areas))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, areasChan, resultsChan)
		}()
	}

	for _, a := range areas {
		areasChan <- a
	}
	close(areasChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for ar := range resultsChan {
		if ar.err == nil {
			result.Successful++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{
				Target: ar.area.target,
				Center: ar.area.center,
				Error:  ar.err.Error(),
			})
		}
	}

	if j.config.SweepRouteCache && j.routes != nil {
		result.SweptCache = j.routes.SweepExpired()
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("swept_cache", result.SweptCache).
		Msg("obstacle refresh job completed")

	return result
}

type areaResult struct {
	area refreshArea
	err  error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, areas <-chan refreshArea, results chan<- areaResult) {
	for area := range areas {
		select {
		case <-ctx.Done():
			return
		default:
			results <- areaResult{area: area, err: j.refreshOne(ctx, area)}
		}
	}
}

func (j *RefreshJob) refreshOne(ctx context.Context, area refreshArea) error {
	if j.obstacles == nil {
		return nil
	}

	areaCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	if err := j.obstacles.RefreshArea(areaCtx, area.bound); err != nil {
		j.logger.Warn().
			Err(err).
			Str("target", area.target).
			Float64("lat", area.center.Lat()).
			Float64("lon", area.center.Lon()).
			Msg("area refresh failed")
		return err
	}
	return nil
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metricsMu.Lock()
	defer j.metricsMu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.AreasRefreshed += int64(result.Successful)
	j.metrics.AreasFailed += int64(result.Failed)
	j.metrics.RouteCacheSwept += int64(result.SweptCache)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metricsMu.RLock()
	defer j.metricsMu.RUnlock()
	return j.metrics
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"areas_refreshed":   m.AreasRefreshed,
		"areas_failed":      m.AreasFailed,
		"route_cache_swept": m.RouteCacheSwept,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
