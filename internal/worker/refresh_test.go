package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/worker"
)

type fakeRefresher struct {
	mu     sync.Mutex
	calls  int
	bounds []orb.Bound
	err    error
}

func (f *fakeRefresher) RefreshArea(_ context.Context, bound orb.Bound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.bounds = append(f.bounds, bound)
	return f.err
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSweeper struct {
	swept int
}

func (f *fakeSweeper) SweepExpired() int { return f.swept }

func singleTargetConfig(centers ...orb.Point) worker.RefreshConfig {
	return worker.RefreshConfig{
		Targets: []worker.RefreshTarget{
			{Name: "Test", Priority: 1, RadiusMeters: 500, Centers: centers},
		},
		Concurrency: 1,
		Timeout:     time.Second,
	}
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.SweepRouteCache)
	assert.NotEmpty(t, cfg.Targets)
}

func TestDefaultRefreshTargets(t *testing.T) {
	targets := worker.DefaultRefreshTargets()

	require.GreaterOrEqual(t, len(targets), 4)

	var amsterdam *worker.RefreshTarget
	for i := range targets {
		if targets[i].Name == "Amsterdam" {
			amsterdam = &targets[i]
			break
		}
	}
	require.NotNil(t, amsterdam, "Amsterdam should be in targets")
	assert.Equal(t, 1, amsterdam.Priority)
	assert.GreaterOrEqual(t, len(amsterdam.Centers), 2)
}

func TestRefreshConfig_TotalAreas(t *testing.T) {
	cfg := worker.RefreshConfig{
		Targets: []worker.RefreshTarget{
			{Name: "A", Centers: []orb.Point{{1, 1}, {2, 2}}},
			{Name: "B", Centers: []orb.Point{{3, 3}}},
		},
	}

	assert.Equal(t, 3, cfg.TotalAreas())
}

func TestRefreshJob_Run(t *testing.T) {
	refresher := &fakeRefresher{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:          singleTargetConfig(orb.Point{4.90, 52.37}, orb.Point{4.48, 51.92}),
		Logger:          zerolog.Nop(),
		ObstacleService: refresher,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalAreas)
	assert.Equal(t, 2, result.Successful)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 2, refresher.callCount())

	// Each bound covers its center.
	for _, b := range refresher.bounds {
		assert.True(t, b.Max.Lon() > b.Min.Lon())
		assert.True(t, b.Max.Lat() > b.Min.Lat())
	}
}

func TestRefreshJob_Run_CollectsErrors(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("store unavailable")}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:          singleTargetConfig(orb.Point{4.90, 52.37}),
		Logger:          zerolog.Nop(),
		ObstacleService: refresher,
	})

	result := job.Run(context.Background())

	assert.Zero(t, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Test", result.Errors[0].Target)
	assert.Contains(t, result.Errors[0].Error, "store unavailable")
}

func TestRefreshJob_Run_SweepsRouteCache(t *testing.T) {
	cfg := singleTargetConfig(orb.Point{4.90, 52.37})
	cfg.SweepRouteCache = true

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:          cfg,
		Logger:          zerolog.Nop(),
		ObstacleService: &fakeRefresher{},
		RoutingService:  &fakeSweeper{swept: 7},
	})

	result := job.Run(context.Background())
	assert.Equal(t, 7, result.SweptCache)
}

func TestRefreshJob_Run_NoServices(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: singleTargetConfig(orb.Point{4.90, 52.37}),
		Logger: zerolog.Nop(),
	})

	result := job.Run(context.Background())

	require.NotNil(t, result)
	assert.Equal(t, 1, result.TotalAreas)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestRefreshJob_Run_WithConcurrency(t *testing.T) {
	centers := make([]orb.Point, 10)
	for i := range centers {
		centers[i] = orb.Point{4.0 + float64(i)*0.1, 52.0 + float64(i)*0.1}
	}

	cfg := singleTargetConfig(centers...)
	cfg.Concurrency = 3

	refresher := &fakeRefresher{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:          cfg,
		Logger:          zerolog.Nop(),
		ObstacleService: refresher,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 10, result.TotalAreas)
	assert.Equal(t, 10, result.Successful)
	assert.Equal(t, 10, refresher.callCount())
}

func TestRefreshJob_Run_ContextCancellation(t *testing.T) {
	centers := make([]orb.Point, 100)
	for i := range centers {
		centers[i] = orb.Point{4.0 + float64(i)*0.01, 52.0 + float64(i)*0.01}
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:          singleTargetConfig(centers...),
		Logger:          zerolog.Nop(),
		ObstacleService: &fakeRefresher{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	// Completes without processing everything.
	require.NotNil(t, result)
}

func TestRefreshJob_GetMetrics(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:          singleTargetConfig(orb.Point{4.90, 52.37}),
		Logger:          zerolog.Nop(),
		ObstacleService: &fakeRefresher{},
	})

	_ = job.Run(context.Background())

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(1), metrics.AreasRefreshed)
	assert.NotZero(t, metrics.LastRunAt)
	assert.Greater(t, metrics.LastRunDuration, time.Duration(0))
}

func TestRefreshJob_MetricsSnapshot(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:          singleTargetConfig(orb.Point{4.90, 52.37}),
		Logger:          zerolog.Nop(),
		ObstacleService: &fakeRefresher{},
	})

	_ = job.Run(context.Background())

	snapshot := job.MetricsSnapshot()

	assert.Contains(t, snapshot, "total_runs")
	assert.Contains(t, snapshot, "areas_refreshed")
	assert.Contains(t, snapshot, "areas_failed")
	assert.Contains(t, snapshot, "last_run_at")
	assert.Contains(t, snapshot, "last_run_duration")
}

func TestNewRefreshJob_DefaultConfig(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{},
		Logger: zerolog.Nop(),
	})

	metrics := job.GetMetrics()
	assert.Equal(t, int64(0), metrics.TotalRuns)
}
