package obstacle_test

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

	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/pkg/geo"
)

// failableRepo wraps the in-memory repository with an error switch.
type failableRepo struct {
	*obstacle.InMemoryRepository

	mu      sync.Mutex
	fail    bool
	queries int
}

func (r *failableRepo) QueryArea(ctx context.Context, bound orb.Bound) ([]*obstacle.Obstacle, error) {
	r.mu.Lock()
	r.queries++
	fail := r.fail
	r.mu.Unlock()

	if fail {
		return nil, errors.New("store down")
	}
	return r.InMemoryRepository.QueryArea(ctx, bound)
}

func (r *failableRepo) setFail(v bool) {
	r.mu.Lock()
	r.fail = v
	r.mu.Unlock()
}

func (r *failableRepo) queryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries
}

func newTestService(t *testing.T, repo obstacle.Repository) *obstacle.Service {
	t.Helper()
	return obstacle.NewService(obstacle.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
	})
}

func TestService_Near(t *testing.T) {
	repo := obstacle.NewInMemoryRepository()
	ctx := context.Background()

	center := orb.Point{4.9, 52.37}
	near := geo.Destination(center, 80, 45)
	far := geo.Destination(center, 900, 45)

	require.NoError(t, repo.Create(ctx, testObstacle("near", near)))
	require.NoError(t, repo.Create(ctx, testObstacle("far", far)))

	svc := newTestService(t, repo)

	found, err := svc.Near(ctx, center, 150)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "near", found[0].ID)
}

func TestService_SnapshotCaching(t *testing.T) {
	repo := &failableRepo{InMemoryRepository: obstacle.NewInMemoryRepository()}
	ctx := context.Background()
	center := orb.Point{4.9, 52.37}

	require.NoError(t, repo.Create(ctx, testObstacle("a", center)))

	svc := newTestService(t, repo)

	_, err := svc.Near(ctx, center, 100)
	require.NoError(t, err)
	first := repo.queryCount()

	// Same area again: served from the snapshot.
	_, err = svc.Near(ctx, center, 100)
	require.NoError(t, err)
	assert.Equal(t, first, repo.queryCount())
}

func TestService_StaleIfError(t *testing.T) {
	repo := &failableRepo{InMemoryRepository: obstacle.NewInMemoryRepository()}
	ctx := context.Background()
	center := orb.Point{4.9, 52.37}

	require.NoError(t, repo.Create(ctx, testObstacle("a", center)))

	svc := obstacle.NewService(obstacle.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   time.Nanosecond, // force refresh on every call
	})

	_, err := svc.Near(ctx, center, 100)
	require.NoError(t, err)

	// Store goes down: the expired snapshot is still served.
	repo.setFail(true)
	time.Sleep(time.Millisecond)

	found, err := svc.Near(ctx, center, 100)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestService_ErrorWithoutSnapshot(t *testing.T) {
	repo := &failableRepo{InMemoryRepository: obstacle.NewInMemoryRepository()}
	repo.setFail(true)

	svc := newTestService(t, repo)

	_, err := svc.Near(context.Background(), orb.Point{4.9, 52.37}, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, obstacle.ErrStoreUnavailable)
}

func TestService_AlongRoute(t *testing.T) {
	repo := obstacle.NewInMemoryRepository()
	ctx := context.Background()

	route := orb.LineString{{4.9, 52.37}, {4.9, 52.38}}
	onRoute := geo.Destination(orb.Point{4.9, 52.375}, 20, 90)

	require.NoError(t, repo.Create(ctx, testObstacle("on-route", onRoute)))
	require.NoError(t, repo.Create(ctx, testObstacle("elsewhere", orb.Point{5.2, 52.0})))

	svc := newTestService(t, repo)

	found := svc.AlongRoute(ctx, route, 200, 100)
	require.Len(t, found, 1)
	assert.Equal(t, "on-route", found[0].ID)
}

func TestService_AlongRoute_ToleratesStoreFailure(t *testing.T) {
	repo := &failableRepo{InMemoryRepository: obstacle.NewInMemoryRepository()}
	repo.setFail(true)

	svc := newTestService(t, repo)

	route := orb.LineString{{4.9, 52.37}, {4.9, 52.38}}
	found := svc.AlongRoute(context.Background(), route, 200, 100)
	assert.Empty(t, found)
}

func TestService_ReportInvalidatesCache(t *testing.T) {
	repo := obstacle.NewInMemoryRepository()
	ctx := context.Background()
	center := orb.Point{4.9, 52.37}

	svc := newTestService(t, repo)

	found, err := svc.Near(ctx, center, 100)
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, svc.Report(ctx, testObstacle("new", center)))

	found, err = svc.Near(ctx, center, 100)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestService_Vote(t *testing.T) {
	repo := obstacle.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testObstacle("v", orb.Point{4.9, 52.37})))

	svc := newTestService(t, repo)
	require.NoError(t, svc.Vote(ctx, "v", true))
	require.NoError(t, svc.Vote(ctx, "v", true))
	require.NoError(t, svc.Vote(ctx, "v", false))

	o, err := svc.Get(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, 2, o.Upvotes)
	assert.Equal(t, 1, o.Downvotes)
	assert.Equal(t, 1, o.VoteScore())

	assert.ErrorIs(t, svc.Vote(ctx, "missing", true), obstacle.ErrObstacleNotFound)
}
