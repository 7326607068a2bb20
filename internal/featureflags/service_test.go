package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/featureflags"
)

func newService(repo featureflags.Repository, ttl time.Duration) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   ttl,
	})
}

func TestService_DefaultsAllOff(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), time.Minute)
	ctx := context.Background()

	assert.False(t, svc.AnnounceAllAlerts(ctx))
	assert.False(t, svc.SidewalkRefinementDisabled(ctx))
	assert.False(t, svc.ObstacleReportsDisabled(ctx))
}

func TestService_SetFlagTakesEffect(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagDisableObstacleReports,
		Value: true,
	}))

	assert.True(t, svc.ObstacleReportsDisabled(ctx))
}

func TestService_SetFlagsAtomic(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), time.Minute)
	ctx := context.Background()

	require.NoError(t, svc.SetFlags(ctx, []*featureflags.Flag{
		{Key: featureflags.FlagAnnounceAllAlerts, Value: true},
		{Key: featureflags.FlagDisableSidewalkRefinement, Value: true},
	}))

	assert.True(t, svc.AnnounceAllAlerts(ctx))
	assert.True(t, svc.SidewalkRefinementDisabled(ctx))
}

func TestService_InvalidateCachePicksUpStoreChange(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	// Long TTL so only invalidation can refresh.
	svc := newService(repo, time.Hour)
	ctx := context.Background()

	assert.False(t, svc.AnnounceAllAlerts(ctx))

	// Flip the flag behind the service's back, as an operator would
	// through the database.
	require.NoError(t, repo.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagAnnounceAllAlerts,
		Value: true,
	}))
	assert.False(t, svc.AnnounceAllAlerts(ctx), "cached value holds until invalidation")

	svc.InvalidateCache()
	assert.True(t, svc.AnnounceAllAlerts(ctx))
}

func TestService_FallsBackToDefaultsOnEmptyStore(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(make(map[string]*featureflags.Flag))
	svc := newService(repo, time.Minute)
	ctx := context.Background()

	flag := svc.GetFlag(ctx, featureflags.FlagDisableObstacleReports)
	require.NotNil(t, flag)
	assert.False(t, flag.BoolValue(true))

	assert.Nil(t, svc.GetFlag(ctx, "no_such_flag"))
}

func TestService_GetAllFlagsMergesStoreOverDefaults(t *testing.T) {
	repo := featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
		featureflags.FlagAnnounceAllAlerts: {
			Key:   featureflags.FlagAnnounceAllAlerts,
			Value: true,
		},
	})
	svc := newService(repo, time.Minute)

	flags := svc.GetAllFlags(context.Background())
	require.Contains(t, flags, featureflags.FlagAnnounceAllAlerts)
	require.Contains(t, flags, featureflags.FlagDisableSidewalkRefinement)
	assert.True(t, flags[featureflags.FlagAnnounceAllAlerts].BoolValue(false))
	assert.False(t, flags[featureflags.FlagDisableSidewalkRefinement].BoolValue(true))
}

func TestService_NilServiceEvaluatesToZero(t *testing.T) {
	var svc *featureflags.Service
	ctx := context.Background()

	assert.False(t, svc.AnnounceAllAlerts(ctx))
	assert.False(t, svc.SidewalkRefinementDisabled(ctx))
	assert.Nil(t, svc.GetFlag(ctx, featureflags.FlagAnnounceAllAlerts))
}

func TestFlag_BoolValue(t *testing.T) {
	assert.True(t, (&featureflags.Flag{Value: true}).BoolValue(false))
	assert.False(t, (&featureflags.Flag{Value: false}).BoolValue(true))
	// JSON decodes numbers as float64.
	assert.True(t, (&featureflags.Flag{Value: float64(1)}).BoolValue(false))
	assert.False(t, (&featureflags.Flag{Value: "on"}).BoolValue(false), "non-boolean falls back to default")

	var nilFlag *featureflags.Flag
	assert.True(t, nilFlag.BoolValue(true))
}

func TestInMemoryRepository_DeleteFlag(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.DeleteFlag(ctx, featureflags.FlagAnnounceAllAlerts))

	_, err := repo.GetFlag(ctx, featureflags.FlagAnnounceAllAlerts)
	assert.True(t, errors.Is(err, featureflags.ErrFlagNotFound))

	assert.True(t, errors.Is(repo.DeleteFlag(ctx, "no_such_flag"), featureflags.ErrFlagNotFound))
}
