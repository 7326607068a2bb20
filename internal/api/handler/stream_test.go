package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/api/handler"
	"github.com/stepfree/stepfree/internal/api/models"
	"github.com/stepfree/stepfree/internal/featureflags"
	"github.com/stepfree/stepfree/internal/obstacle"
)

func newStreamServer(t *testing.T, flags *featureflags.Service, seed ...*obstacle.Obstacle) *httptest.Server {
	t.Helper()
	logger := zerolog.New(io.Discard)

	svc := obstacle.NewService(obstacle.ServiceConfig{
		Repository: obstacle.NewInMemoryRepository(),
		Logger:     logger,
	})
	for _, o := range seed {
		require.NoError(t, svc.Report(context.Background(), o))
	}

	h := handler.NewStreamHandler(svc, flags, logger)
	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	t.Cleanup(srv.Close)
	return srv
}

func dialStream(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStream_UtterancePushedForNearbyObstacle(t *testing.T) {
	here := orb.Point{4.8936, 52.3731}
	srv := newStreamServer(t, nil, &obstacle.Obstacle{
		ID:         "obs_flood",
		Type:       obstacle.TypeFlooding,
		Severity:   obstacle.SeverityHigh,
		Location:   here,
		ReportedAt: time.Now(),
	})

	conn := dialStream(t, srv, "deviceType=wheelchair")

	require.NoError(t, conn.WriteJSON(models.StreamClientEvent{
		Type:     models.StreamEventLocation,
		Location: &models.Point{Lat: here.Lat(), Lon: here.Lon()},
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.StreamServerEvent
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, models.StreamEventUtterance, event.Type)
	assert.Contains(t, strings.ToLower(event.Text), "flooding")
	assert.Contains(t, event.Text, "Caution")
}

func TestStream_IrrelevantObstacleNotAnnounced(t *testing.T) {
	here := orb.Point{4.8936, 52.3731}
	// Tree roots are not in the pedestrian relevance set.
	srv := newStreamServer(t, nil, &obstacle.Obstacle{
		ID:         "obs_roots",
		Type:       obstacle.TypeTreeRoots,
		Severity:   obstacle.SeverityMedium,
		Location:   here,
		ReportedAt: time.Now(),
	})

	conn := dialStream(t, srv, "deviceType=none")

	require.NoError(t, conn.WriteJSON(models.StreamClientEvent{
		Type:     models.StreamEventLocation,
		Location: &models.Point{Lat: here.Lat(), Lon: here.Lon()},
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var event models.StreamServerEvent
	err := conn.ReadJSON(&event)
	require.Error(t, err, "no utterance expected for an irrelevant obstacle")
}

func TestStream_AnnounceAllFlagBypassesRelevance(t *testing.T) {
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, flags.SetFlag(context.Background(), &featureflags.Flag{
		Key:   featureflags.FlagAnnounceAllAlerts,
		Value: true,
	}))

	here := orb.Point{4.8936, 52.3731}
	// Same obstacle the relevance test drops for a pedestrian.
	srv := newStreamServer(t, flags, &obstacle.Obstacle{
		ID:         "obs_roots",
		Type:       obstacle.TypeTreeRoots,
		Severity:   obstacle.SeverityMedium,
		Location:   here,
		ReportedAt: time.Now(),
	})

	conn := dialStream(t, srv, "deviceType=none")

	require.NoError(t, conn.WriteJSON(models.StreamClientEvent{
		Type:     models.StreamEventLocation,
		Location: &models.Point{Lat: here.Lat(), Lon: here.Lon()},
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.StreamServerEvent
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, models.StreamEventUtterance, event.Type)
	assert.Contains(t, strings.ToLower(event.Text), "tree roots")
}

func TestStream_DuplicateLocationAnnouncesOnce(t *testing.T) {
	here := orb.Point{4.8936, 52.3731}
	srv := newStreamServer(t, nil, &obstacle.Obstacle{
		ID:         "obs_con",
		Type:       obstacle.TypeConstruction,
		Severity:   obstacle.SeverityHigh,
		Location:   here,
		ReportedAt: time.Now(),
	})

	conn := dialStream(t, srv, "deviceType=walker")

	loc := models.StreamClientEvent{
		Type:     models.StreamEventLocation,
		Location: &models.Point{Lat: here.Lat(), Lon: here.Lon()},
	}
	require.NoError(t, conn.WriteJSON(loc))
	require.NoError(t, conn.WriteJSON(loc))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first models.StreamServerEvent
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, models.StreamEventUtterance, first.Type)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var second models.StreamServerEvent
	err := conn.ReadJSON(&second)
	require.Error(t, err, "duplicate location inside cooldown must not re-announce")
}

func TestStream_InvalidLocationReturnsError(t *testing.T) {
	srv := newStreamServer(t, nil)
	conn := dialStream(t, srv, "deviceType=cane")

	require.NoError(t, conn.WriteJSON(models.StreamClientEvent{Type: models.StreamEventLocation}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.StreamServerEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, models.StreamEventError, event.Type)
}
