package obstacle_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/internal/obstacle"
	"github.com/stepfree/stepfree/pkg/geo"
)

func testObstacle(id string, loc orb.Point) *obstacle.Obstacle {
	return &obstacle.Obstacle{
		ID:         id,
		Type:       obstacle.TypeBrokenPavement,
		Severity:   obstacle.SeverityMedium,
		Location:   loc,
		ReportedAt: time.Now(),
	}
}

func TestNearRoute_OnVertex(t *testing.T) {
	route := orb.LineString{{4.0, 52.0}, {4.01, 52.0}}
	o := testObstacle("obs-1", orb.Point{4.01, 52.0})

	found := obstacle.NearRoute(route, []*obstacle.Obstacle{o}, 50)
	require.Len(t, found, 1)
	assert.Equal(t, "obs-1", found[0].ID)
}

func TestNearRoute_FarOutsideBuffer(t *testing.T) {
	// 10-point polyline heading north; obstacle ~1000m east of it.
	route := make(orb.LineString, 10)
	for i := range route {
		route[i] = orb.Point{4.0, 52.0 + float64(i)*0.001}
	}
	far := geo.Destination(orb.Point{4.0, 52.005}, 1000, 90)

	found := obstacle.NearRoute(route, []*obstacle.Obstacle{testObstacle("far", far)}, 50)
	assert.Empty(t, found)
}

func TestNearRoute_WithinBuffer(t *testing.T) {
	route := orb.LineString{{4.0, 52.0}, {4.0, 52.01}}

	near := geo.Destination(orb.Point{4.0, 52.005}, 30, 90)
	edge := geo.Destination(orb.Point{4.0, 52.005}, 80, 90)

	found := obstacle.NearRoute(route, []*obstacle.Obstacle{
		testObstacle("near", near),
		testObstacle("edge", edge),
	}, 50)

	require.Len(t, found, 1)
	assert.Equal(t, "near", found[0].ID)
}

func TestNearRoute_TwoPointRoute(t *testing.T) {
	// Minimum valid route: a straight line.
	route := orb.LineString{{4.0, 52.0}, {4.01, 52.0}}
	mid := orb.Point{4.005, 52.0}

	found := obstacle.NearRoute(route, []*obstacle.Obstacle{testObstacle("mid", mid)}, 50)
	assert.Len(t, found, 1)
}

func TestNearRoute_ZeroLengthSegment(t *testing.T) {
	// Repeated vertex must not divide by zero.
	route := orb.LineString{{4.0, 52.0}, {4.0, 52.0}, {4.01, 52.0}}
	o := testObstacle("obs", orb.Point{4.0, 52.0})

	found := obstacle.NearRoute(route, []*obstacle.Obstacle{o}, 50)
	assert.Len(t, found, 1)
}

func TestNearRoute_DeduplicatesByID(t *testing.T) {
	route := orb.LineString{{4.0, 52.0}, {4.01, 52.0}}
	a := testObstacle("dup", orb.Point{4.002, 52.0})
	b := testObstacle("dup", orb.Point{4.008, 52.0})

	found := obstacle.NearRoute(route, []*obstacle.Obstacle{a, b}, 50)
	assert.Len(t, found, 1)
}

func TestNearRoute_DefaultBuffer(t *testing.T) {
	route := orb.LineString{{4.0, 52.0}, {4.0, 52.01}}
	near := geo.Destination(orb.Point{4.0, 52.005}, 40, 90)

	// Buffer <= 0 falls back to the 50m default.
	found := obstacle.NearRoute(route, []*obstacle.Obstacle{testObstacle("n", near)}, 0)
	assert.Len(t, found, 1)
}

func TestMergeByID(t *testing.T) {
	lists := make([][]*obstacle.Obstacle, 3)
	for i := range lists {
		lists[i] = []*obstacle.Obstacle{
			testObstacle("shared", orb.Point{4.0, 52.0}),
			testObstacle(fmt.Sprintf("unique-%d", i), orb.Point{4.0, 52.0}),
		}
	}

	merged := obstacle.MergeByID(lists...)
	assert.Len(t, merged, 4)
	assert.Equal(t, "shared", merged[0].ID)
}
