package geo_test

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepfree/stepfree/pkg/geo"
)

// Points around Amsterdam Centraal, chosen so expected distances are
// easy to sanity-check (1 degree latitude ~ 111.2km).
var (
	dam      = orb.Point{4.8932, 52.3731}
	centraal = orb.Point{4.9003, 52.3791}
)

func TestDistance(t *testing.T) {
	d := geo.Distance(dam, centraal)
	// Known distance Dam square to Centraal is roughly 820m.
	assert.InDelta(t, 820, d, 50)

	assert.Equal(t, 0.0, geo.Distance(dam, dam))
}

func TestPointToSegment_PerpendicularProjection(t *testing.T) {
	// Horizontal segment along a parallel; point due north of its middle.
	a := orb.Point{4.0, 52.0}
	b := orb.Point{4.1, 52.0}
	p := orb.Point{4.05, 52.01}

	d := geo.PointToSegment(p, a, b)
	// 0.01 degrees latitude ~ 1112m.
	assert.InDelta(t, 1112, d, 10)
}

func TestPointToSegment_ClampsToEndpoints(t *testing.T) {
	a := orb.Point{4.0, 52.0}
	b := orb.Point{4.1, 52.0}
	// Point beyond the b endpoint: nearest point must be b, not the
	// infinite line.
	p := orb.Point{4.2, 52.0}

	d := geo.PointToSegment(p, a, b)
	assert.InDelta(t, geo.Distance(p, b), d, 0.001)
}

func TestPointToSegment_ZeroLengthSegment(t *testing.T) {
	a := orb.Point{4.0, 52.0}
	p := orb.Point{4.0, 52.01}

	d := geo.PointToSegment(p, a, a)
	assert.InDelta(t, geo.Distance(p, a), d, 0.001)
}

func TestPointToLine(t *testing.T) {
	line := orb.LineString{
		{4.0, 52.0},
		{4.1, 52.0},
		{4.1, 52.1},
	}

	t.Run("on a vertex", func(t *testing.T) {
		assert.InDelta(t, 0, geo.PointToLine(orb.Point{4.1, 52.0}, line), 0.001)
	})

	t.Run("far away", func(t *testing.T) {
		d := geo.PointToLine(orb.Point{5.0, 53.0}, line)
		assert.Greater(t, d, 50000.0)
	})

	t.Run("two point line", func(t *testing.T) {
		two := orb.LineString{{4.0, 52.0}, {4.1, 52.0}}
		d := geo.PointToLine(orb.Point{4.05, 52.005}, two)
		assert.InDelta(t, 556, d, 10)
	})

	t.Run("empty line", func(t *testing.T) {
		assert.True(t, math.IsInf(geo.PointToLine(dam, nil), 1))
	})

	t.Run("single point line", func(t *testing.T) {
		d := geo.PointToLine(dam, orb.LineString{centraal})
		assert.InDelta(t, geo.Distance(dam, centraal), d, 0.001)
	})
}

func TestLength(t *testing.T) {
	line := orb.LineString{
		{4.0, 52.0},
		{4.0, 52.01},
		{4.0, 52.02},
	}
	// Two segments of ~1112m each.
	assert.InDelta(t, 2224, geo.Length(line), 20)

	assert.Equal(t, 0.0, geo.Length(orb.LineString{{4.0, 52.0}}))
}

func TestSample(t *testing.T) {
	// ~2224m straight line sampled every 500m.
	line := orb.LineString{
		{4.0, 52.0},
		{4.0, 52.02},
	}

	sampled := geo.Sample(line, 500)
	require.GreaterOrEqual(t, len(sampled), 5)

	// First and last vertices preserved.
	assert.Equal(t, line[0], sampled[0])
	assert.Equal(t, line[1], sampled[len(sampled)-1])

	// Interior samples are ~500m apart.
	for i := 1; i < len(sampled)-1; i++ {
		assert.InDelta(t, 500, geo.Distance(sampled[i-1], sampled[i]), 25)
	}
}

func TestSample_IntervalLongerThanLine(t *testing.T) {
	line := orb.LineString{
		{4.0, 52.0},
		{4.0, 52.001},
	}
	sampled := geo.Sample(line, 10000)
	assert.Equal(t, line, sampled)
}

func TestPadBound(t *testing.T) {
	b := orb.LineString{{4.0, 52.0}, {4.1, 52.1}}.Bound()
	padded := geo.PadBound(b, 1000)

	assert.Less(t, padded.Min.Lat(), b.Min.Lat())
	assert.Less(t, padded.Min.Lon(), b.Min.Lon())
	assert.Greater(t, padded.Max.Lat(), b.Max.Lat())
	assert.Greater(t, padded.Max.Lon(), b.Max.Lon())

	// Padding amount is ~1000m of latitude.
	assert.InDelta(t, 1000, geo.Distance(
		orb.Point{b.Min.Lon(), b.Min.Lat()},
		orb.Point{b.Min.Lon(), padded.Min.Lat()},
	), 10)
}

func TestDestination(t *testing.T) {
	// 1000m due north.
	p := geo.Destination(dam, 1000, 0)
	assert.InDelta(t, 1000, geo.Distance(dam, p), 1)
	assert.Greater(t, p.Lat(), dam.Lat())

	// 1000m due east.
	p = geo.Destination(dam, 1000, 90)
	assert.InDelta(t, 1000, geo.Distance(dam, p), 1)
	assert.Greater(t, p.Lon(), dam.Lon())
}
