// Package geo provides geometric primitives for route and obstacle
// computations: haversine distances, point-to-polyline projection,
// interval sampling and bound padding. All functions are pure.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const earthRadiusMeters = 6371000

// Distance returns the haversine distance between two points in meters.
func Distance(a, b orb.Point) float64 {
	return orbgeo.DistanceHaversine(a, b)
}

// PointToSegment returns the minimum distance in meters from p to the
// segment [a, b]. The point is projected perpendicularly onto the
// segment in a local equirectangular frame, clamped to the segment
// endpoints. A zero-length segment falls back to the direct distance.
func PointToSegment(p, a, b orb.Point) float64 {
	// Local planar frame centered on the segment start. Longitude is
	// scaled by cos(lat) so meters are comparable on both axes.
	latScale := math.Cos(a.Lat() * math.Pi / 180)

	ax, ay := 0.0, 0.0
	bx := (b.Lon() - a.Lon()) * latScale
	by := b.Lat() - a.Lat()
	px := (p.Lon() - a.Lon()) * latScale
	py := p.Lat() - a.Lat()

	dx := bx - ax
	dy := by - ay
	segLenSq := dx*dx + dy*dy
	if segLenSq == 0 {
		return Distance(p, a)
	}

	t := ((px-ax)*dx + (py-ay)*dy) / segLenSq
	t = math.Max(0, math.Min(1, t))

	proj := orb.Point{
		a.Lon() + t*(b.Lon()-a.Lon()),
		a.Lat() + t*(b.Lat()-a.Lat()),
	}
	return Distance(p, proj)
}

// PointToLine returns the minimum distance in meters from p to any
// segment of line. A single-point line is treated as a point; an empty
// line returns +Inf.
func PointToLine(p orb.Point, line orb.LineString) float64 {
	switch len(line) {
	case 0:
		return math.Inf(1)
	case 1:
		return Distance(p, line[0])
	}

	min := math.Inf(1)
	for i := 1; i < len(line); i++ {
		if d := PointToSegment(p, line[i-1], line[i]); d < min {
			min = d
		}
	}
	return min
}

// Length returns the total length of line in meters.
func Length(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += Distance(line[i-1], line[i])
	}
	return total
}

// Sample returns points spaced approximately intervalMeters apart along
// line, always including the first and last vertex. A non-positive
// interval returns the line unchanged.
func Sample(line orb.LineString, intervalMeters float64) orb.LineString {
	if len(line) == 0 {
		return nil
	}
	if intervalMeters <= 0 {
		return line
	}

	sampled := orb.LineString{line[0]}
	cursor := line[0]
	need := intervalMeters

	for i := 1; i < len(line); i++ {
		segDist := Distance(cursor, line[i])

		for segDist >= need && segDist > 0 {
			cursor = Interpolate(cursor, line[i], need/segDist)
			sampled = append(sampled, cursor)
			segDist = Distance(cursor, line[i])
			need = intervalMeters
		}

		need -= segDist
		cursor = line[i]
	}

	last := line[len(line)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}
	return sampled
}

// PadBound expands b by meters on every side.
func PadBound(b orb.Bound, meters float64) orb.Bound {
	dLat := meters / earthRadiusMeters * 180 / math.Pi
	midLat := (b.Min.Lat() + b.Max.Lat()) / 2
	latScale := math.Cos(midLat * math.Pi / 180)
	if latScale < 0.01 {
		latScale = 0.01
	}
	dLon := dLat / latScale

	return orb.Bound{
		Min: orb.Point{b.Min.Lon() - dLon, b.Min.Lat() - dLat},
		Max: orb.Point{b.Max.Lon() + dLon, b.Max.Lat() + dLat},
	}
}

// Destination returns the point reached by travelling distanceMeters
// from p on the given initial bearing (degrees clockwise from north).
func Destination(p orb.Point, distanceMeters, bearingDeg float64) orb.Point {
	lat1 := p.Lat() * math.Pi / 180
	lon1 := p.Lon() * math.Pi / 180
	brng := bearingDeg * math.Pi / 180
	ad := distanceMeters / earthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ad) + math.Cos(lat1)*math.Sin(ad)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(ad)*math.Cos(lat1),
		math.Cos(ad)-math.Sin(lat1)*math.Sin(lat2),
	)

	return orb.Point{lon2 * 180 / math.Pi, lat2 * 180 / math.Pi}
}

// Interpolate returns the point at fraction t along the segment [a, b].
func Interpolate(a, b orb.Point, t float64) orb.Point {
	return orb.Point{
		a.Lon() + t*(b.Lon()-a.Lon()),
		a.Lat() + t*(b.Lat()-a.Lat()),
	}
}
