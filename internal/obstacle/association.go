package obstacle

import (
	"github.com/paulmach/orb"

	"github.com/stepfree/stepfree/pkg/geo"
)

// DefaultBufferMeters is the default perpendicular distance within
// which an obstacle counts as being on a route.
const DefaultBufferMeters = 50

// NearRoute returns the obstacles whose minimum distance to the route
// polyline is at most bufferMeters, deduplicated by id and in input
// order. Routes with fewer than two points and zero-length segments
// are handled by pkg/geo. A non-positive buffer uses the default.
func NearRoute(route orb.LineString, obstacles []*Obstacle, bufferMeters float64) []*Obstacle {
	if bufferMeters <= 0 {
		bufferMeters = DefaultBufferMeters
	}
	if len(route) == 0 || len(obstacles) == 0 {
		return nil
	}

	// Cheap bound prefilter before per-segment projection.
	bound := geo.PadBound(route.Bound(), bufferMeters)

	var result []*Obstacle
	seen := make(map[string]struct{}, len(obstacles))

	for _, o := range obstacles {
		if _, dup := seen[o.ID]; dup {
			continue
		}
		if !bound.Contains(o.Location) {
			continue
		}
		if geo.PointToLine(o.Location, route) <= bufferMeters {
			seen[o.ID] = struct{}{}
			result = append(result, o)
		}
	}
	return result
}

// MergeByID merges obstacle lists from multiple sampled queries,
// keeping the first occurrence of each id.
func MergeByID(lists ...[]*Obstacle) []*Obstacle {
	var merged []*Obstacle
	seen := make(map[string]struct{})

	for _, list := range lists {
		for _, o := range list {
			if _, dup := seen[o.ID]; dup {
				continue
			}
			seen[o.ID] = struct{}{}
			merged = append(merged, o)
		}
	}
	return merged
}
