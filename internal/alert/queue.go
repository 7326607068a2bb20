// Package alert turns live obstacle observations into spoken proximity
// warnings. Observations flow observed -> relevance-checked ->
// dropped|queued -> spoken|superseded|expired.
package alert

import (
	"time"

	"github.com/stepfree/stepfree/internal/obstacle"
)

// Priority tiers. Lower is more urgent; ties break by distance.
const (
	tierImmediate = 1
	tierNear      = 2
	tierApproach  = 3
	tierAmbient   = 4
)

// Distance tier boundaries in meters.
const (
	immediateDistance = 5.0
	nearDistance      = 15.0
	approachDistance  = 30.0
)

// item is a queued announcement candidate.
type item struct {
	obstacle   *obstacle.Obstacle
	distance   float64
	priority   int
	enqueuedAt time.Time
	index      int
}

// priorityFor maps distance to a tier and promotes one tier for
// blocking or high severity.
func priorityFor(distanceMeters float64, severity obstacle.Severity) int {
	tier := tierAmbient
	switch {
	case distanceMeters <= immediateDistance:
		tier = tierImmediate
	case distanceMeters <= nearDistance:
		tier = tierNear
	case distanceMeters <= approachDistance:
		tier = tierApproach
	}

	if severity == obstacle.SeverityBlocking || severity == obstacle.SeverityHigh {
		tier--
	}
	if tier < tierImmediate {
		tier = tierImmediate
	}
	return tier
}

// alertHeap is a binary heap keyed by (priority, distance). It must
// only be manipulated through container/heap.
type alertHeap []*item

func (h alertHeap) Len() int { return len(h) }

func (h alertHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].distance < h[j].distance
}

func (h alertHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *alertHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *alertHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}
