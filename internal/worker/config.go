// Package worker provides background obstacle snapshot refresh for the
// StepFree API.
package worker

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/stepfree/stepfree/pkg/geo"
)

// RefreshTarget is a geographic area whose obstacle snapshot is kept
// warm so route computations rarely pay a cold fetch.
type RefreshTarget struct {
	// Name is the human-readable name of the target.
	Name string

	// Centers are points around which obstacle snapshots are
	// refreshed. Typically busy pedestrian areas and transit hubs.
	Centers []orb.Point

	// RadiusMeters is the half-extent of the refresh area around each
	// center (default: 1000).
	RadiusMeters float64

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the obstacle refresh job.
type RefreshConfig struct {
	// Targets are the areas to refresh. If empty, DefaultRefreshTargets.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout per refresh operation.
	// Default: 30 seconds
	Timeout time.Duration

	// SweepRouteCache drops expired directions cache entries during
	// the run. Default: true
	SweepRouteCache bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:         DefaultRefreshTargets(),
		Concurrency:     3,
		Timeout:         30 * time.Second,
		SweepRouteCache: true,
	}
}

// DefaultRefreshTargets covers the Amsterdam pedestrian core plus the
// other Randstad city centres where report density is highest.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{
			Name:         "Amsterdam",
			Priority:     1,
			RadiusMeters: 1500,
			Centers: []orb.Point{
				{4.9003, 52.3791}, // Amsterdam Centraal
				{4.8936, 52.3731}, // Dam
				{4.8833, 52.3664}, // Leidseplein
				{4.8919, 52.3386}, // Amsterdam Zuid
			},
		},
		{
			Name:         "Rotterdam",
			Priority:     1,
			RadiusMeters: 1500,
			Centers: []orb.Point{
				{4.4777, 51.9244}, // Rotterdam Centraal
				{4.4874, 51.9062}, // Zuidplein
			},
		},
		{
			Name:         "Den Haag",
			Priority:     2,
			RadiusMeters: 1200,
			Centers: []orb.Point{
				{4.3007, 52.0705}, // Den Haag Centraal
				{4.2828, 52.1024}, // Scheveningen
			},
		},
		{
			Name:         "Utrecht",
			Priority:     2,
			RadiusMeters: 1200,
			Centers: []orb.Point{
				{5.1102, 52.0894}, // Utrecht Centraal
			},
		},
	}
}

// refreshArea is one unit of work: a bound to refresh.
type refreshArea struct {
	target string
	center orb.Point
	bound  orb.Bound
}

// allAreas expands the targets into refresh areas, ordered by priority.
func (c RefreshConfig) allAreas() []refreshArea {
	targets := make([]RefreshTarget, len(c.Targets))
	copy(targets, c.Targets)

	// Stable priority order without mutating the config.
	for i := 1; i < len(targets); i++ {
		for j := i; j > 0 && targets[j].Priority < targets[j-1].Priority; j-- {
			targets[j], targets[j-1] = targets[j-1], targets[j]
		}
	}

	var areas []refreshArea
	for _, t := range targets {
		radius := t.RadiusMeters
		if radius == 0 {
			radius = 1000
		}
		for _, center := range t.Centers {
			areas = append(areas, refreshArea{
				target: t.Name,
				center: center,
				bound:  geo.PadBound(orb.Bound{Min: center, Max: center}, radius),
			})
		}
	}
	return areas
}

// TotalAreas returns the number of areas the job will refresh.
func (c RefreshConfig) TotalAreas() int {
	total := 0
	for _, t := range c.Targets {
		total += len(t.Centers)
	}
	return total
}
