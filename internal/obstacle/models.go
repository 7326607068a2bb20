// Package obstacle provides the community-reported obstacle domain:
// models, storage, the cached area snapshot and route association.
package obstacle

import (
	"errors"
	"time"

	"github.com/paulmach/orb"
)

// Repository errors.
var (
	ErrObstacleNotFound = errors.New("obstacle not found")
	ErrStoreUnavailable = errors.New("obstacle store unavailable")
)

// Type categorizes a reported obstacle.
type Type string

const (
	TypeVendorBlocking Type = "vendor_blocking"
	TypeVehicleParked  Type = "vehicle_parked"
	TypeStairsNoRamp   Type = "stairs_no_ramp"
	TypeNarrowPassage  Type = "narrow_passage"
	TypeBrokenPavement Type = "broken_pavement"
	TypeFlooding       Type = "flooding"
	TypeConstruction   Type = "construction"
	TypeUtilityPole    Type = "utility_pole"
	TypeTreeRoots      Type = "tree_roots"
	TypeNoSidewalk     Type = "no_sidewalk"
	TypeSteepSlope     Type = "steep_slope"
	TypeOther          Type = "other"
)

// AllTypes lists every obstacle type. Relevance tables and API enums
// are validated against this list.
func AllTypes() []Type {
	return []Type{
		TypeVendorBlocking,
		TypeVehicleParked,
		TypeStairsNoRamp,
		TypeNarrowPassage,
		TypeBrokenPavement,
		TypeFlooding,
		TypeConstruction,
		TypeUtilityPole,
		TypeTreeRoots,
		TypeNoSidewalk,
		TypeSteepSlope,
		TypeOther,
	}
}

// Valid reports whether t is a known obstacle type.
func (t Type) Valid() bool {
	switch t {
	case TypeVendorBlocking, TypeVehicleParked, TypeStairsNoRamp,
		TypeNarrowPassage, TypeBrokenPavement, TypeFlooding,
		TypeConstruction, TypeUtilityPole, TypeTreeRoots,
		TypeNoSidewalk, TypeSteepSlope, TypeOther:
		return true
	}
	return false
}

// Severity grades how much an obstacle impedes passage.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityBlocking Severity = "blocking"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityBlocking:
		return true
	}
	return false
}

// Rank orders severities for comparisons (low = 0 .. blocking = 3).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityBlocking:
		return 3
	}
	return 0
}

// TimePattern describes when an obstacle is present.
type TimePattern string

const (
	PatternPermanent TimePattern = "permanent"
	PatternTimeOfDay TimePattern = "time_of_day"
	PatternWeekend   TimePattern = "weekend"
)

// Side identifies which side of the street an obstacle occupies.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// SideInfo carries side-of-street metadata used by sidewalk refinement.
type SideInfo struct {
	Side           Side
	HasAlternative bool // a passable sidewalk exists on the other side
}

// Obstacle is a community-reported physical obstacle. Immutable from
// the core's perspective during a scoring pass.
type Obstacle struct {
	ID          string
	Type        Type
	Severity    Severity
	Location    orb.Point
	Description string
	ReportedAt  time.Time
	Upvotes     int
	Downvotes   int
	Verified    bool
	TimePattern *TimePattern
	Side        *SideInfo
}

// VoteScore is the net community validation signal.
func (o *Obstacle) VoteScore() int {
	return o.Upvotes - o.Downvotes
}

// Age returns how long ago the obstacle was reported.
func (o *Obstacle) Age(now time.Time) time.Duration {
	return now.Sub(o.ReportedAt)
}
