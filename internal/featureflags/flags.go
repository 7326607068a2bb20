// Package featureflags provides runtime kill switches and toggles.
// Flags live in the obstacle store's database and take effect within
// the service cache TTL, without a redeploy.
package featureflags

import "time"

// Well-known flag keys.
const (
	// FlagAnnounceAllAlerts makes the trip stream announce every known
	// obstacle type, bypassing profile relevance filtering.
	FlagAnnounceAllAlerts = "announce_all_alerts"

	// FlagDisableSidewalkRefinement turns off the opposite-side
	// crossing refinement on route computation.
	FlagDisableSidewalkRefinement = "disable_sidewalk_refinement"

	// FlagDisableObstacleReports pauses community obstacle reporting
	// and voting, for shedding abusive write load.
	FlagDisableObstacleReports = "disable_obstacle_reports"
)

// Flag is one runtime toggle with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// BoolValue returns the flag value as a boolean, or the default when
// the flag is nil or not boolean. JSON numbers count as truthy when
// non-zero.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return defaultValue
	}
}

// DefaultFlags returns the built-in flag set. Every switch ships off.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	flags := make(map[string]*Flag, 3)
	for _, key := range []string{
		FlagAnnounceAllAlerts,
		FlagDisableSidewalkRefinement,
		FlagDisableObstacleReports,
	} {
		flags[key] = &Flag{Key: key, Value: false, UpdatedAt: now}
	}
	return flags
}
