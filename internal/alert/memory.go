package alert

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/stepfree/stepfree/pkg/geo"
)

// MemoryConfig holds configuration for announcement memory.
type MemoryConfig struct {
	// MaxEntries bounds the memory; oldest entries are evicted first
	// (default: 50).
	MaxEntries int

	// Cooldown is the window in which a re-observation at a similar
	// distance is suppressed (default: 20s).
	Cooldown time.Duration

	// SimilarDistanceMeters is the delta within which two observations
	// count as the same distance (default: 2).
	SimilarDistanceMeters float64

	// ApproachDeltaMeters is how much closer the user must have come
	// for a re-announcement inside the cooldown (default: 10).
	ApproachDeltaMeters float64

	// MaxAge expires entries by absolute age (default: 2m).
	MaxAge time.Duration

	// FarAwayMeters drops entries for obstacles this far from the
	// user's position during movement pruning (default: 100).
	FarAwayMeters float64
}

func (c *MemoryConfig) applyDefaults() {
	if c.MaxEntries == 0 {
		c.MaxEntries = 50
	}
	if c.Cooldown == 0 {
		c.Cooldown = 20 * time.Second
	}
	if c.SimilarDistanceMeters == 0 {
		c.SimilarDistanceMeters = 2
	}
	if c.ApproachDeltaMeters == 0 {
		c.ApproachDeltaMeters = 10
	}
	if c.MaxAge == 0 {
		c.MaxAge = 2 * time.Minute
	}
	if c.FarAwayMeters == 0 {
		c.FarAwayMeters = 100
	}
}

type memoryEntry struct {
	obstacleID  string
	announcedAt time.Time
	distance    float64
	location    orb.Point
}

// Memory remembers recent announcements so the same obstacle is not
// repeated at the traveller every few seconds. Not safe for concurrent
// use; the processor serializes access.
type Memory struct {
	cfg     MemoryConfig
	entries map[string]*memoryEntry
	order   []string // insertion order for oldest-first eviction
}

// NewMemory creates announcement memory.
func NewMemory(cfg MemoryConfig) *Memory {
	cfg.applyDefaults()
	return &Memory{
		cfg:     cfg,
		entries: make(map[string]*memoryEntry),
	}
}

// ShouldAnnounce reports whether an observation of the obstacle at the
// given distance warrants a new announcement. A re-observation inside
// the cooldown is suppressed unless the user has moved meaningfully
// closer.
func (m *Memory) ShouldAnnounce(obstacleID string, distanceMeters float64, now time.Time) bool {
	m.pruneExpired(now)

	entry, ok := m.entries[obstacleID]
	if !ok {
		return true
	}
	if now.Sub(entry.announcedAt) > m.cfg.Cooldown {
		return true
	}
	// Meaningful approach overrides the cooldown.
	return entry.distance-distanceMeters >= m.cfg.ApproachDeltaMeters
}

// Record stores an announcement, evicting the oldest entry when full.
func (m *Memory) Record(obstacleID string, distanceMeters float64, location orb.Point, now time.Time) {
	if entry, ok := m.entries[obstacleID]; ok {
		entry.announcedAt = now
		entry.distance = distanceMeters
		entry.location = location
		m.moveToBack(obstacleID)
		return
	}

	for len(m.entries) >= m.cfg.MaxEntries && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}

	m.entries[obstacleID] = &memoryEntry{
		obstacleID:  obstacleID,
		announcedAt: now,
		distance:    distanceMeters,
		location:    location,
	}
	m.order = append(m.order, obstacleID)
}

// PruneByMovement drops entries for obstacles now far away from the
// user. Called when the user's position moves past the movement
// threshold; a fresh area should not inherit stale suppressions.
func (m *Memory) PruneByMovement(userLocation orb.Point) {
	kept := m.order[:0]
	for _, id := range m.order {
		entry := m.entries[id]
		if geo.Distance(userLocation, entry.location) > m.cfg.FarAwayMeters {
			delete(m.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

// Clear drops all entries.
func (m *Memory) Clear() {
	m.entries = make(map[string]*memoryEntry)
	m.order = nil
}

// Len returns the number of remembered announcements.
func (m *Memory) Len() int {
	return len(m.entries)
}

func (m *Memory) pruneExpired(now time.Time) {
	kept := m.order[:0]
	for _, id := range m.order {
		entry := m.entries[id]
		if now.Sub(entry.announcedAt) > m.cfg.MaxAge {
			delete(m.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

func (m *Memory) moveToBack(obstacleID string) {
	for i, id := range m.order {
		if id == obstacleID {
			m.order = append(append(m.order[:i:i], m.order[i+1:]...), obstacleID)
			return
		}
	}
}
