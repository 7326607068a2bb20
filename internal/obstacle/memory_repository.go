package obstacle

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Intended for testing and local development; production should use
// PostgresRepository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	obstacles map[string]*Obstacle
}

// NewInMemoryRepository creates a new in-memory obstacle repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		obstacles: make(map[string]*Obstacle),
	}
}

// QueryArea returns all obstacles inside the bounding area.
func (r *InMemoryRepository) QueryArea(_ context.Context, bound orb.Bound) ([]*Obstacle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Obstacle
	for _, o := range r.obstacles {
		if bound.Contains(o.Location) {
			cpy := *o
			result = append(result, &cpy)
		}
	}
	return result, nil
}

// GetByID retrieves an obstacle by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Obstacle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.obstacles[id]
	if !ok {
		return nil, ErrObstacleNotFound
	}

	cpy := *o
	return &cpy, nil
}

// Create stores a new obstacle report.
func (r *InMemoryRepository) Create(_ context.Context, o *Obstacle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *o
	r.obstacles[o.ID] = &cpy
	return nil
}

// AddVote records a community vote for an obstacle.
func (r *InMemoryRepository) AddVote(_ context.Context, id string, upvote bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.obstacles[id]
	if !ok {
		return ErrObstacleNotFound
	}

	if upvote {
		o.Upvotes++
	} else {
		o.Downvotes++
	}
	return nil
}

// Ensure InMemoryRepository implements Repository.
var _ Repository = (*InMemoryRepository)(nil)
