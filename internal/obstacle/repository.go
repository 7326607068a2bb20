package obstacle

import (
	"context"

	"github.com/paulmach/orb"
)

// Repository defines storage operations for obstacle reports.
type Repository interface {
	// QueryArea returns all obstacles inside the bounding area.
	QueryArea(ctx context.Context, bound orb.Bound) ([]*Obstacle, error)

	// GetByID retrieves a single obstacle.
	// Returns ErrObstacleNotFound when it does not exist.
	GetByID(ctx context.Context, id string) (*Obstacle, error)

	// Create stores a new obstacle report.
	Create(ctx context.Context, o *Obstacle) error

	// AddVote records a community vote for an obstacle.
	AddVote(ctx context.Context, id string, upvote bool) error
}
