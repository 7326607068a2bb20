package obstacle

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paulmach/orb"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL obstacle repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const obstacleColumns = `
	id, type, severity, lat, lon, description,
	reported_at, upvotes, downvotes, verified,
	time_pattern, side, side_has_alternative
`

// QueryArea returns all obstacles inside the bounding area.
func (r *PostgresRepository) QueryArea(ctx context.Context, bound orb.Bound) ([]*Obstacle, error) {
	query := `
		SELECT ` + obstacleColumns + `
		FROM obstacles
		WHERE lat BETWEEN $1 AND $2
		  AND lon BETWEEN $3 AND $4
	`

	rows, err := r.pool.Query(ctx, query,
		bound.Min.Lat(), bound.Max.Lat(),
		bound.Min.Lon(), bound.Max.Lon(),
	)
	if err != nil {
		return nil, fmt.Errorf("query obstacles: %w", err)
	}
	defer rows.Close()

	var obstacles []*Obstacle
	for rows.Next() {
		o, err := scanObstacle(rows)
		if err != nil {
			return nil, err
		}
		obstacles = append(obstacles, o)
	}
	return obstacles, rows.Err()
}

// GetByID retrieves an obstacle by ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Obstacle, error) {
	query := `SELECT ` + obstacleColumns + ` FROM obstacles WHERE id = $1`

	o, err := scanObstacle(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrObstacleNotFound
		}
		return nil, err
	}
	return o, nil
}

// Create stores a new obstacle report.
func (r *PostgresRepository) Create(ctx context.Context, o *Obstacle) error {
	query := `
		INSERT INTO obstacles (
			id, type, severity, lat, lon, description,
			reported_at, upvotes, downvotes, verified,
			time_pattern, side, side_has_alternative
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var pattern *string
	if o.TimePattern != nil {
		p := string(*o.TimePattern)
		pattern = &p
	}

	var side *string
	var hasAlt *bool
	if o.Side != nil {
		s := string(o.Side.Side)
		side = &s
		hasAlt = &o.Side.HasAlternative
	}

	_, err := r.pool.Exec(ctx, query,
		o.ID, string(o.Type), string(o.Severity),
		o.Location.Lat(), o.Location.Lon(), o.Description,
		o.ReportedAt, o.Upvotes, o.Downvotes, o.Verified,
		pattern, side, hasAlt,
	)
	if err != nil {
		return fmt.Errorf("insert obstacle: %w", err)
	}
	return nil
}

// AddVote records a community vote for an obstacle.
func (r *PostgresRepository) AddVote(ctx context.Context, id string, upvote bool) error {
	column := "downvotes"
	if upvote {
		column = "upvotes"
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE obstacles SET `+column+` = `+column+` + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update obstacle votes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrObstacleNotFound
	}
	return nil
}

// scanObstacle scans an obstacle from a query row.
func scanObstacle(row pgx.Row) (*Obstacle, error) {
	var (
		o          Obstacle
		typ, sev   string
		lat, lon   float64
		pattern    *string
		side       *string
		sideHasAlt *bool
	)

	err := row.Scan(
		&o.ID, &typ, &sev, &lat, &lon, &o.Description,
		&o.ReportedAt, &o.Upvotes, &o.Downvotes, &o.Verified,
		&pattern, &side, &sideHasAlt,
	)
	if err != nil {
		return nil, err
	}

	o.Type = Type(typ)
	o.Severity = Severity(sev)
	o.Location = orb.Point{lon, lat}

	if pattern != nil {
		p := TimePattern(*pattern)
		o.TimePattern = &p
	}
	if side != nil {
		info := SideInfo{Side: Side(*side)}
		if sideHasAlt != nil {
			info.HasAlternative = *sideHasAlt
		}
		o.Side = &info
	}

	return &o, nil
}

// Ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
