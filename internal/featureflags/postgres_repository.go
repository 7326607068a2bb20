package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Values are stored as JSON so a flag can be flipped with a single
// UPDATE from psql during an incident.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL flag repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const upsertFlag = `
	INSERT INTO feature_flags (key, value, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET
		value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at
`

func (r *PostgresRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	query := `SELECT key, value, updated_at FROM feature_flags WHERE key = $1`

	var (
		flag Flag
		raw  []byte
	)
	err := r.pool.QueryRow(ctx, query, key).Scan(&flag.Key, &raw, &flag.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFlagNotFound
		}
		return nil, fmt.Errorf("get flag: %w", err)
	}
	if err := json.Unmarshal(raw, &flag.Value); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", key, err)
	}
	return &flag, nil
}

func (r *PostgresRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM feature_flags`)
	if err != nil {
		return nil, fmt.Errorf("query flags: %w", err)
	}
	defer rows.Close()

	flags := make(map[string]*Flag)
	for rows.Next() {
		var (
			flag Flag
			raw  []byte
		)
		if err := rows.Scan(&flag.Key, &raw, &flag.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &flag.Value); err != nil {
			return nil, fmt.Errorf("decode flag %s: %w", flag.Key, err)
		}
		flags[flag.Key] = &flag
	}
	return flags, rows.Err()
}

func (r *PostgresRepository) SetFlag(ctx context.Context, flag *Flag) error {
	raw, err := json.Marshal(flag.Value)
	if err != nil {
		return fmt.Errorf("encode flag %s: %w", flag.Key, err)
	}
	if _, err := r.pool.Exec(ctx, upsertFlag, flag.Key, raw, time.Now()); err != nil {
		return fmt.Errorf("set flag: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	now := time.Now()
	for _, flag := range flags {
		raw, err := json.Marshal(flag.Value)
		if err != nil {
			return fmt.Errorf("encode flag %s: %w", flag.Key, err)
		}
		if _, err := tx.Exec(ctx, upsertFlag, flag.Key, raw, now); err != nil {
			return fmt.Errorf("set flag %s: %w", flag.Key, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) DeleteFlag(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE key = $1`, key)
	return err
}

var _ Repository = (*PostgresRepository)(nil)
