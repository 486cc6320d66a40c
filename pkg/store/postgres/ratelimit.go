package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tcsenpai/lattice/pkg/models"
)

func (s *Store) GetRateLimitCount(ctx context.Context, did string, action models.ActionType, windowStart int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count FROM rate_limit_counters WHERE did = $1 AND action_type = $2 AND window_start = $3`,
		did, action, windowStart,
	).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

func (s *Store) IncrementRateLimit(ctx context.Context, did string, action models.ActionType, windowStart int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO rate_limit_counters (did, action_type, window_start, count) VALUES ($1, $2, $3, 1)
		 ON CONFLICT (did, action_type, window_start) DO UPDATE SET count = rate_limit_counters.count + 1`,
		did, action, windowStart,
	)
	return err
}

func (s *Store) SweepRateLimitBuckets(ctx context.Context, olderThan int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM rate_limit_counters WHERE window_start < $1`, olderThan)
	return err
}
