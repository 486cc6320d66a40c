package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tcsenpai/lattice/pkg/models"
)

func (s *Store) ListTrendingTopics(ctx context.Context, limit int) ([]models.Topic, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, post_count FROM topics WHERE post_count > 0 ORDER BY post_count DESC, name ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopics(rows)
}

func (s *Store) SearchTopics(ctx context.Context, prefix string, limit int) ([]models.Topic, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, post_count FROM topics WHERE name LIKE lower($1) || '%' ORDER BY name ASC LIMIT $2`,
		prefix, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopics(rows)
}

func scanTopics(rows pgx.Rows) ([]models.Topic, error) {
	var out []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.PostCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
