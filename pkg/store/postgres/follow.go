package postgres

import (
	"context"

	"github.com/tcsenpai/lattice/pkg/models"
)

func (s *Store) Follow(ctx context.Context, followerDID, followedDID string, at int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO follows (follower_did, followed_did, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (follower_did, followed_did) DO NOTHING`,
		followerDID, followedDID, at,
	)
	return err
}

func (s *Store) Unfollow(ctx context.Context, followerDID, followedDID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_did = $1 AND followed_did = $2`,
		followerDID, followedDID,
	)
	return err
}

func (s *Store) ListFollowers(ctx context.Context, did, cursor string, limit int) (models.Page[models.Follow], error) {
	return s.listFollowEdges(ctx, `follower_did`, `followed_did = $1`, did, cursor, limit)
}

func (s *Store) ListFollowing(ctx context.Context, did, cursor string, limit int) (models.Page[models.Follow], error) {
	return s.listFollowEdges(ctx, `followed_did`, `follower_did = $1`, did, cursor, limit)
}

// listFollowEdges paginates follow edges newest-first, keyed by
// edgeColumn for cursoring. This is the common shape behind both
// ListFollowers and ListFollowing — only which side is fixed differs.
func (s *Store) listFollowEdges(ctx context.Context, edgeColumn, whereFixed, fixedValue, cursor string, limit int) (models.Page[models.Follow], error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM follows WHERE `+whereFixed, fixedValue,
	).Scan(&total); err != nil {
		return models.Page[models.Follow]{}, err
	}

	query := `SELECT follower_did, followed_did, created_at FROM follows WHERE ` + whereFixed
	args := []any{fixedValue}
	if cursor != "" {
		query += ` AND (created_at, ` + edgeColumn + `) < (SELECT created_at, ` + edgeColumn +
			` FROM follows WHERE ` + whereFixed + ` AND ` + edgeColumn + ` = $2)`
		args = append(args, cursor)
	}
	query += ` ORDER BY created_at DESC, ` + edgeColumn + ` DESC LIMIT ` + limitPlaceholder(len(args)+1)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return models.Page[models.Follow]{}, err
	}
	defer rows.Close()

	var edges []models.Follow
	for rows.Next() {
		var f models.Follow
		if err := rows.Scan(&f.FollowerDID, &f.FollowedDID, &f.CreatedAt); err != nil {
			return models.Page[models.Follow]{}, err
		}
		edges = append(edges, f)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Follow]{}, err
	}

	hasMore := len(edges) > limit
	if hasMore {
		edges = edges[:limit]
	}
	return models.Page[models.Follow]{Items: edges, HasMore: hasMore, Total: total}, nil
}
