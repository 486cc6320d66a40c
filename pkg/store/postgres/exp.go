package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tcsenpai/lattice/pkg/models"
)

// AppendExpDelta inserts the delta row and updates the balance inside a
// single transaction, returning the resulting total (spec.md §4.5).
func (s *Store) AppendExpDelta(ctx context.Context, d models.ExpDelta) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO exp_deltas (id, agent_did, amount, reason, source_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.AgentDID, d.Amount, d.Reason, d.SourceID, d.CreatedAt,
	); err != nil {
		return 0, err
	}

	var total int
	err = tx.QueryRow(ctx,
		`INSERT INTO exp_balances (did, total, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (did) DO UPDATE SET total = exp_balances.total + $2, updated_at = $3
		 RETURNING total`,
		d.AgentDID, d.Amount, d.CreatedAt,
	).Scan(&total)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetExpBalance(ctx context.Context, did string) (*models.ExpBalance, error) {
	var b models.ExpBalance
	err := s.pool.QueryRow(ctx,
		`SELECT did, total, post_karma, comment_karma, updated_at FROM exp_balances WHERE did = $1`,
		did,
	).Scan(&b.DID, &b.Total, &b.PostKarma, &b.CommentKarma, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.ExpBalance{DID: did}, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) ListExpDeltas(ctx context.Context, did, cursor string, limit int) (models.Page[models.ExpDelta], error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exp_deltas WHERE agent_did = $1`, did).Scan(&total); err != nil {
		return models.Page[models.ExpDelta]{}, err
	}

	query := `SELECT id, agent_did, amount, reason, source_id, created_at FROM exp_deltas WHERE agent_did = $1`
	args := []any{did}
	if cursor != "" {
		query += ` AND id < $2`
		args = append(args, cursor)
	}
	query += ` ORDER BY id DESC LIMIT ` + limitPlaceholder(len(args)+1)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return models.Page[models.ExpDelta]{}, err
	}
	defer rows.Close()

	var deltas []models.ExpDelta
	for rows.Next() {
		var d models.ExpDelta
		if err := rows.Scan(&d.ID, &d.AgentDID, &d.Amount, &d.Reason, &d.SourceID, &d.CreatedAt); err != nil {
			return models.Page[models.ExpDelta]{}, err
		}
		deltas = append(deltas, d)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.ExpDelta]{}, err
	}

	hasMore := len(deltas) > limit
	if hasMore {
		deltas = deltas[:limit]
	}
	return models.Page[models.ExpDelta]{Items: deltas, HasMore: hasMore, Total: total}, nil
}

func (s *Store) HasExpDelta(ctx context.Context, did string, reason models.ExpReason, sourceID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exp_deltas WHERE agent_did = $1 AND reason = $2 AND source_id = $3)`,
		did, reason, sourceID,
	).Scan(&exists)
	return exists, err
}
