package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tcsenpai/lattice/pkg/models"
)

// UpsertVote implements the spec.md §4.9 upsert-by-(postId,voterDid)
// semantics: insert if absent, no-op if the value is unchanged, update
// and report the prior value otherwise.
func (s *Store) UpsertVote(ctx context.Context, v models.Vote) (bool, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, err
	}
	defer tx.Rollback(ctx)

	var prevValue int
	err = tx.QueryRow(ctx,
		`SELECT value FROM votes WHERE post_id = $1 AND voter_did = $2`,
		v.PostID, v.VoterDID,
	).Scan(&prevValue)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx,
			`INSERT INTO votes (id, post_id, voter_did, value, created_at) VALUES ($1, $2, $3, $4, $5)`,
			v.ID, v.PostID, v.VoterDID, v.Value, v.CreatedAt,
		); err != nil {
			return false, 0, err
		}
		return true, 0, tx.Commit(ctx)
	case err != nil:
		return false, 0, err
	case prevValue == v.Value:
		return false, prevValue, tx.Commit(ctx)
	default:
		if _, err := tx.Exec(ctx,
			`UPDATE votes SET value = $1, created_at = $2 WHERE post_id = $3 AND voter_did = $4`,
			v.Value, v.CreatedAt, v.PostID, v.VoterDID,
		); err != nil {
			return false, 0, err
		}
		return true, prevValue, tx.Commit(ctx)
	}
}

func (s *Store) GetVote(ctx context.Context, postID, voterDID string) (*models.Vote, error) {
	var v models.Vote
	err := s.pool.QueryRow(ctx,
		`SELECT id, post_id, voter_did, value, created_at FROM votes WHERE post_id = $1 AND voter_did = $2`,
		postID, voterDID,
	).Scan(&v.ID, &v.PostID, &v.VoterDID, &v.Value, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
