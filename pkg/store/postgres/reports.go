package postgres

import (
	"context"

	"github.com/tcsenpai/lattice/pkg/models"
)

func (s *Store) InsertReport(ctx context.Context, r models.SpamReport) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO spam_reports (id, post_id, reporter_did, reason, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.PostID, r.ReporterDID, r.Reason, r.CreatedAt,
	)
	return mapUniqueViolation(err, "spam report")
}

func (s *Store) CountDistinctReporters(ctx context.Context, postID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT reporter_did) FROM spam_reports WHERE post_id = $1`, postID,
	).Scan(&n)
	return n, err
}
