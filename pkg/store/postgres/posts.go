package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/store"
)

const postSelectWithCounts = `
	SELECT p.id, p.title, p.excerpt, p.content, p.content_type, p.parent_id, p.author_did,
	       p.signature, p.simhash, p.created_at, p.edited_at, p.deleted, p.deleted_at, p.deleted_reason,
	       (SELECT COUNT(*) FROM posts r WHERE r.parent_id = p.id AND r.deleted = FALSE) AS reply_count,
	       (SELECT COUNT(*) FROM votes v WHERE v.post_id = p.id AND v.value > 0) AS upvotes,
	       (SELECT COUNT(*) FROM votes v WHERE v.post_id = p.id AND v.value < 0) AS downvotes
	FROM posts p`

func scanPost(row pgx.Row) (models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Excerpt, &p.Content, &p.ContentType, &p.ParentID, &p.AuthorDID,
		&p.Signature, &p.Simhash, &p.CreatedAt, &p.EditedAt, &p.Deleted, &p.DeletedAt, &p.DeletedReason,
		&p.ReplyCount, &p.Upvotes, &p.Downvotes,
	)
	return p, err
}

func (s *Store) InsertPost(ctx context.Context, p models.Post, hashtags []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO posts (id, title, excerpt, content, content_type, parent_id, author_did, signature, simhash, created_at)
		 VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5,''), 'text/plain'), $6, $7, $8, $9, $10)`,
		p.ID, p.Title, p.Excerpt, p.Content, p.ContentType, p.ParentID, p.AuthorDID, p.Signature, p.Simhash, p.CreatedAt,
	); err != nil {
		return mapUniqueViolation(err, "post")
	}

	if err := applyTopicsTx(ctx, tx, p.ID, hashtags); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// applyTopicsTx replaces the topic links for postID with hashtags,
// upserting each topic and keeping post_count in sync (spec.md §4.8).
func applyTopicsTx(ctx context.Context, tx pgx.Tx, postID string, hashtags []string) error {
	rows, err := tx.Query(ctx, `SELECT topic_id FROM post_topics WHERE post_id = $1`, postID)
	if err != nil {
		return err
	}
	var oldTopics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			rows.Close()
			return err
		}
		oldTopics = append(oldTopics, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, t := range oldTopics {
		if _, err := tx.Exec(ctx, `UPDATE topics SET post_count = post_count - 1 WHERE id = $1`, t); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM post_topics WHERE post_id = $1`, postID); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, tag := range hashtags {
		if seen[tag] {
			continue
		}
		seen[tag] = true

		if _, err := tx.Exec(ctx,
			`INSERT INTO topics (id, name, post_count) VALUES ($1, $1, 0) ON CONFLICT (id) DO NOTHING`,
			tag,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE topics SET post_count = post_count + 1 WHERE id = $1`, tag); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO post_topics (post_id, topic_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			postID, tag,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p, err := scanPost(s.pool.QueryRow(ctx, postSelectWithCounts+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.NotFound("post not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdatePost(ctx context.Context, p models.Post, hashtags []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE posts SET title = $1, excerpt = $2, content = $3, simhash = $4, edited_at = $5 WHERE id = $6`,
		p.Title, p.Excerpt, p.Content, p.Simhash, p.EditedAt, p.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.NotFound("post not found")
	}

	if err := applyTopicsTx(ctx, tx, p.ID, hashtags); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) SoftDeletePost(ctx context.Context, id string, reason models.DeletedReason, at int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE posts SET deleted = TRUE, deleted_at = $1, deleted_reason = $2 WHERE id = $3`,
		at, reason, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.NotFound("post not found")
	}
	return nil
}

func (s *Store) FindRecentSimhashes(ctx context.Context, authorDID string, since int64) ([]store.PostSimhash, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, simhash, created_at FROM posts WHERE author_did = $1 AND deleted = FALSE AND created_at >= $2`,
		authorDID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.PostSimhash
	for rows.Next() {
		var h store.PostSimhash
		if err := rows.Scan(&h.PostID, &h.Simhash, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
