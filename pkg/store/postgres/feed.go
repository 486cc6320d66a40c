package postgres

import (
	"context"
	"fmt"

	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/store"
)

// ListTopLevel implements the NEW / home / discover-newest feed shapes
// (spec.md §4.11): non-reply, non-deleted posts, optionally scoped by
// author, topic, or a viewer's follow graph, cursor-paginated by ID.
func (s *Store) ListTopLevel(ctx context.Context, q store.TopLevelQuery) (models.Page[models.Post], error) {
	where := `p.parent_id IS NULL AND p.deleted = FALSE`
	var args []any

	if q.AuthorDID != nil {
		args = append(args, *q.AuthorDID)
		where += fmt.Sprintf(" AND p.author_did = $%d", len(args))
	}
	if q.Topic != nil {
		args = append(args, *q.Topic)
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM post_topics pt WHERE pt.post_id = p.id AND pt.topic_id = $%d)", len(args))
	}
	if q.FollowingOf != nil {
		args = append(args, *q.FollowingOf)
		where += fmt.Sprintf(" AND p.author_did IN (SELECT followed_did FROM follows WHERE follower_did = $%d)", len(args))
	}
	if q.Cursor != "" {
		args = append(args, q.Cursor)
		where += fmt.Sprintf(" AND p.id < $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p WHERE `+where, args...).Scan(&total); err != nil {
		return models.Page[models.Post]{}, err
	}

	args = append(args, q.Limit+1)
	query := postSelectWithCounts + ` WHERE ` + where + ` ORDER BY p.id DESC LIMIT ` + limitPlaceholder(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return models.Page[models.Post]{}, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return models.Page[models.Post]{}, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Post]{}, err
	}

	hasMore := len(posts) > q.Limit
	if hasMore {
		posts = posts[:q.Limit]
	}
	return models.Page[models.Post]{Items: posts, HasMore: hasMore, Total: total}, nil
}

func (s *Store) ListReplies(ctx context.Context, parentID, cursor string, limit int) (models.Page[models.Post], error) {
	where := `p.parent_id = $1 AND p.deleted = FALSE`
	args := []any{parentID}
	if cursor != "" {
		args = append(args, cursor)
		where += fmt.Sprintf(" AND p.id < $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p WHERE `+where, args...).Scan(&total); err != nil {
		return models.Page[models.Post]{}, err
	}

	args = append(args, limit+1)
	query := postSelectWithCounts + ` WHERE ` + where + ` ORDER BY p.id DESC LIMIT ` + limitPlaceholder(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return models.Page[models.Post]{}, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return models.Page[models.Post]{}, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Post]{}, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	return models.Page[models.Post]{Items: posts, HasMore: hasMore, Total: total}, nil
}

func topicWhere(topic *string, args *[]any) string {
	if topic == nil {
		return ""
	}
	*args = append(*args, *topic)
	return fmt.Sprintf(" AND EXISTS (SELECT 1 FROM post_topics pt WHERE pt.post_id = p.id AND pt.topic_id = $%d)", len(*args))
}

// ListPopular orders by (replies*2 + upvotes - downvotes) desc, tie-break
// by ID desc, offset-paginated (spec.md §4.11).
func (s *Store) ListPopular(ctx context.Context, q store.OffsetQuery) (models.Page[models.Post], error) {
	var args []any
	where := `p.parent_id IS NULL AND p.deleted = FALSE` + topicWhere(q.Topic, &args)
	return s.offsetPostQuery(ctx, where, args,
		`(reply_count*2 + upvotes - downvotes) DESC, p.id DESC`, q.Offset, q.Limit)
}

// ListRandom orders randomly with no stable cursor (spec.md §4.11).
func (s *Store) ListRandom(ctx context.Context, q store.OffsetQuery) (models.Page[models.Post], error) {
	var args []any
	where := `p.parent_id IS NULL AND p.deleted = FALSE` + topicWhere(q.Topic, &args)
	return s.offsetPostQuery(ctx, where, args, `RANDOM()`, q.Offset, q.Limit)
}

// ListHot orders by the decay score from spec.md §4.11, restricted to
// posts newer than hoursBack.
func (s *Store) ListHot(ctx context.Context, q store.OffsetQuery) (models.Page[models.Post], error) {
	var args []any
	where := `p.parent_id IS NULL AND p.deleted = FALSE` + topicWhere(q.Topic, &args)
	if q.HoursBack > 0 {
		args = append(args, q.HoursBack)
		where += fmt.Sprintf(" AND p.created_at >= EXTRACT(EPOCH FROM NOW())::BIGINT - $%d * 3600", len(args))
	}
	orderBy := `(reply_count*2 + upvotes - downvotes) / POWER((EXTRACT(EPOCH FROM NOW())::BIGINT - p.created_at)/3600.0 + 2, 1.5) DESC, p.id DESC`
	return s.offsetPostQuery(ctx, where, args, orderBy, q.Offset, q.Limit)
}

// offsetPostQuery wraps postSelectWithCounts in a named CTE so ORDER BY
// can reference reply_count/upvotes/downvotes without repeating the
// correlated subqueries, then applies offset pagination.
func (s *Store) offsetPostQuery(ctx context.Context, where string, args []any, orderBy string, offset, limit int) (models.Page[models.Post], error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p WHERE `+where, args...).Scan(&total); err != nil {
		return models.Page[models.Post]{}, err
	}

	full := `WITH scored AS (` + postSelectWithCounts + ` WHERE ` + where + `)
		SELECT id, title, excerpt, content, content_type, parent_id, author_did, signature, simhash,
		       created_at, edited_at, deleted, deleted_at, deleted_reason, reply_count, upvotes, downvotes
		FROM scored ORDER BY ` + orderBy + `
		OFFSET ` + limitPlaceholder(len(args)+1) + ` LIMIT ` + limitPlaceholder(len(args)+2)

	queryArgs := append(append([]any{}, args...), offset, limit+1)

	rows, err := s.pool.Query(ctx, full, queryArgs...)
	if err != nil {
		return models.Page[models.Post]{}, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return models.Page[models.Post]{}, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.Post]{}, err
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}
	return models.Page[models.Post]{Items: posts, HasMore: hasMore, Total: total}, nil
}
