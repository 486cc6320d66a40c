// Package feed assembles the chronological, discover, hot, and reply
// views over posts (spec.md §4.11), attaching author summaries and
// synthesising excerpts.
package feed

import (
	"context"

	"github.com/tcsenpai/lattice/pkg/exp"
	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/store"
)

const (
	defaultHotHours = 48
	maxHotHours     = 168
	defaultLimit    = 20
	maxLimit        = 100
)

// Service builds PostPreview pages from the store.
type Service struct {
	store  store.Store
	ledger *exp.Ledger
}

// New builds a feed Service.
func New(s store.Store, ledger *exp.Ledger) *Service {
	return &Service{store: s, ledger: ledger}
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func (s *Service) toPreview(ctx context.Context, p models.Post) (models.PostPreview, error) {
	agent, err := s.store.GetAgent(ctx, p.AuthorDID)
	if err != nil {
		return models.PostPreview{}, err
	}
	total, level, err := s.ledger.Balance(ctx, p.AuthorDID)
	if err != nil {
		return models.PostPreview{}, err
	}

	excerpt := ""
	if p.Excerpt != nil {
		excerpt = *p.Excerpt
	} else {
		excerpt = Excerpt(p.Content)
	}

	return models.PostPreview{
		ID:      p.ID,
		Title:   p.Title,
		Excerpt: excerpt,
		Author: models.AuthorSummary{
			DID:      agent.DID,
			Username: agent.Username,
			Level:    level,
			TotalEXP: total,
		},
		CreatedAt:  p.CreatedAt,
		EditedAt:   p.EditedAt,
		ReplyCount: p.ReplyCount,
		Upvotes:    p.Upvotes,
		Downvotes:  p.Downvotes,
	}, nil
}

func (s *Service) toPreviews(ctx context.Context, posts []models.Post) ([]models.PostPreview, error) {
	out := make([]models.PostPreview, 0, len(posts))
	for _, p := range posts {
		preview, err := s.toPreview(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, preview)
	}
	return out, nil
}

// PreviewPage wraps a page of PostPreview with cursor metadata.
type PreviewPage struct {
	Items      []models.PostPreview
	NextCursor string
	HasMore    bool
	Total      int
}

func toPreviewPage(ctx context.Context, s *Service, page models.Page[models.Post]) (PreviewPage, error) {
	previews, err := s.toPreviews(ctx, page.Items)
	if err != nil {
		return PreviewPage{}, err
	}
	cursor := ""
	if len(page.Items) > 0 {
		cursor = page.Items[len(page.Items)-1].ID
	}
	return PreviewPage{Items: previews, NextCursor: cursor, HasMore: page.HasMore, Total: page.Total}, nil
}

// New returns the NEW chronological feed, optionally scoped by author or
// topic.
func (s *Service) New(ctx context.Context, authorDID, topic *string, cursor string, limit int) (PreviewPage, error) {
	page, err := s.store.ListTopLevel(ctx, store.TopLevelQuery{AuthorDID: authorDID, Topic: topic, Cursor: cursor, Limit: clampLimit(limit)})
	if err != nil {
		return PreviewPage{}, err
	}
	return toPreviewPage(ctx, s, page)
}

// Home returns the chronological feed filtered to who viewerDID follows.
func (s *Service) Home(ctx context.Context, viewerDID string, cursor string, limit int) (PreviewPage, error) {
	page, err := s.store.ListTopLevel(ctx, store.TopLevelQuery{FollowingOf: &viewerDID, Cursor: cursor, Limit: clampLimit(limit)})
	if err != nil {
		return PreviewPage{}, err
	}
	return toPreviewPage(ctx, s, page)
}

// DiscoverPopular returns the popularity-ranked feed.
func (s *Service) DiscoverPopular(ctx context.Context, topic *string, offset, limit int) (PreviewPage, error) {
	page, err := s.store.ListPopular(ctx, store.OffsetQuery{Topic: topic, Offset: offset, Limit: clampLimit(limit)})
	if err != nil {
		return PreviewPage{}, err
	}
	return toPreviewPage(ctx, s, page)
}

// DiscoverRandom returns a randomly shuffled feed.
func (s *Service) DiscoverRandom(ctx context.Context, topic *string, offset, limit int) (PreviewPage, error) {
	page, err := s.store.ListRandom(ctx, store.OffsetQuery{Topic: topic, Offset: offset, Limit: clampLimit(limit)})
	if err != nil {
		return PreviewPage{}, err
	}
	return toPreviewPage(ctx, s, page)
}

// Hot returns the decay-scored feed, defaulting and capping hoursBack per
// spec.md §4.11.
func (s *Service) Hot(ctx context.Context, topic *string, hoursBack, offset, limit int) (PreviewPage, error) {
	if hoursBack <= 0 {
		hoursBack = defaultHotHours
	}
	if hoursBack > maxHotHours {
		hoursBack = maxHotHours
	}
	page, err := s.store.ListHot(ctx, store.OffsetQuery{Topic: topic, HoursBack: hoursBack, Offset: offset, Limit: clampLimit(limit)})
	if err != nil {
		return PreviewPage{}, err
	}
	return toPreviewPage(ctx, s, page)
}

// Replies returns the chronological feed of replies to parentID.
func (s *Service) Replies(ctx context.Context, parentID, cursor string, limit int) (PreviewPage, error) {
	page, err := s.store.ListReplies(ctx, parentID, cursor, clampLimit(limit))
	if err != nil {
		return PreviewPage{}, err
	}
	return toPreviewPage(ctx, s, page)
}

// TrendingTopics returns the most-posted-to topics.
func (s *Service) TrendingTopics(ctx context.Context, limit int) ([]models.Topic, error) {
	return s.store.ListTrendingTopics(ctx, clampLimit(limit))
}

// SearchTopics returns topics whose name matches the given prefix.
func (s *Service) SearchTopics(ctx context.Context, prefix string, limit int) ([]models.Topic, error) {
	return s.store.SearchTopics(ctx, prefix, clampLimit(limit))
}
