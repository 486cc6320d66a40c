// Package content implements post creation, editing, soft deletion, and
// the rate-limit + spam-admission pipeline that gates them (spec.md
// §4.8). It is the single caller that mutates post rows.
package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/exp"
	"github.com/tcsenpai/lattice/pkg/idgen"
	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/ratelimit"
	"github.com/tcsenpai/lattice/pkg/spam"
	"github.com/tcsenpai/lattice/pkg/store"
)

const editWindow = 5 * time.Minute

// CreateInput is the caller-supplied shape of a new post or reply.
type CreateInput struct {
	AuthorDID string
	Title     *string
	Content   string
	ParentID  *string
	Signature string
}

// Service composes the rate limiter, spam admission pipeline, and EXP
// ledger around post storage.
type Service struct {
	store   store.Store
	ledger  *exp.Ledger
	limiter *ratelimit.Limiter
	ids     *idgen.Generator
	now     func() time.Time
}

// New builds a content Service.
func New(s store.Store, ledger *exp.Ledger, limiter *ratelimit.Limiter, ids *idgen.Generator) *Service {
	return &Service{store: s, ledger: ledger, limiter: limiter, ids: ids, now: time.Now}
}

// CreatePost runs the full admission pipeline from spec.md §4.8 and
// returns the persisted post, or a typed error if admission rejected it.
func (s *Service) CreatePost(ctx context.Context, in CreateInput) (*models.Post, error) {
	if in.ParentID != nil {
		if _, err := s.store.GetPost(ctx, *in.ParentID); err != nil {
			return nil, err
		}
	}

	action := ratelimit.ActionFor(in.ParentID)
	author, err := s.store.GetAgent(ctx, in.AuthorDID)
	if err != nil {
		return nil, err
	}
	_, level, err := s.ledger.Balance(ctx, in.AuthorDID)
	if err != nil {
		return nil, err
	}
	if _, err := s.limiter.Check(ctx, in.AuthorDID, level, action); err != nil {
		return nil, err
	}

	now := s.now()
	decision, err := spam.Admit(ctx, s.store, in.AuthorDID, author.CreatedAt, in.Content, now)
	if err != nil {
		return nil, err
	}
	if decision.Flagged {
		slog.Debug("post flagged for prompt injection, admitted", "did", in.AuthorDID, "action", decision.Action)
	}
	if decision.Action == spam.Reject {
		// A reject costs the author -5 EXP when the reason is the
		// content's own fault (duplicate/low-entropy); a prompt-injection
		// reject never touches the ledger since the content itself was
		// never genuinely the author's own expression (spec.md §4.7).
		if decision.Reason == spam.ReasonLowEntropy || decision.Reason == spam.ReasonNewAccountSpam {
			if err := s.ledger.ApplySpamDetected(ctx, in.AuthorDID, s.ids.Next()); err != nil {
				return nil, err
			}
		}
		return nil, apperr.Newf(apperr.CodeSpamDetected, "post rejected: %s", decision.Reason).WithDetails(map[string]any{"reason": string(decision.Reason)})
	}

	post := models.Post{
		ID:        s.ids.Next(),
		Title:     in.Title,
		Content:   in.Content,
		ParentID:  in.ParentID,
		AuthorDID: in.AuthorDID,
		Signature: in.Signature,
		Simhash:   decision.Simhash,
		CreatedAt: now.Unix(),
	}
	hashtags := ExtractHashtags(in.Content)
	if err := s.store.InsertPost(ctx, post, hashtags); err != nil {
		return nil, err
	}

	if err := s.limiter.Record(ctx, in.AuthorDID, action); err != nil {
		return nil, err
	}
	if decision.Action == spam.Quarantine {
		if err := s.ledger.ApplySpamDetected(ctx, in.AuthorDID, post.ID); err != nil {
			return nil, err
		}
	}

	return &post, nil
}

// EditInput is the caller-supplied shape of a post edit.
type EditInput struct {
	PostID    string
	EditorDID string
	Title     *string
	Content   string
}

// EditPost updates a post's content, subject to author-only, non-deleted,
// and the five-minute edit window (spec.md §4.8).
func (s *Service) EditPost(ctx context.Context, in EditInput) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.Deleted {
		return nil, apperr.New(apperr.CodeForbidden, "cannot edit a deleted post")
	}
	if post.AuthorDID != in.EditorDID {
		return nil, apperr.New(apperr.CodeForbidden, "only the author may edit this post")
	}
	now := s.now()
	if now.Unix()-post.CreatedAt > int64(editWindow.Seconds()) {
		return nil, apperr.New(apperr.CodeForbidden, "edit window has elapsed")
	}

	if spam.ClassifyInjection(spam.ScoreInjection(in.Content)) == spam.InjectionReject {
		return nil, apperr.New(apperr.CodeSpamDetected, "edit rejected: prompt_injection")
	}

	edited := now.Unix()
	post.Title = in.Title
	post.Content = in.Content
	post.Simhash = spam.Simhash(in.Content)
	post.EditedAt = &edited

	hashtags := ExtractHashtags(in.Content)
	if err := s.store.UpdatePost(ctx, *post, hashtags); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost soft-deletes a post, recording who initiated it.
func (s *Service) DeletePost(ctx context.Context, postID, actorDID string, reason models.DeletedReason) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if reason == models.DeletedByAuthor && post.AuthorDID != actorDID {
		return apperr.New(apperr.CodeForbidden, "only the author may delete this post")
	}
	return s.store.SoftDeletePost(ctx, postID, reason, s.now().Unix())
}
