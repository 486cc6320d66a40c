package content

import (
	"context"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/idgen"
	"github.com/tcsenpai/lattice/pkg/models"
)

// VoteService applies votes and their EXP side effects (spec.md §4.9).
type VoteService struct {
	svc *Service
	ids *idgen.Generator
}

// NewVoteService builds a VoteService sharing the content Service's store
// and EXP ledger.
func NewVoteService(svc *Service, ids *idgen.Generator) *VoteService {
	return &VoteService{svc: svc, ids: ids}
}

// Cast records voterDID's stance on postID, upserting by (postID,
// voterDID) and applying the EXP effect of the post-upsert value only
// when the value actually changed (spec.md §4.9's deliberate
// no-undo-on-flip simplification).
func (v *VoteService) Cast(ctx context.Context, postID, voterDID string, value int) error {
	if value != 1 && value != -1 {
		return apperr.New(apperr.CodeValidationError, "vote value must be +1 or -1")
	}

	post, err := v.svc.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Deleted {
		return apperr.New(apperr.CodeNotFound, "post not found")
	}
	if post.AuthorDID == voterDID {
		return apperr.New(apperr.CodeForbidden, "cannot vote on your own post")
	}

	changed, _, err := v.svc.store.UpsertVote(ctx, models.Vote{
		ID:        v.ids.Next(),
		PostID:    postID,
		VoterDID:  voterDID,
		Value:     value,
		CreatedAt: v.svc.now().Unix(),
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if err := v.svc.ledger.ApplyVote(ctx, post.AuthorDID, voterDID, postID, value); err != nil {
		return err
	}

	// Votes count against the comment tier (spec.md §4.6).
	return v.svc.limiter.Record(ctx, voterDID, models.ActionComment)
}
