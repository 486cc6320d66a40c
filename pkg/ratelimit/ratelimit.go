// Package ratelimit implements the sliding hour-bucket limiter described
// in spec.md §4.6: a per-(DID, actionType) counter bucketed by hour,
// admission checked by summing the current and previous bucket, and a
// periodic sweep that drops buckets older than two hours.
package ratelimit

import (
	"context"
	"time"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/exp"
	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/store"
)

const bucketSeconds = 3600

// Status is the informational payload surfaced to callers on every
// decision, authenticating or not (spec.md §4.6: limit/remaining/resetAt).
type Status struct {
	Limit     int
	Remaining int
	ResetAt   int64 // ms epoch of next bucket boundary
}

// Limiter gates actions by an agent's level-derived tier.
type Limiter struct {
	store store.Store
	now   func() time.Time
}

// New builds a Limiter over the given Store.
func New(s store.Store) *Limiter {
	return &Limiter{store: s, now: time.Now}
}

func windowStart(t time.Time) int64 {
	sec := t.Unix()
	return (sec / bucketSeconds) * bucketSeconds
}

func limitFor(action models.ActionType, tier exp.Tier) int {
	if action == models.ActionPost {
		return tier.PostsPerHour
	}
	return tier.CommentsPerHour
}

// Check reads (without mutating) whether did may perform action at its
// current level, returning the status regardless of the outcome.
func (l *Limiter) Check(ctx context.Context, did string, level int, action models.ActionType) (Status, error) {
	now := l.now()
	cur := windowStart(now)
	prev := cur - bucketSeconds

	curCount, err := l.store.GetRateLimitCount(ctx, did, action, cur)
	if err != nil {
		return Status{}, err
	}
	prevCount, err := l.store.GetRateLimitCount(ctx, did, action, prev)
	if err != nil {
		return Status{}, err
	}

	limit := limitFor(action, exp.TierFor(level))
	used := curCount + prevCount
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	resetAt := (cur + bucketSeconds) * 1000

	status := Status{Limit: limit, Remaining: remaining, ResetAt: resetAt}
	if used >= limit {
		return status, apperr.Wrap(apperr.CodeRateLimitExceeded, "rate limit exceeded", apperr.ErrRateLimited)
	}
	return status, nil
}

// Record upserts the current bucket's count after a content action has
// already succeeded (spec.md §4.6 — recordAction is never speculative).
func (l *Limiter) Record(ctx context.Context, did string, action models.ActionType) error {
	cur := windowStart(l.now())
	return l.store.IncrementRateLimit(ctx, did, action, cur)
}

// Sweep deletes buckets older than two hours, best-effort (spec.md
// §4.13: losing a bucket is bounded by the 1-hour window).
func (l *Limiter) Sweep(ctx context.Context) error {
	cutoff := windowStart(l.now()) - 2*bucketSeconds
	return l.store.SweepRateLimitBuckets(ctx, cutoff)
}

// ActionFor maps the presence of a parent ID to the rate-limited action
// category (spec.md §4.6: a reply or vote/report counts as "comment").
func ActionFor(parentID *string) models.ActionType {
	if parentID == nil {
		return models.ActionPost
	}
	return models.ActionComment
}
