package spam

import (
	"context"
	"time"

	"github.com/tcsenpai/lattice/pkg/store"
)

// Action is the outcome of post admission (spec.md §4.7).
type Action int

const (
	Publish Action = iota
	Quarantine
	Reject
)

// RejectReason names why admission rejected or quarantined content,
// carried alongside Action so the content service knows which EXP
// penalty (if any) applies.
type RejectReason string

const (
	ReasonNone            RejectReason = ""
	ReasonPromptInjection RejectReason = "prompt_injection"
	ReasonLowEntropy      RejectReason = "low_entropy"
	ReasonNewAccountSpam  RejectReason = "new_account_spam"
	ReasonDuplicate       RejectReason = "duplicate"
)

// Decision is the full admission verdict for one piece of content.
type Decision struct {
	Action  Action
	Reason  RejectReason
	Simhash string
	// Flagged records a mid-band prompt-injection score (3-5): the post
	// proceeds exactly like Allow, but the caller can still log it.
	Flagged bool
}

const newAccountWindow = 24 * time.Hour
const duplicateLookback = 24 * time.Hour

// Admit runs the three-filter pipeline from spec.md §4.7, in order:
// prompt injection, Shannon entropy, then SimHash near-duplicate against
// the author's own recent posts.
func Admit(ctx context.Context, s store.Store, authorDID string, authorCreatedAt int64, content string, now time.Time) (Decision, error) {
	// A flagged score (3-5) proceeds like Allow: it is recorded on the
	// Decision for the caller to log, but neither rejects the post nor
	// costs EXP.
	verdict := ClassifyInjection(ScoreInjection(content))
	if verdict == InjectionReject {
		return Decision{Action: Reject, Reason: ReasonPromptInjection}, nil
	}
	flagged := verdict == InjectionFlag

	if h := ShannonEntropy(content); h < MinEntropyBitsPerChar {
		return Decision{Action: Reject, Reason: ReasonLowEntropy, Flagged: flagged}, nil
	}

	hash := Simhash(content)
	since := now.Add(-duplicateLookback).Unix()
	recent, err := s.FindRecentSimhashes(ctx, authorDID, since)
	if err != nil {
		return Decision{}, err
	}

	isDuplicate := false
	for _, r := range recent {
		if Similarity(hash, r.Simhash) >= NearDuplicateThreshold {
			isDuplicate = true
			break
		}
	}

	if isDuplicate {
		accountAge := now.Unix() - authorCreatedAt
		if accountAge < int64(newAccountWindow.Seconds()) {
			return Decision{Action: Reject, Reason: ReasonNewAccountSpam, Simhash: hash, Flagged: flagged}, nil
		}
		return Decision{Action: Quarantine, Reason: ReasonDuplicate, Simhash: hash, Flagged: flagged}, nil
	}

	return Decision{Action: Publish, Simhash: hash, Flagged: flagged}, nil
}
