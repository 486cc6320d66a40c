// Package exp implements the EXP ledger: level derivation, tiered
// attestation rewards, voter-gated vote effects, and spam penalties. It
// is the only component permitted to mutate an agent's balance
// (spec.md §4.5) — every mutation is a single store.AppendExpDelta call,
// which is itself atomic at the storage layer.
package exp

import (
	"context"
	"math"
	"time"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/idgen"
	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/store"
)

// Tier is a rate-limit ceiling bucket derived from level.
type Tier struct {
	PostsPerHour    int
	CommentsPerHour int
}

// Level implements level(total) = floor(log10(max(total,0)+1) * 10).
func Level(total int) int {
	if total < 0 {
		total = 0
	}
	return int(math.Floor(math.Log10(float64(total)+1) * 10))
}

// TierFor maps a level to its rate-limit tier (spec.md §4.5).
func TierFor(level int) Tier {
	switch {
	case level >= 31:
		return Tier{PostsPerHour: 4, CommentsPerHour: 60}
	case level >= 16:
		return Tier{PostsPerHour: 3, CommentsPerHour: 30}
	case level >= 6:
		return Tier{PostsPerHour: 2, CommentsPerHour: 15}
	default:
		return Tier{PostsPerHour: 1, CommentsPerHour: 5}
	}
}

// attestationReward maps an attestor's level to the EXP granted to the
// target (spec.md §4.5).
func attestationReward(attestorLevel int) int {
	switch {
	case attestorLevel >= 11:
		return 100
	case attestorLevel >= 6:
		return 50
	case attestorLevel >= 2:
		return 25
	default:
		return 0
	}
}

const (
	minAttestorLevel    = 2
	attestorQuotaPerWin = 5
	attestorQuotaWindow = 30 * 24 * time.Hour
	voterGateThreshold  = 10
	spamDetectedPenalty = -5
	spamConfirmedPenalty = -50
	spamConfirmThreshold = 3
)

// Ledger wraps a Store with the EXP business rules.
type Ledger struct {
	store store.Store
	ids   *idgen.Generator
	now   func() time.Time
}

// New builds a Ledger over the given Store.
func New(s store.Store, ids *idgen.Generator) *Ledger {
	return &Ledger{store: s, ids: ids, now: time.Now}
}

// Balance returns the current total and derived level for a DID.
func (l *Ledger) Balance(ctx context.Context, did string) (total int, level int, err error) {
	bal, err := l.store.GetExpBalance(ctx, did)
	if err != nil {
		return 0, 0, err
	}
	return bal.Total, Level(bal.Total), nil
}

// Attest grants target an attestation from attestor, subject to the
// level floor, monthly quota, self-attestation ban, and one-shot
// uniqueness rules in spec.md §4.5.
func (l *Ledger) Attest(ctx context.Context, attestorDID, targetDID string) (*models.Attestation, error) {
	if attestorDID == targetDID {
		return nil, apperr.New(apperr.CodeForbidden, "cannot attest yourself")
	}

	attestor, err := l.store.GetAgent(ctx, attestorDID)
	if err != nil {
		return nil, err
	}
	target, err := l.store.GetAgent(ctx, targetDID)
	if err != nil {
		return nil, err
	}

	attestorBal, err := l.store.GetExpBalance(ctx, attestor.DID)
	if err != nil {
		return nil, err
	}
	attestorLevel := Level(attestorBal.Total)
	if attestorLevel < minAttestorLevel {
		return nil, apperr.New(apperr.CodeForbidden, "attestor level too low")
	}

	existing, err := l.store.GetAttestation(ctx, target.DID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Wrap(apperr.CodeConflict, "target already attested", apperr.ErrConflict)
	}

	since := l.now().Add(-attestorQuotaWindow).Unix()
	used, err := l.store.CountAttestationsSince(ctx, attestor.DID, since)
	if err != nil {
		return nil, err
	}
	if used >= attestorQuotaPerWin {
		return nil, apperr.New(apperr.CodeForbidden, "attestor quota exhausted for this window")
	}

	now := l.now().Unix()
	att := models.Attestation{
		ID:          l.ids.Next(),
		AgentDID:    target.DID,
		AttestorDID: attestor.DID,
		CreatedAt:   now,
	}
	if err := l.store.RecordAttestation(ctx, att); err != nil {
		return nil, err
	}

	reward := attestationReward(attestorLevel)
	if reward > 0 {
		sourceID := att.ID
		if _, err := l.store.AppendExpDelta(ctx, models.ExpDelta{
			ID:        l.ids.Next(),
			AgentDID:  target.DID,
			Amount:    reward,
			Reason:    models.ExpReasonAttestation,
			SourceID:  &sourceID,
			CreatedAt: now,
		}); err != nil {
			return nil, err
		}
	}
	return &att, nil
}

// ApplyVote records the EXP side effect of a vote's new value, gated on
// the voter's current total meeting voterGateThreshold. A voter below
// the gate never moves the author's balance (spec.md §4.5, §4.9).
func (l *Ledger) ApplyVote(ctx context.Context, authorDID, voterDID, postID string, value int) error {
	voterBal, err := l.store.GetExpBalance(ctx, voterDID)
	if err != nil {
		return err
	}
	if voterBal.Total < voterGateThreshold {
		return nil
	}

	reason := models.ExpReasonUpvoteReceived
	amount := 1
	if value < 0 {
		reason = models.ExpReasonDownvoteReceived
		amount = -1
	}
	_, err = l.store.AppendExpDelta(ctx, models.ExpDelta{
		ID:        l.ids.Next(),
		AgentDID:  authorDID,
		Amount:    amount,
		Reason:    reason,
		SourceID:  &postID,
		CreatedAt: l.now().Unix(),
	})
	return err
}

// ApplySpamDetected applies the -5 penalty when a post is admitted under
// quarantine (spec.md §4.7).
func (l *Ledger) ApplySpamDetected(ctx context.Context, authorDID, postID string) error {
	_, err := l.store.AppendExpDelta(ctx, models.ExpDelta{
		ID:        l.ids.Next(),
		AgentDID:  authorDID,
		Amount:    spamDetectedPenalty,
		Reason:    models.ExpReasonSpamDetected,
		SourceID:  &postID,
		CreatedAt: l.now().Unix(),
	})
	return err
}

// MaybeConfirmSpam applies the one-time -50 penalty once a post's
// distinct reporter count reaches spamConfirmThreshold, idempotent via
// HasExpDelta guarding on the (author, spam_confirmed, postID) triple
// (spec.md §4.10).
func (l *Ledger) MaybeConfirmSpam(ctx context.Context, authorDID, postID string) error {
	count, err := l.store.CountDistinctReporters(ctx, postID)
	if err != nil {
		return err
	}
	if count < spamConfirmThreshold {
		return nil
	}
	already, err := l.store.HasExpDelta(ctx, authorDID, models.ExpReasonSpamConfirmed, postID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}
	_, err = l.store.AppendExpDelta(ctx, models.ExpDelta{
		ID:        l.ids.Next(),
		AgentDID:  authorDID,
		Amount:    spamConfirmedPenalty,
		Reason:    models.ExpReasonSpamConfirmed,
		SourceID:  &postID,
		CreatedAt: l.now().Unix(),
	})
	return err
}
