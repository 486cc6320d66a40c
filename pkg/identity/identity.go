// Package identity implements agent registration (proof-of-possession),
// the follow graph, and attestation requests (spec.md §4.4, §4.5's
// attestation surface). EXP accounting itself lives in pkg/exp; this
// package is the HTTP-facing layer that calls into it.
package identity

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/didkey"
	"github.com/tcsenpai/lattice/pkg/exp"
	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/spam"
	"github.com/tcsenpai/lattice/pkg/store"
)

const maxTimestampSkew = 5 * time.Minute

var usernameShape = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// validUsername enforces spec.md §3's username invariant: 3-30 chars of
// [A-Za-z0-9_], and never starting with "did" (case-insensitive), so
// usernames can't be mistaken for raw DIDs.
func validUsername(u string) bool {
	if !usernameShape.MatchString(u) {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(u), "did")
}

// Service composes the agent/follow/attestation operations.
type Service struct {
	store  store.Store
	ledger *exp.Ledger
	now    func() time.Time
}

// New builds an identity Service.
func New(s store.Store, ledger *exp.Ledger) *Service {
	return &Service{store: s, ledger: ledger, now: time.Now}
}

// RegisterInput is the proof-of-possession registration payload
// (spec.md §4.4).
type RegisterInput struct {
	PublicKey   ed25519.PublicKey
	Username    *string
	Signature   []byte
	TimestampMs int64
}

// Register derives a DID from the supplied public key, verifies the
// registration challenge signature, and binds the key to the DID exactly
// once.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if len(in.PublicKey) != ed25519.PublicKeySize {
		return "", apperr.New(apperr.CodeValidationError, "publicKey must be 32 bytes")
	}
	if in.Username != nil {
		if !validUsername(*in.Username) {
			return "", apperr.New(apperr.CodeValidationError, `username must be 3-30 chars of [A-Za-z0-9_] and cannot start with "did"`)
		}
		if spam.UsernameRejects(*in.Username) {
			return "", apperr.New(apperr.CodeValidationError, "username rejected")
		}
	}

	now := s.now()
	if skew := now.Sub(time.UnixMilli(in.TimestampMs)); skew > maxTimestampSkew || skew < -maxTimestampSkew {
		return "", apperr.New(apperr.CodeAuthTimestampInvalid, "registration timestamp outside allowed skew")
	}

	did, err := didkey.Encode(in.PublicKey)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeValidationError, "invalid public key", err)
	}

	challenge := fmt.Sprintf("REGISTER:%s:%d:%s", did, in.TimestampMs, base64.StdEncoding.EncodeToString(in.PublicKey))
	if !didkey.Verify(in.PublicKey, []byte(challenge), in.Signature) {
		return "", apperr.New(apperr.CodeAuthInvalidRegistrationSignature, "registration signature invalid")
	}

	if in.Username != nil {
		taken, err := s.store.UsernameTaken(ctx, *in.Username)
		if err != nil {
			return "", err
		}
		if taken {
			return "", apperr.Wrap(apperr.CodeConflict, "username already taken", apperr.ErrConflict)
		}
	}

	agent := models.Agent{
		DID:       did,
		Username:  in.Username,
		PublicKey: in.PublicKey,
		CreatedAt: now.Unix(),
	}
	if err := s.store.CreateAgent(ctx, agent); err != nil {
		return "", err
	}
	return did, nil
}

// Agent fetches an agent's public profile, merging EXP.
func (s *Service) Agent(ctx context.Context, did string) (*models.Agent, int, int, error) {
	agent, err := s.store.GetAgent(ctx, did)
	if err != nil {
		return nil, 0, 0, err
	}
	total, level, err := s.ledger.Balance(ctx, did)
	if err != nil {
		return nil, 0, 0, err
	}
	return agent, total, level, nil
}

// Follow creates a follow edge from followerDID to followedDID.
func (s *Service) Follow(ctx context.Context, followerDID, followedDID string) error {
	if followerDID == followedDID {
		return apperr.New(apperr.CodeForbidden, "cannot follow yourself")
	}
	if _, err := s.store.GetAgent(ctx, followedDID); err != nil {
		return err
	}
	return s.store.Follow(ctx, followerDID, followedDID, s.now().Unix())
}

// Unfollow removes a follow edge, idempotently.
func (s *Service) Unfollow(ctx context.Context, followerDID, followedDID string) error {
	return s.store.Unfollow(ctx, followerDID, followedDID)
}

// Followers paginates the agents following did.
func (s *Service) Followers(ctx context.Context, did, cursor string, limit int) (models.Page[models.Follow], error) {
	return s.store.ListFollowers(ctx, did, cursor, limit)
}

// Following paginates the agents did follows.
func (s *Service) Following(ctx context.Context, did, cursor string, limit int) (models.Page[models.Follow], error) {
	return s.store.ListFollowing(ctx, did, cursor, limit)
}

// Attest delegates to the EXP ledger's attestation rules.
func (s *Service) Attest(ctx context.Context, attestorDID, targetDID string) (*models.Attestation, error) {
	return s.ledger.Attest(ctx, attestorDID, targetDID)
}

// AttestationOf returns the attestation recorded against did, if any.
func (s *Service) AttestationOf(ctx context.Context, did string) (*models.Attestation, error) {
	return s.store.GetAttestation(ctx, did)
}
