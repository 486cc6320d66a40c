// Package store defines the capability set Lattice's services use to
// reach persistent state. It exists so that "dynamic dispatch through an
// interface object" stays at this one seam (spec.md §9): production code
// is built against the Store interface, concrete Postgres code lives in
// store/postgres, and tests run against the in-memory MemStore in this
// package.
package store

import (
	"context"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/models"
)

// TopLevelQuery selects non-reply, non-deleted posts for the NEW / home /
// discover-newest feed variants.
type TopLevelQuery struct {
	AuthorDID   *string
	Topic       *string
	FollowingOf *string // restrict to authors followed by this DID
	Cursor      string  // exclusive: id < Cursor
	Limit       int
}

// OffsetQuery selects posts via integer offset, used by discover's
// popular/random sorts and the hot feed.
type OffsetQuery struct {
	Topic    *string
	HoursBack int // 0 means "no time filter" (popular/random); hot always sets this
	Offset   int
	Limit    int
}

// Store is the full capability set a Lattice service needs from
// persistent storage. Every write method that spans more than one row is
// internally transactional; callers never see partial state.
type Store interface {
	// Agents
	CreateAgent(ctx context.Context, agent models.Agent) error
	GetAgent(ctx context.Context, did string) (*models.Agent, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	RecordAttestation(ctx context.Context, att models.Attestation) error
	GetAttestation(ctx context.Context, agentDID string) (*models.Attestation, error)
	CountAttestationsSince(ctx context.Context, attestorDID string, since int64) (int, error)

	// Follow graph
	Follow(ctx context.Context, followerDID, followedDID string, at int64) error
	Unfollow(ctx context.Context, followerDID, followedDID string) error
	ListFollowers(ctx context.Context, did, cursor string, limit int) (models.Page[models.Follow], error)
	ListFollowing(ctx context.Context, did, cursor string, limit int) (models.Page[models.Follow], error)

	// EXP ledger. AppendExpDelta atomically inserts the delta row and
	// updates the balance, returning the resulting total.
	AppendExpDelta(ctx context.Context, delta models.ExpDelta) (newTotal int, err error)
	GetExpBalance(ctx context.Context, did string) (*models.ExpBalance, error)
	ListExpDeltas(ctx context.Context, did, cursor string, limit int) (models.Page[models.ExpDelta], error)
	HasExpDelta(ctx context.Context, did string, reason models.ExpReason, sourceID string) (bool, error)

	// Rate limiting
	GetRateLimitCount(ctx context.Context, did string, action models.ActionType, windowStart int64) (int, error)
	IncrementRateLimit(ctx context.Context, did string, action models.ActionType, windowStart int64) error
	SweepRateLimitBuckets(ctx context.Context, olderThan int64) error

	// Posts
	InsertPost(ctx context.Context, post models.Post, hashtags []string) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, post models.Post, hashtags []string) error
	SoftDeletePost(ctx context.Context, id string, reason models.DeletedReason, at int64) error
	FindRecentSimhashes(ctx context.Context, authorDID string, since int64) ([]PostSimhash, error)

	// Votes
	UpsertVote(ctx context.Context, vote models.Vote) (changed bool, previousValue int, err error)
	GetVote(ctx context.Context, postID, voterDID string) (*models.Vote, error)

	// Spam reports
	InsertReport(ctx context.Context, report models.SpamReport) error
	CountDistinctReporters(ctx context.Context, postID string) (int, error)

	// Topics
	ListTrendingTopics(ctx context.Context, limit int) ([]models.Topic, error)
	SearchTopics(ctx context.Context, prefix string, limit int) ([]models.Topic, error)

	// Feed
	ListTopLevel(ctx context.Context, q TopLevelQuery) (models.Page[models.Post], error)
	ListReplies(ctx context.Context, parentID, cursor string, limit int) (models.Page[models.Post], error)
	ListPopular(ctx context.Context, q OffsetQuery) (models.Page[models.Post], error)
	ListRandom(ctx context.Context, q OffsetQuery) (models.Page[models.Post], error)
	ListHot(ctx context.Context, q OffsetQuery) (models.Page[models.Post], error)

	Close() error
}

// PostSimhash is the narrow projection FindRecentSimhashes needs —
// duplicate detection only cares about the hash and the post's age.
type PostSimhash struct {
	PostID    string
	Simhash   string
	CreatedAt int64
}

// NotFound wraps apperr.ErrNotFound with a component-specific message,
// for store implementations to return a consistent error.
func NotFound(what string) error {
	return apperr.Wrap(apperr.CodeNotFound, what, apperr.ErrNotFound)
}

// Conflict wraps apperr.ErrConflict similarly.
func Conflict(what string) error {
	return apperr.Wrap(apperr.CodeConflict, what, apperr.ErrConflict)
}
