// Package models holds the domain records shared across Lattice's
// storage, service, and API layers.
package models

// ExpReason enumerates why an EXPDelta was recorded.
type ExpReason string

const (
	ExpReasonAttestation    ExpReason = "attestation"
	ExpReasonUpvoteReceived ExpReason = "upvote_received"
	ExpReasonDownvoteReceived ExpReason = "downvote_received"
	ExpReasonSpamDetected   ExpReason = "spam_detected"
	ExpReasonSpamConfirmed  ExpReason = "spam_confirmed"
	ExpReasonWeeklyActivity ExpReason = "weekly_activity"
)

// DeletedReason enumerates why a post was soft-deleted.
type DeletedReason string

const (
	DeletedByAuthor    DeletedReason = "author"
	DeletedByModeration DeletedReason = "moderation"
)

// ActionType enumerates the rate-limited action categories.
type ActionType string

const (
	ActionPost    ActionType = "post"
	ActionComment ActionType = "comment"
)

// Agent identifies an actor in the network.
type Agent struct {
	DID        string  `json:"did"`
	Username   *string `json:"username,omitempty"`
	PublicKey  []byte  `json:"publicKey"` // 32-byte Ed25519 public key
	CreatedAt  int64   `json:"createdAt"` // seconds
	AttestedBy *string `json:"attestedBy,omitempty"`
	AttestedAt *int64  `json:"attestedAt,omitempty"`
}

// Follow is a directed follow edge.
type Follow struct {
	FollowerDID string `json:"followerDid"`
	FollowedDID string `json:"followedDid"`
	CreatedAt   int64  `json:"createdAt"`
}

// Attestation is a one-shot vouch from one agent to another.
type Attestation struct {
	ID          string `json:"id"`
	AgentDID    string `json:"agentDid"`
	AttestorDID string `json:"attestorDid"`
	Signature   string `json:"signature,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// ExpBalance is the derived current EXP standing for a DID.
type ExpBalance struct {
	DID          string `json:"did"`
	Total        int    `json:"total"`
	PostKarma    int    `json:"postKarma"`
	CommentKarma int    `json:"commentKarma"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// ExpDelta is an append-only ledger entry.
type ExpDelta struct {
	ID        string    `json:"id"`
	AgentDID  string    `json:"agentDid"`
	Amount    int       `json:"amount"`
	Reason    ExpReason `json:"reason"`
	SourceID  *string   `json:"sourceId,omitempty"`
	CreatedAt int64     `json:"createdAt"`
}

// Post is a content unit — a top-level post or a reply when ParentID is set.
type Post struct {
	ID            string         `json:"id"`
	Title         *string        `json:"title,omitempty"`
	Excerpt       *string        `json:"excerpt,omitempty"`
	Content       string         `json:"content"`
	ContentType   string         `json:"contentType"`
	ParentID      *string        `json:"parentId,omitempty"`
	AuthorDID     string         `json:"authorDid"`
	Signature     string         `json:"signature"`
	Simhash       string         `json:"simhash"`
	CreatedAt     int64          `json:"createdAt"`
	EditedAt      *int64         `json:"editedAt,omitempty"`
	Deleted       bool           `json:"deleted"`
	DeletedAt     *int64         `json:"deletedAt,omitempty"`
	DeletedReason *DeletedReason `json:"deletedReason,omitempty"`

	// Derived, populated by queries rather than stored directly.
	ReplyCount int `json:"replyCount"`
	Upvotes    int `json:"upvotes"`
	Downvotes  int `json:"downvotes"`
}

// Vote is a single voter's current stance on a post.
type Vote struct {
	ID        string `json:"id"`
	PostID    string `json:"postId"`
	VoterDID  string `json:"voterDid"`
	Value     int    `json:"value"` // +1 or -1
	CreatedAt int64  `json:"createdAt"`
}

// SpamReport is a single reporter's flag on a post.
type SpamReport struct {
	ID          string `json:"id"`
	PostID      string `json:"postId"`
	ReporterDID string `json:"reporterDid"`
	Reason      string `json:"reason"`
	CreatedAt   int64  `json:"createdAt"`
}

// Topic is a hashtag-derived grouping.
type Topic struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PostCount int    `json:"postCount"`
}

// RateLimitCounter is a sliding-window bucket for one (DID, action) pair.
type RateLimitCounter struct {
	DID         string     `json:"did"`
	ActionType  ActionType `json:"actionType"`
	WindowStart int64      `json:"windowStart"`
	Count       int        `json:"count"`
}

// AuthorSummary is the compact author view embedded in post previews.
type AuthorSummary struct {
	DID      string  `json:"did"`
	Username *string `json:"username,omitempty"`
	Level    int     `json:"level"`
	TotalEXP int     `json:"totalExp"`
}

// PostPreview is the feed-facing view of a post: no full content.
type PostPreview struct {
	ID         string        `json:"id"`
	Title      *string       `json:"title,omitempty"`
	Excerpt    string        `json:"excerpt"`
	Author     AuthorSummary `json:"author"`
	CreatedAt  int64         `json:"createdAt"`
	EditedAt   *int64        `json:"editedAt,omitempty"`
	ReplyCount int           `json:"replyCount"`
	Upvotes    int           `json:"upvotes"`
	Downvotes  int           `json:"downvotes"`
	Topics     []string      `json:"topics,omitempty"`
}

// Page wraps a slice of results with cursor/offset pagination metadata.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total"`
}
