package store

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tcsenpai/lattice/pkg/models"
)

// MemStore is an in-memory Store used by unit tests and as the fake the
// spec's §9 design note calls for ("fakes for tests implement the same
// [capability] set"). It is not intended for production use — there is
// no persistence and every operation takes a single coarse lock.
type MemStore struct {
	mu sync.Mutex

	agents       map[string]models.Agent
	usernames    map[string]string // lowercase username -> did
	attestations map[string]models.Attestation

	follows map[string]models.Follow // key: follower+"|"+followed

	balances map[string]models.ExpBalance
	deltas   []models.ExpDelta

	rateCounters map[string]models.RateLimitCounter // key: did|action|windowStart

	posts      map[string]models.Post
	postOrder  []string // insertion order, ~= ID order
	postTopics map[string][]string // postID -> topic names
	topics     map[string]models.Topic // name -> topic (id == name here)

	votes map[string]models.Vote // key: postID|voterDID

	reports map[string]models.SpamReport // key: postID|reporterDID
}

// NewMem constructs an empty MemStore.
func NewMem() *MemStore {
	return &MemStore{
		agents:       make(map[string]models.Agent),
		usernames:    make(map[string]string),
		attestations: make(map[string]models.Attestation),
		follows:      make(map[string]models.Follow),
		balances:     make(map[string]models.ExpBalance),
		rateCounters: make(map[string]models.RateLimitCounter),
		posts:        make(map[string]models.Post),
		postTopics:   make(map[string][]string),
		topics:       make(map[string]models.Topic),
		votes:        make(map[string]models.Vote),
		reports:      make(map[string]models.SpamReport),
	}
}

func (m *MemStore) Close() error { return nil }

// --- Agents ---

func (m *MemStore) CreateAgent(_ context.Context, a models.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[a.DID]; ok {
		return Conflict("agent already registered")
	}
	if a.Username != nil {
		key := strings.ToLower(*a.Username)
		if _, ok := m.usernames[key]; ok {
			return Conflict("username already taken")
		}
		m.usernames[key] = a.DID
	}
	m.agents[a.DID] = a
	m.balances[a.DID] = models.ExpBalance{DID: a.DID, UpdatedAt: a.CreatedAt}
	return nil
}

func (m *MemStore) GetAgent(_ context.Context, did string) (*models.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[did]
	if !ok {
		return nil, NotFound("agent not found")
	}
	cp := a
	return &cp, nil
}

func (m *MemStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.usernames[strings.ToLower(username)]
	return ok, nil
}

func (m *MemStore) RecordAttestation(_ context.Context, att models.Attestation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attestations[att.AgentDID]; ok {
		return Conflict("agent already attested")
	}
	a, ok := m.agents[att.AgentDID]
	if !ok {
		return NotFound("agent not found")
	}
	m.attestations[att.AgentDID] = att
	attestor := att.AttestorDID
	at := att.CreatedAt
	a.AttestedBy = &attestor
	a.AttestedAt = &at
	m.agents[att.AgentDID] = a
	return nil
}

func (m *MemStore) GetAttestation(_ context.Context, agentDID string) (*models.Attestation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	att, ok := m.attestations[agentDID]
	if !ok {
		return nil, nil
	}
	cp := att
	return &cp, nil
}

func (m *MemStore) CountAttestationsSince(_ context.Context, attestorDID string, since int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, att := range m.attestations {
		if att.AttestorDID == attestorDID && att.CreatedAt >= since {
			n++
		}
	}
	return n, nil
}

// --- Follow graph ---

func followKey(a, b string) string { return a + "|" + b }

func (m *MemStore) Follow(_ context.Context, follower, followed string, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := followKey(follower, followed)
	if _, ok := m.follows[k]; ok {
		return nil // idempotent no-op
	}
	m.follows[k] = models.Follow{FollowerDID: follower, FollowedDID: followed, CreatedAt: at}
	return nil
}

func (m *MemStore) Unfollow(_ context.Context, follower, followed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.follows, followKey(follower, followed))
	return nil
}

func (m *MemStore) ListFollowers(_ context.Context, did, cursor string, limit int) (models.Page[models.Follow], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Follow
	for _, f := range m.follows {
		if f.FollowedDID == did {
			all = append(all, f)
		}
	}
	return paginateFollows(all, cursor, limit, func(f models.Follow) string { return f.FollowerDID }), nil
}

func (m *MemStore) ListFollowing(_ context.Context, did, cursor string, limit int) (models.Page[models.Follow], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Follow
	for _, f := range m.follows {
		if f.FollowerDID == did {
			all = append(all, f)
		}
	}
	return paginateFollows(all, cursor, limit, func(f models.Follow) string { return f.FollowedDID }), nil
}

func paginateFollows(all []models.Follow, cursor string, limit int, key func(models.Follow) string) models.Page[models.Follow] {
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt > all[j].CreatedAt
		}
		return key(all[i]) > key(all[j])
	})
	start := 0
	if cursor != "" {
		for i, f := range all {
			if key(f) == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	hasMore := false
	if end < len(all) {
		hasMore = true
	} else {
		end = len(all)
	}
	items := append([]models.Follow{}, all[start:end]...)
	return models.Page[models.Follow]{Items: items, HasMore: hasMore, Total: len(all)}
}

func (m *MemStore) followingSet(did string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range m.follows {
		if f.FollowerDID == did {
			set[f.FollowedDID] = true
		}
	}
	return set
}

// --- EXP ledger ---

func (m *MemStore) AppendExpDelta(_ context.Context, d models.ExpDelta) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas = append(m.deltas, d)
	bal := m.balances[d.AgentDID]
	bal.DID = d.AgentDID
	bal.Total += d.Amount
	bal.UpdatedAt = d.CreatedAt
	m.balances[d.AgentDID] = bal
	return bal.Total, nil
}

func (m *MemStore) GetExpBalance(_ context.Context, did string) (*models.ExpBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[did]
	if !ok {
		return &models.ExpBalance{DID: did}, nil
	}
	cp := b
	return &cp, nil
}

func (m *MemStore) ListExpDeltas(_ context.Context, did, cursor string, limit int) (models.Page[models.ExpDelta], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.ExpDelta
	for _, d := range m.deltas {
		if d.AgentDID == did {
			all = append(all, d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	start := 0
	if cursor != "" {
		for i, d := range all {
			if d.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	hasMore := end < len(all)
	if !hasMore {
		end = len(all)
	}
	return models.Page[models.ExpDelta]{Items: append([]models.ExpDelta{}, all[start:end]...), HasMore: hasMore, Total: len(all)}, nil
}

func (m *MemStore) HasExpDelta(_ context.Context, did string, reason models.ExpReason, sourceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deltas {
		if d.AgentDID == did && d.Reason == reason && d.SourceID != nil && *d.SourceID == sourceID {
			return true, nil
		}
	}
	return false, nil
}

// --- Rate limiting ---

func rateKey(did string, action models.ActionType, windowStart int64) string {
	return did + "|" + string(action) + "|" + itoa(windowStart)
}

func (m *MemStore) GetRateLimitCount(_ context.Context, did string, action models.ActionType, windowStart int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rateCounters[rateKey(did, action, windowStart)]
	if !ok {
		return 0, nil
	}
	return c.Count, nil
}

func (m *MemStore) IncrementRateLimit(_ context.Context, did string, action models.ActionType, windowStart int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rateKey(did, action, windowStart)
	c := m.rateCounters[k]
	c.DID, c.ActionType, c.WindowStart = did, action, windowStart
	c.Count++
	m.rateCounters[k] = c
	return nil
}

func (m *MemStore) SweepRateLimitBuckets(_ context.Context, olderThan int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.rateCounters {
		if c.WindowStart < olderThan {
			delete(m.rateCounters, k)
		}
	}
	return nil
}

// --- Posts ---

func (m *MemStore) InsertPost(_ context.Context, p models.Post, hashtags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; ok {
		return Conflict("post id already exists")
	}
	m.posts[p.ID] = p
	m.postOrder = append(m.postOrder, p.ID)
	m.applyTopics(p.ID, hashtags)
	return nil
}

func (m *MemStore) applyTopics(postID string, hashtags []string) {
	for _, old := range m.postTopics[postID] {
		if t, ok := m.topics[old]; ok {
			t.PostCount--
			m.topics[old] = t
		}
	}
	seen := make(map[string]bool)
	var names []string
	for _, h := range hashtags {
		h = strings.ToLower(h)
		if seen[h] {
			continue
		}
		seen[h] = true
		names = append(names, h)
		t, ok := m.topics[h]
		if !ok {
			t = models.Topic{ID: h, Name: h}
		}
		t.PostCount++
		m.topics[h] = t
	}
	m.postTopics[postID] = names
}

func (m *MemStore) GetPost(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, NotFound("post not found")
	}
	m.fillDerivedLocked(&p)
	return &p, nil
}

func (m *MemStore) fillDerivedLocked(p *models.Post) {
	replies, up, down := 0, 0, 0
	for _, other := range m.posts {
		if other.ParentID != nil && *other.ParentID == p.ID && !other.Deleted {
			replies++
		}
	}
	for _, v := range m.votes {
		if v.PostID == p.ID {
			if v.Value > 0 {
				up++
			} else {
				down++
			}
		}
	}
	p.ReplyCount, p.Upvotes, p.Downvotes = replies, up, down
}

func (m *MemStore) UpdatePost(_ context.Context, p models.Post, hashtags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return NotFound("post not found")
	}
	m.posts[p.ID] = p
	m.applyTopics(p.ID, hashtags)
	return nil
}

func (m *MemStore) SoftDeletePost(_ context.Context, id string, reason models.DeletedReason, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return NotFound("post not found")
	}
	p.Deleted = true
	p.DeletedAt = &at
	p.DeletedReason = &reason
	m.posts[id] = p
	return nil
}

func (m *MemStore) FindRecentSimhashes(_ context.Context, authorDID string, since int64) ([]PostSimhash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PostSimhash
	for _, p := range m.posts {
		if p.AuthorDID == authorDID && !p.Deleted && p.CreatedAt >= since {
			out = append(out, PostSimhash{PostID: p.ID, Simhash: p.Simhash, CreatedAt: p.CreatedAt})
		}
	}
	return out, nil
}

// --- Votes ---

func voteKey(postID, voterDID string) string { return postID + "|" + voterDID }

func (m *MemStore) UpsertVote(_ context.Context, v models.Vote) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := voteKey(v.PostID, v.VoterDID)
	existing, ok := m.votes[k]
	if ok && existing.Value == v.Value {
		return false, existing.Value, nil
	}
	prev := 0
	if ok {
		prev = existing.Value
	}
	m.votes[k] = v
	return true, prev, nil
}

func (m *MemStore) GetVote(_ context.Context, postID, voterDID string) (*models.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[voteKey(postID, voterDID)]
	if !ok {
		return nil, nil
	}
	cp := v
	return &cp, nil
}

// --- Spam reports ---

func reportKey(postID, reporterDID string) string { return postID + "|" + reporterDID }

func (m *MemStore) InsertReport(_ context.Context, r models.SpamReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := reportKey(r.PostID, r.ReporterDID)
	if _, ok := m.reports[k]; ok {
		return Conflict("already reported")
	}
	m.reports[k] = r
	return nil
}

func (m *MemStore) CountDistinctReporters(_ context.Context, postID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reports {
		if r.PostID == postID {
			n++
		}
	}
	return n, nil
}

// --- Topics ---

func (m *MemStore) ListTrendingTopics(_ context.Context, limit int) ([]models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.Topic
	for _, t := range m.topics {
		if t.PostCount > 0 {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].PostCount != all[j].PostCount {
			return all[i].PostCount > all[j].PostCount
		}
		return all[i].Name < all[j].Name
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MemStore) SearchTopics(_ context.Context, prefix string, limit int) ([]models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix = strings.ToLower(prefix)
	var all []models.Topic
	for _, t := range m.topics {
		if strings.HasPrefix(t.Name, prefix) {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// --- Feed ---

func (m *MemStore) visiblePosts(topLevel bool, parentID *string) []models.Post {
	var out []models.Post
	for _, p := range m.posts {
		if p.Deleted {
			continue
		}
		if topLevel && p.ParentID != nil {
			continue
		}
		if !topLevel && (p.ParentID == nil || *p.ParentID != *parentID) {
			continue
		}
		cp := p
		m.fillDerivedLocked(&cp)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *MemStore) hasTopic(postID, topic string) bool {
	for _, t := range m.postTopics[postID] {
		if t == strings.ToLower(topic) {
			return true
		}
	}
	return false
}

func (m *MemStore) ListTopLevel(_ context.Context, q TopLevelQuery) (models.Page[models.Post], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.visiblePosts(true, nil)

	var following map[string]bool
	if q.FollowingOf != nil {
		following = m.followingSet(*q.FollowingOf)
	}

	var filtered []models.Post
	for _, p := range all {
		if q.AuthorDID != nil && p.AuthorDID != *q.AuthorDID {
			continue
		}
		if q.Topic != nil && !m.hasTopic(p.ID, *q.Topic) {
			continue
		}
		if following != nil && !following[p.AuthorDID] {
			continue
		}
		if q.Cursor != "" && p.ID >= q.Cursor {
			continue
		}
		filtered = append(filtered, p)
	}

	total := len(filtered)
	limit := q.Limit
	hasMore := len(filtered) > limit
	if hasMore {
		filtered = filtered[:limit]
	}
	return models.Page[models.Post]{Items: filtered, HasMore: hasMore, Total: total}, nil
}

func (m *MemStore) ListReplies(_ context.Context, parentID, cursor string, limit int) (models.Page[models.Post], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.visiblePosts(false, &parentID)
	var filtered []models.Post
	for _, p := range all {
		if cursor != "" && p.ID >= cursor {
			continue
		}
		filtered = append(filtered, p)
	}
	total := len(filtered)
	hasMore := len(filtered) > limit
	if hasMore {
		filtered = filtered[:limit]
	}
	return models.Page[models.Post]{Items: filtered, HasMore: hasMore, Total: total}, nil
}

func popularScore(p models.Post) int {
	return p.ReplyCount*2 + p.Upvotes - p.Downvotes
}

func (m *MemStore) ListPopular(_ context.Context, q OffsetQuery) (models.Page[models.Post], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.visiblePosts(true, nil) // already ID desc
	var filtered []models.Post
	for _, p := range all {
		if q.Topic != nil && !m.hasTopic(p.ID, *q.Topic) {
			continue
		}
		filtered = append(filtered, p)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		si, sj := popularScore(filtered[i]), popularScore(filtered[j])
		if si != sj {
			return si > sj
		}
		return filtered[i].ID > filtered[j].ID
	})
	return offsetPage(filtered, q.Offset, q.Limit), nil
}

func (m *MemStore) ListRandom(_ context.Context, q OffsetQuery) (models.Page[models.Post], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.visiblePosts(true, nil)
	var filtered []models.Post
	for _, p := range all {
		if q.Topic != nil && !m.hasTopic(p.ID, *q.Topic) {
			continue
		}
		filtered = append(filtered, p)
	}
	rand.Shuffle(len(filtered), func(i, j int) { filtered[i], filtered[j] = filtered[j], filtered[i] })
	return offsetPage(filtered, q.Offset, q.Limit), nil
}

func hotScore(p models.Post, now int64) float64 {
	ageHours := float64(now-p.CreatedAt) / 3600.0
	if ageHours < 0 {
		ageHours = 0
	}
	numer := float64(p.ReplyCount*2 + p.Upvotes - p.Downvotes)
	denom := math.Pow(ageHours+2, 1.5)
	return numer / denom
}

func (m *MemStore) ListHot(_ context.Context, q OffsetQuery) (models.Page[models.Post], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.visiblePosts(true, nil)
	now := time.Now().Unix()
	cutoff := now - int64(q.HoursBack)*3600
	var filtered []models.Post
	for _, p := range all {
		if q.HoursBack > 0 && p.CreatedAt < cutoff {
			continue
		}
		if q.Topic != nil && !m.hasTopic(p.ID, *q.Topic) {
			continue
		}
		filtered = append(filtered, p)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		si, sj := hotScore(filtered[i], now), hotScore(filtered[j], now)
		if si != sj {
			return si > sj
		}
		return filtered[i].ID > filtered[j].ID
	})
	return offsetPage(filtered, q.Offset, q.Limit), nil
}

func offsetPage(all []models.Post, offset, limit int) models.Page[models.Post] {
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	hasMore := end < total
	if end > total {
		end = total
	}
	return models.Page[models.Post]{Items: append([]models.Post{}, all[offset:end]...), HasMore: hasMore, Total: total}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
