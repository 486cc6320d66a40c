// Package noncecache guards against request replay by remembering which
// (DID, nonce) pairs have already been seen within the signing window.
// It is bounded rather than durable: an agent that floods distinct nonces
// faster than they expire can evict older entries early, which only
// widens the replay window for those evicted entries — it never narrows
// the window for current traffic.
package noncecache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCapacity = 100_000

type entry struct {
	expiresAt time.Time
}

// Cache is a bounded, TTL-aware set of seen (DID, nonce) pairs.
type Cache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, entry]
	ttl   time.Duration
	now   func() time.Time
}

// New builds a Cache holding at most capacity entries, each valid for ttl
// past insertion. capacity <= 0 selects defaultCapacity.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	l, err := lru.New[string, entry](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0, already guarded above.
		panic(err)
	}
	return &Cache{lru: l, ttl: ttl, now: time.Now}
}

func key(did, nonce string) string { return did + "|" + nonce }

// SeenOrRecord atomically checks whether (did, nonce) has already been
// recorded and not yet expired, and if not, records it. It returns true
// when the pair was already present (a replay), false when it was fresh.
func (c *Cache) SeenOrRecord(did, nonce string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(did, nonce)
	now := c.now()
	if e, ok := c.lru.Get(k); ok {
		if now.Before(e.expiresAt) {
			return true
		}
		// Expired entry for the same key: treat as fresh and overwrite.
	}
	c.lru.Add(k, entry{expiresAt: now.Add(c.ttl)})
	return false
}

// Len reports the number of entries currently tracked, including any
// that have logically expired but not yet been evicted or overwritten.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
