package noncecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeenOrRecord_FirstUseIsFresh(t *testing.T) {
	c := New(10, time.Minute)
	assert.False(t, c.SeenOrRecord("did:key:zA", "nonce-1"))
}

func TestSeenOrRecord_ReplayDetected(t *testing.T) {
	c := New(10, time.Minute)
	require.False(t, c.SeenOrRecord("did:key:zA", "nonce-1"))
	assert.True(t, c.SeenOrRecord("did:key:zA", "nonce-1"))
}

func TestSeenOrRecord_DistinctDIDsDoNotCollide(t *testing.T) {
	c := New(10, time.Minute)
	require.False(t, c.SeenOrRecord("did:key:zA", "nonce-1"))
	assert.False(t, c.SeenOrRecord("did:key:zB", "nonce-1"))
}

func TestSeenOrRecord_ExpiredEntryIsFreshAgain(t *testing.T) {
	fakeNow := time.Unix(1_700_000_000, 0)
	c := New(10, time.Second)
	c.now = func() time.Time { return fakeNow }

	require.False(t, c.SeenOrRecord("did:key:zA", "nonce-1"))
	fakeNow = fakeNow.Add(2 * time.Second)
	assert.False(t, c.SeenOrRecord("did:key:zA", "nonce-1"))
}

func TestNew_CapacityEviction(t *testing.T) {
	c := New(2, time.Minute)
	c.SeenOrRecord("did:key:zA", "n1")
	c.SeenOrRecord("did:key:zA", "n2")
	c.SeenOrRecord("did:key:zA", "n3")
	assert.LessOrEqual(t, c.Len(), 2)
}
