package idgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_LengthAndAlphabet(t *testing.T) {
	g := New()
	id := g.Next()
	require.Len(t, id, encodedLen)
	assert.True(t, Valid(id))
}

func TestNext_MonotonicWithinSameMs(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	g := NewWithClock(func() time.Time { return fixed })

	var ids []string
	for i := 0; i < 50; i++ {
		ids = append(ids, g.Next())
	}
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i], "ULIDs minted in the same ms must sort in mint order")
	}
}

func TestNext_MonotonicAcrossMs(t *testing.T) {
	ms := int64(1_700_000_000_000)
	g := NewWithClock(func() time.Time {
		t := time.UnixMilli(ms)
		ms++
		return t
	})
	prev := g.Next()
	for i := 0; i < 10; i++ {
		next := g.Next()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestTimestamp_RoundTrip(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_123)
	g := NewWithClock(func() time.Time { return fixed })
	id := g.Next()

	ts, err := Timestamp(id)
	require.NoError(t, err)
	assert.Equal(t, fixed.UnixMilli(), ts.UnixMilli())
}

func TestTimestamp_InvalidInput(t *testing.T) {
	_, err := Timestamp("too-short")
	assert.Error(t, err)

	_, err = Timestamp("!!!!!!!!!!!!!!!!!!!!!!!!!!")
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	g := New()
	assert.True(t, Valid(g.Next()))
	assert.False(t, Valid("not-a-ulid"))
	assert.False(t, Valid(""))
}
