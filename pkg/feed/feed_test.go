package feed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcsenpai/lattice/pkg/exp"
	"github.com/tcsenpai/lattice/pkg/idgen"
	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/store"
)

func TestExcerpt_ShortContentUnchanged(t *testing.T) {
	assert.Equal(t, "hello world", Excerpt("hello world"))
}

func TestExcerpt_FirstTwoSentences(t *testing.T) {
	assert.Equal(t, "One. Two.", Excerpt("One. Two. Three. Four."))
}

func TestExcerpt_WordBoundaryTruncation(t *testing.T) {
	long := strings.Repeat("word ", 100) // no sentence punctuation, 500 chars
	out := Excerpt(long)
	assert.True(t, strings.HasSuffix(out, "…"))
	assert.LessOrEqual(t, len([]rune(out)), maxExcerptChars+1)
}

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	s := store.NewMem()
	ledger := exp.New(s, idgen.New())
	return New(s, ledger), s
}

func TestService_NewFeedOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	require.NoError(t, s.CreateAgent(ctx, models.Agent{DID: "did:key:zA", CreatedAt: 1}))

	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "01AAAA", AuthorDID: "did:key:zA", Content: "first", CreatedAt: 1}, nil))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "01BBBB", AuthorDID: "did:key:zA", Content: "second", CreatedAt: 2}, nil))

	page, err := svc.New(ctx, nil, nil, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "01BBBB", page.Items[0].ID)
	assert.Equal(t, "did:key:zA", page.Items[0].Author.DID)
}

func TestService_HomeFiltersToFollowing(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	require.NoError(t, s.CreateAgent(ctx, models.Agent{DID: "did:key:zA", CreatedAt: 1}))
	require.NoError(t, s.CreateAgent(ctx, models.Agent{DID: "did:key:zB", CreatedAt: 1}))
	require.NoError(t, s.CreateAgent(ctx, models.Agent{DID: "did:key:zViewer", CreatedAt: 1}))

	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "01AAAA", AuthorDID: "did:key:zA", Content: "from a", CreatedAt: 1}, nil))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "01BBBB", AuthorDID: "did:key:zB", Content: "from b", CreatedAt: 2}, nil))
	require.NoError(t, s.Follow(ctx, "did:key:zViewer", "did:key:zA", 1))

	page, err := svc.Home(ctx, "did:key:zViewer", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "did:key:zA", page.Items[0].Author.DID)
}

func TestService_HotDefaultsAndCapsHours(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)
	require.NoError(t, s.CreateAgent(ctx, models.Agent{DID: "did:key:zA", CreatedAt: 1}))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "01AAAA", AuthorDID: "did:key:zA", Content: "hot", CreatedAt: 1}, nil))

	_, err := svc.Hot(ctx, nil, 0, 0, 10)
	require.NoError(t, err)
	_, err = svc.Hot(ctx, nil, 10000, 0, 10)
	require.NoError(t, err)
}
