package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcsenpai/lattice/pkg/models"
)

func TestMemStore_AgentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMem()

	username := "alice"
	err := s.CreateAgent(ctx, models.Agent{DID: "did:key:zAlice", Username: &username, CreatedAt: 100})
	require.NoError(t, err)

	err = s.CreateAgent(ctx, models.Agent{DID: "did:key:zAlice", CreatedAt: 100})
	assert.Error(t, err)

	taken, err := s.UsernameTaken(ctx, "ALICE")
	require.NoError(t, err)
	assert.True(t, taken)

	got, err := s.GetAgent(ctx, "did:key:zAlice")
	require.NoError(t, err)
	assert.Equal(t, "alice", *got.Username)

	_, err = s.GetAgent(ctx, "did:key:zNobody")
	assert.Error(t, err)
}

func TestMemStore_ExpLedgerIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMem()
	require.NoError(t, s.CreateAgent(ctx, models.Agent{DID: "did:key:zBob", CreatedAt: 1}))

	total, err := s.AppendExpDelta(ctx, models.ExpDelta{ID: "d1", AgentDID: "did:key:zBob", Amount: 10, Reason: models.ExpReasonAttestation, CreatedAt: 2})
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	total, err = s.AppendExpDelta(ctx, models.ExpDelta{ID: "d2", AgentDID: "did:key:zBob", Amount: -3, Reason: models.ExpReasonSpamDetected, CreatedAt: 3})
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	bal, err := s.GetExpBalance(ctx, "did:key:zBob")
	require.NoError(t, err)
	assert.Equal(t, 7, bal.Total)
}

func TestMemStore_VoteUpsertSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewMem()

	changed, prev, err := s.UpsertVote(ctx, models.Vote{ID: "v1", PostID: "p1", VoterDID: "did:key:zV", Value: 1, CreatedAt: 1})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, prev)

	changed, prev, err = s.UpsertVote(ctx, models.Vote{ID: "v1", PostID: "p1", VoterDID: "did:key:zV", Value: 1, CreatedAt: 2})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, prev, err = s.UpsertVote(ctx, models.Vote{ID: "v2", PostID: "p1", VoterDID: "did:key:zV", Value: -1, CreatedAt: 3})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, prev)
}

func TestMemStore_PostFeedAndTopics(t *testing.T) {
	ctx := context.Background()
	s := NewMem()

	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "01AAAA", AuthorDID: "did:key:zA", Content: "hello #go", CreatedAt: 1}, []string{"go"}))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "01BBBB", AuthorDID: "did:key:zA", Content: "world #rust", CreatedAt: 2}, []string{"rust"}))

	page, err := s.ListTopLevel(ctx, TopLevelQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "01BBBB", page.Items[0].ID) // newest first

	topic := "go"
	page, err = s.ListTopLevel(ctx, TopLevelQuery{Topic: &topic, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "01AAAA", page.Items[0].ID)

	topics, err := s.ListTrendingTopics(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, topics, 2)
}

func TestMemStore_SoftDeleteExcludesFromFeed(t *testing.T) {
	ctx := context.Background()
	s := NewMem()
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "01CCCC", AuthorDID: "did:key:zA", Content: "bye", CreatedAt: 1}, nil))
	require.NoError(t, s.SoftDeletePost(ctx, "01CCCC", models.DeletedByAuthor, 5))

	page, err := s.ListTopLevel(ctx, TopLevelQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 0)
}

func TestMemStore_SpamReportThreshold(t *testing.T) {
	ctx := context.Background()
	s := NewMem()
	require.NoError(t, s.InsertReport(ctx, models.SpamReport{ID: "r1", PostID: "p1", ReporterDID: "did:key:z1"}))
	require.NoError(t, s.InsertReport(ctx, models.SpamReport{ID: "r2", PostID: "p1", ReporterDID: "did:key:z2"}))
	err := s.InsertReport(ctx, models.SpamReport{ID: "r3", PostID: "p1", ReporterDID: "did:key:z1"})
	assert.Error(t, err) // same reporter twice

	n, err := s.CountDistinctReporters(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
