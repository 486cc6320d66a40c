package identity

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcsenpai/lattice/pkg/didkey"
	"github.com/tcsenpai/lattice/pkg/exp"
	"github.com/tcsenpai/lattice/pkg/idgen"
	"github.com/tcsenpai/lattice/pkg/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	s := store.NewMem()
	ledger := exp.New(s, idgen.New())
	svc := New(s, ledger)
	return svc, s
}

func registerAgent(t *testing.T, svc *Service, now time.Time) (string, []byte) {
	t.Helper()
	pub, priv, err := didkey.GenerateKey()
	require.NoError(t, err)
	ts := now.UnixMilli()
	did, err := didkey.Encode(pub)
	require.NoError(t, err)
	challenge := fmt.Sprintf("REGISTER:%s:%d:%s", did, ts, base64.StdEncoding.EncodeToString(pub))
	sig := didkey.Sign(priv, []byte(challenge))

	svc.now = func() time.Time { return now }
	gotDID, err := svc.Register(context.Background(), RegisterInput{PublicKey: pub, Signature: sig, TimestampMs: ts})
	require.NoError(t, err)
	assert.Equal(t, did, gotDID)
	return gotDID, priv
}

func TestRegister_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Unix(1_700_000_000, 0)
	did, _ := registerAgent(t, svc, now)
	assert.NotEmpty(t, did)

	agent, total, level, err := svc.Agent(context.Background(), did)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, level)
	assert.Equal(t, did, agent.DID)
}

func TestRegister_RejectsBadSignature(t *testing.T) {
	svc, _ := newTestService(t)
	pub, _, err := didkey.GenerateKey()
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }

	_, err = svc.Register(context.Background(), RegisterInput{
		PublicKey: pub, Signature: []byte("not a valid signature padding to 64 bytes!!!!!!!!"), TimestampMs: now.UnixMilli(),
	})
	assert.Error(t, err)
}

func TestRegister_RejectsMalformedUsername(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Unix(1_700_000_000, 0)
	svc.now = func() time.Time { return now }

	pub, priv, err := didkey.GenerateKey()
	require.NoError(t, err)
	ts := now.UnixMilli()
	did, err := didkey.Encode(pub)
	require.NoError(t, err)
	challenge := fmt.Sprintf("REGISTER:%s:%d:%s", did, ts, base64.StdEncoding.EncodeToString(pub))
	sig := didkey.Sign(priv, []byte(challenge))

	cases := []string{"ab", "this-name-has-a-dash", "a very long username that exceeds thirty characters easily", "did_admin", "DID_whoever"}
	for _, name := range cases {
		username := name
		_, err := svc.Register(context.Background(), RegisterInput{
			PublicKey: pub, Username: &username, Signature: sig, TimestampMs: ts,
		})
		assert.Error(t, err, "expected %q to be rejected", name)
	}
}

func TestFollow_RejectsSelfFollow(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Unix(1_700_000_000, 0)
	did, _ := registerAgent(t, svc, now)

	err := svc.Follow(context.Background(), did, did)
	assert.Error(t, err)
}

func TestFollowUnfollow_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Unix(1_700_000_000, 0)
	a, _ := registerAgent(t, svc, now)
	b, _ := registerAgent(t, svc, now)

	require.NoError(t, svc.Follow(context.Background(), a, b))
	page, err := svc.Following(context.Background(), a, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, b, page.Items[0].FollowedDID)

	require.NoError(t, svc.Unfollow(context.Background(), a, b))
	page, err = svc.Following(context.Background(), a, "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 0)
}

