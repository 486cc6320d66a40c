package auth

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/didkey"
	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/noncecache"
	"github.com/tcsenpai/lattice/pkg/store"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, string, func(method, path string, body []byte) Envelope, func()) {
	t.Helper()
	s := store.NewMem()
	pub, priv, err := didkey.GenerateKey()
	require.NoError(t, err)
	did, err := didkey.Encode(pub)
	require.NoError(t, err)
	require.NoError(t, s.CreateAgent(context.Background(), models.Agent{DID: did, PublicKey: pub, CreatedAt: 1000}))

	nonces := noncecache.New(10, time.Minute)
	a := New(s, nonces)
	fixedNow := time.UnixMilli(2_000_000)
	a.now = func() time.Time { return fixedNow }

	sign := func(method, path string, body []byte) Envelope {
		nonce := uuid.New().String()
		ts := fixedNow.UnixMilli()
		msg := CanonicalMessage(method, path, ts, nonce, body)
		sig := didkey.Sign(priv, msg)
		return Envelope{
			DID: did, Signature: base64.StdEncoding.EncodeToString(sig), Timestamp: ts, Nonce: nonce,
			Method: method, Path: path, Body: body,
		}
	}
	return a, did, sign, func() {}
}

func TestAuthenticate_RoundTrip(t *testing.T) {
	a, did, sign, _ := newTestAuthenticator(t)
	env := sign("POST", "/posts", []byte(`{"content":"hello"}`))

	agent, err := a.Authenticate(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, did, agent.DID)
}

func TestAuthenticate_RejectsReplay(t *testing.T) {
	a, _, sign, _ := newTestAuthenticator(t)
	env := sign("POST", "/posts", []byte("body"))

	_, err := a.Authenticate(context.Background(), env)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), env)
	appErr, ok := apperr.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeAuthReplayDetected, appErr.Code)
}

func TestAuthenticate_RejectsStaleTimestamp(t *testing.T) {
	a, _, sign, _ := newTestAuthenticator(t)
	env := sign("GET", "/feed", nil)
	env.Timestamp -= (10 * time.Minute).Milliseconds()

	_, err := a.Authenticate(context.Background(), env)
	appErr, ok := apperr.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeAuthTimestampInvalid, appErr.Code)
}

func TestAuthenticate_RejectsTamperedBody(t *testing.T) {
	a, _, sign, _ := newTestAuthenticator(t)
	env := sign("POST", "/posts", []byte("original"))
	env.Body = []byte("tampered")

	_, err := a.Authenticate(context.Background(), env)
	appErr, ok := apperr.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeAuthSignatureInvalid, appErr.Code)
}

func TestAuthenticate_RejectsMalformedNonce(t *testing.T) {
	a, _, sign, _ := newTestAuthenticator(t)
	env := sign("GET", "/feed", nil)
	env.Nonce = "short"

	_, err := a.Authenticate(context.Background(), env)
	appErr, ok := apperr.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeAuthInvalidNonce, appErr.Code)
}

func TestAuthenticateOptional_FailsOpen(t *testing.T) {
	a, _, _, _ := newTestAuthenticator(t)
	agent := a.AuthenticateOptional(context.Background(), Envelope{})
	assert.Nil(t, agent)
}

func TestValidNonceShape(t *testing.T) {
	assert.True(t, validNonceShape(uuid.New().String()))
	assert.True(t, validNonceShape("abcdefghijklmnop"))
	assert.False(t, validNonceShape("too-short"))
}
