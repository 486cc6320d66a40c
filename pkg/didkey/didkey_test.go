package didkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	pub, _, err := GenerateKey()
	require.NoError(t, err)

	did, err := Encode(pub)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(did, "did:key:z"))

	got, err := Decode(did)
	require.NoError(t, err)
	assert.Equal(t, []byte(pub), []byte(got))
}

func TestDecode_FailsClosed(t *testing.T) {
	pub, _, err := GenerateKey()
	require.NoError(t, err)
	did, err := Encode(pub)
	require.NoError(t, err)

	t.Run("missing did:key prefix", func(t *testing.T) {
		_, err := Decode(strings.TrimPrefix(did, "did:key:"))
		assert.ErrorIs(t, err, ErrMissingPrefix)
	})

	t.Run("missing z multibase prefix", func(t *testing.T) {
		_, err := Decode("did:key:" + strings.TrimPrefix(strings.TrimPrefix(did, "did:key:"), "z"))
		assert.ErrorIs(t, err, ErrMissingMultibase)
	})

	t.Run("wrong multicodec tag", func(t *testing.T) {
		_, err := Decode("did:key:z" + "3DaT" + strings.TrimPrefix(did, "did:key:z")[4:])
		assert.Error(t, err)
	})

	t.Run("truncated key length", func(t *testing.T) {
		_, err := Decode(did[:len(did)-4])
		assert.Error(t, err)
	})

	t.Run("garbage base58", func(t *testing.T) {
		_, err := Decode("did:key:z0OIl")
		assert.Error(t, err)
	})
}

func TestSignVerify(t *testing.T) {
	pub, priv, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte("POST:/posts:1700000000000:abc123:hello")
	sig := Sign(priv, msg)
	assert.True(t, Verify(pub, msg, sig))
	assert.False(t, Verify(pub, []byte("tampered"), sig))

	otherPub, _, err := GenerateKey()
	require.NoError(t, err)
	assert.False(t, Verify(otherPub, msg, sig))
}
