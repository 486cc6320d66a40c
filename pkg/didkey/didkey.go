// Package didkey implements Ed25519 key handling and did:key encoding as
// used to identify agents in Lattice. Decoding fails closed: any
// malformed input returns an error rather than a best-effort guess.
package didkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// multicodecEd25519Pub is the multicodec varint prefix (0xED 0x01) for an
// Ed25519 public key, per the did:key method spec.
var multicodecEd25519Pub = [2]byte{0xED, 0x01}

const (
	didPrefix      = "did:key:"
	multibasePrefix = "z" // base58btc
)

var (
	// ErrMissingPrefix is returned when a DID string lacks "did:key:".
	ErrMissingPrefix = errors.New("didkey: missing did:key: prefix")
	// ErrMissingMultibase is returned when the key part lacks the "z" multibase tag.
	ErrMissingMultibase = errors.New("didkey: missing z multibase prefix")
	// ErrBadMulticodec is returned when the decoded bytes don't start with the Ed25519 multicodec tag.
	ErrBadMulticodec = errors.New("didkey: wrong multicodec tag, expected Ed25519 (0xed01)")
	// ErrBadKeyLength is returned when the decoded public key isn't 32 bytes.
	ErrBadKeyLength = errors.New("didkey: decoded public key must be 32 bytes")
	// ErrBadBase58 is returned when the key part isn't valid base58btc.
	ErrBadBase58 = errors.New("didkey: invalid base58btc encoding")
)

// GenerateKey creates a fresh Ed25519 keypair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Encode derives the canonical did:key string from an Ed25519 public key.
func Encode(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", ErrBadKeyLength
	}
	payload := make([]byte, 0, 2+ed25519.PublicKeySize)
	payload = append(payload, multicodecEd25519Pub[:]...)
	payload = append(payload, pub...)
	return didPrefix + multibasePrefix + base58.Encode(payload), nil
}

// Decode parses a did:key string and returns the embedded Ed25519 public
// key. It fails closed on a missing "did:key:" prefix, a missing "z"
// multibase tag, a multicodec tag other than Ed25519, invalid base58, or
// a decoded key whose length is not 32 bytes.
func Decode(did string) (ed25519.PublicKey, error) {
	rest, ok := cutPrefix(did, didPrefix)
	if !ok {
		return nil, ErrMissingPrefix
	}
	rest, ok = cutPrefix(rest, multibasePrefix)
	if !ok {
		return nil, ErrMissingMultibase
	}
	payload, err := base58.Decode(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBase58, err)
	}
	if len(payload) < 2 || payload[0] != multicodecEd25519Pub[0] || payload[1] != multicodecEd25519Pub[1] {
		return nil, ErrBadMulticodec
	}
	pub := payload[2:]
	if len(pub) != ed25519.PublicKeySize {
		return nil, ErrBadKeyLength
	}
	out := make([]byte, ed25519.PublicKeySize)
	copy(out, pub)
	return out, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || s[:len(prefix)] != prefix {
		return s, false
	}
	return s[len(prefix):], true
}

// Sign produces a raw Ed25519 signature over message — no pre-hashing.
func Sign(priv ed25519.PrivateKey, message []byte) []byte {
	return ed25519.Sign(priv, message)
}

// Verify checks a raw Ed25519 signature over message against pub.
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}
