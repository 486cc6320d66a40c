// Package auth implements the DID request-authentication pipeline from
// spec.md §4.2-4.3: header parsing, timestamp window, nonce replay
// protection, and Ed25519 signature verification over a canonical
// request string.
package auth

import (
	"context"
	"encoding/base64"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/didkey"
	"github.com/tcsenpai/lattice/pkg/models"
	"github.com/tcsenpai/lattice/pkg/noncecache"
	"github.com/tcsenpai/lattice/pkg/store"
)

const maxTimestampSkew = 5 * time.Minute

var genericNonce = regexp.MustCompile(`^[A-Za-z0-9_-]{16,64}$`)

// Envelope is the parsed authentication material carried on every
// signed request.
type Envelope struct {
	DID       string
	Signature string // base64
	Timestamp int64  // ms epoch
	Nonce     string
	Method    string
	Path      string // includes query string, as received
	Body      []byte // raw, unparsed
}

// Authenticator runs the auth pipeline against a Store-backed agent
// lookup and a shared nonce cache.
type Authenticator struct {
	store  store.Store
	nonces *noncecache.Cache
	now    func() time.Time
}

// New builds an Authenticator. s supplies agent lookups; nonces is the
// shared replay-detection cache.
func New(s store.Store, nonces *noncecache.Cache) *Authenticator {
	return &Authenticator{store: s, nonces: nonces, now: time.Now}
}

// Authenticate runs the full pipeline (spec.md §4.3 steps 1-8) and
// returns the authenticated agent on success.
func (a *Authenticator) Authenticate(ctx context.Context, env Envelope) (*models.Agent, error) {
	if env.DID == "" || env.Signature == "" || env.Timestamp == 0 || env.Nonce == "" {
		return nil, apperr.New(apperr.CodeAuthMissingHeaders, "missing one or more of X-DID, X-Signature, X-Timestamp, X-Nonce")
	}

	if skew := a.now().UnixMilli() - env.Timestamp; skew > maxTimestampSkew.Milliseconds() || skew < -maxTimestampSkew.Milliseconds() {
		return nil, apperr.New(apperr.CodeAuthTimestampInvalid, "timestamp outside the 5 minute window")
	}

	if !validNonceShape(env.Nonce) {
		return nil, apperr.New(apperr.CodeAuthInvalidNonce, "nonce must be a UUIDv4 or 16-64 char [A-Za-z0-9_-] token")
	}

	if a.nonces.SeenOrRecord(env.DID, env.Nonce) {
		return nil, apperr.New(apperr.CodeAuthReplayDetected, "nonce already used")
	}

	pub, err := didkey.Decode(env.DID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAuthInvalidDID, "DID does not decode to a valid Ed25519 key", err)
	}

	agent, err := a.store.GetAgent(ctx, env.DID)
	if err != nil {
		return nil, apperr.New(apperr.CodeAuthAgentNotFound, "DID is not registered")
	}

	sig, err := decodeSignature(env.Signature)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAuthVerificationError, "signature is not valid base64", err)
	}

	msg := CanonicalMessage(env.Method, env.Path, env.Timestamp, env.Nonce, env.Body)
	if !didkey.Verify(pub, msg, sig) {
		return nil, apperr.New(apperr.CodeAuthSignatureInvalid, "signature does not verify against the registered key")
	}

	return agent, nil
}

// AuthenticateOptional runs the same pipeline but never fails the
// request: on any failure it returns nil, meaning "proceed
// unauthenticated" (spec.md §4.3, optional variant).
func (a *Authenticator) AuthenticateOptional(ctx context.Context, env Envelope) *models.Agent {
	agent, err := a.Authenticate(ctx, env)
	if err != nil {
		return nil
	}
	return agent
}

// CanonicalMessage builds the exact byte string a client must sign
// (spec.md §4.2): "METHOD:PATH:TIMESTAMP_MS:NONCE:BODY".
func CanonicalMessage(method, path string, timestampMs int64, nonce string, body []byte) []byte {
	msg := method + ":" + path + ":" + strconv.FormatInt(timestampMs, 10) + ":" + nonce + ":"
	return append([]byte(msg), body...)
}

func decodeSignature(sig string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(sig)
}

func validNonceShape(nonce string) bool {
	if id, err := uuid.Parse(nonce); err == nil {
		return id.Version() == 4 && isValidVariant(id)
	}
	return genericNonce.MatchString(nonce)
}

func isValidVariant(id uuid.UUID) bool {
	b := id[8] >> 4
	return b == 0x8 || b == 0x9 || b == 0xa || b == 0xb
}
