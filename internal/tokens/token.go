// Package tokens implements the family of derived tokens that represent an
// authenticated account state: sessions, key fetches and account resets.
// Every token is rooted in a 32-byte random seed held by the client; the
// server keeps only values derived from it.
package tokens

import (
	"encoding/hex"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/crypto/kdf"
)

// Token type purposes, fed into the derivation engine so that the sub-keys
// of different token types can never collide.
const (
	TypeSession      = "sessionToken"
	TypeKeyFetch     = "keyFetchToken"
	TypeAccountReset = "accountResetToken"
)

// SeedLength is the size of the client-held secret behind every token.
const SeedLength = 32

const keyLength = 32

// Token holds the derived key material shared by all token types. ID
// identifies the token server-side, AuthKey authenticates requests made with
// it, and BundleKey encrypts its payload bundle. None of the three reveal
// the seed or each other.
type Token struct {
	Type      string
	Seed      []byte
	ID        string
	AuthKey   []byte
	BundleKey []byte
	UID       string
	CreatedAt int64 // milliseconds since epoch
}

// Authority mints tokens. In production mode caller-supplied creation
// timestamps are always ignored in favor of server time; outside production
// a supplied timestamp is used only when it is strictly positive and not in
// the future.
type Authority struct {
	production bool
	now        func() time.Time
}

// NewAuthority returns an Authority using the system clock.
func NewAuthority(production bool) *Authority {
	return &Authority{production: production, now: time.Now}
}

func (a *Authority) clampCreatedAt(requested int64) int64 {
	now := a.now().UnixMilli()
	if a.production || requested <= 0 || requested > now {
		return now
	}
	return requested
}

// mint derives a fresh token of the given type from a new random seed.
func (a *Authority) mint(tokenType, uid string, createdAt int64) (Token, error) {
	return a.fromSeed(tokenType, common.GenerateRandByteArray(SeedLength), uid, createdAt)
}

// fromSeed rebuilds a token's derived keys from its seed. Used both when
// minting and when authenticating a presented seed.
func (a *Authority) fromSeed(tokenType string, seed []byte, uid string, createdAt int64) (Token, error) {
	okm, err := kdf.Derive(seed, nil, tokenType, 3*keyLength)
	if err != nil {
		return Token{}, err
	}
	return Token{
		Type:      tokenType,
		Seed:      seed,
		ID:        hex.EncodeToString(okm[:keyLength]),
		AuthKey:   okm[keyLength : 2*keyLength],
		BundleKey: okm[2*keyLength:],
		UID:       uid,
		CreatedAt: a.clampCreatedAt(createdAt),
	}, nil
}

// TokenID derives the server-side id for a presented seed without minting
// anything. Possession of the seed is what authenticates a caller.
func (a *Authority) TokenID(tokenType string, seed []byte) (string, error) {
	okm, err := kdf.Derive(seed, nil, tokenType, keyLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(okm), nil
}
