// Package password implements the credential object built around a
// client-supplied password-derived value: stretching it, deriving the stored
// verification hash, and wrapping/unwrapping the account master secret.
package password

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/crypto/kdf"
	"github.com/dmitrijs2005/authkeeper/internal/crypto/stretch"
)

// KeyLength is the size of wrapped secrets and derived hashes.
const KeyLength = 32

const (
	purposeVerifyHash = "verifyHash"
	purposeWrapKey    = "wrapwrapKey"
)

// costParams maps verifier versions to stretching cost profiles. The version
// is resolved once at construction; adding a version means appending here.
var costParams = map[int]stretch.Params{
	0: {N: 65536, R: 8, P: 1, KeyLen: 32},
	1: {N: 65536, R: 8, P: 1, KeyLen: 32},
}

// Password combines the client's password-derived value with an
// account-specific salt and a verifier version. The stretched output is
// computed at most once and cached for the lifetime of the object, which is
// a single verify or reset operation. It must never be persisted or logged.
type Password struct {
	authPW    []byte
	authSalt  []byte
	version   int
	params    stretch.Params
	stretcher *stretch.Service

	mu        sync.Mutex
	stretched []byte
}

// New builds a Password for the given verifier version. Unknown versions
// fail with common.ErrUnknownVersion rather than falling back to a default.
func New(authPW, authSalt []byte, version int, stretcher *stretch.Service) (*Password, error) {
	params, ok := costParams[version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", common.ErrUnknownVersion, version)
	}
	return &Password{
		authPW:    authPW,
		authSalt:  authSalt,
		version:   version,
		params:    params,
		stretcher: stretcher,
	}, nil
}

// Version reports the verifier version this credential was built for.
func (p *Password) Version() int { return p.version }

// VerifyHash routes the password through the stretching service and derives
// the hash compared against the account's stored verification hash.
// Propagates common.ErrTooManyPendingStretches when the service is saturated.
func (p *Password) VerifyHash(ctx context.Context) ([]byte, error) {
	stretched, err := p.stretchedKey(ctx)
	if err != nil {
		return nil, err
	}
	return kdf.Derive(stretched, nil, purposeVerifyHash, KeyLength)
}

// Matches compares a derived verification hash against the stored one in
// constant time.
func Matches(stored, candidate []byte) bool {
	return subtle.ConstantTimeCompare(stored, candidate) == 1
}

// Wrap protects a KeyLength-byte secret under a key derived from the
// password. Wrap and Unwrap are inverses.
func (p *Password) Wrap(ctx context.Context, secret []byte) ([]byte, error) {
	return p.xorWithWrapKey(ctx, secret)
}

// Unwrap recovers a secret previously protected with Wrap.
func (p *Password) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	return p.xorWithWrapKey(ctx, wrapped)
}

func (p *Password) xorWithWrapKey(ctx context.Context, in []byte) ([]byte, error) {
	if len(in) != KeyLength {
		return nil, fmt.Errorf("%w: secret must be %d bytes, got %d",
			common.ErrInvalidRequest, KeyLength, len(in))
	}
	stretched, err := p.stretchedKey(ctx)
	if err != nil {
		return nil, err
	}
	wrapKey, err := kdf.Derive(stretched, nil, purposeWrapKey, KeyLength)
	if err != nil {
		return nil, err
	}
	out := make([]byte, KeyLength)
	for i := range in {
		out[i] = in[i] ^ wrapKey[i]
	}
	return out, nil
}

// stretchedKey computes the scrypt output once and caches it.
func (p *Password) stretchedKey(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stretched != nil {
		return p.stretched, nil
	}
	stretched, err := p.stretcher.Hash(ctx, p.authPW, p.authSalt, p.params)
	if err != nil {
		return nil, err
	}
	p.stretched = stretched
	return stretched, nil
}
