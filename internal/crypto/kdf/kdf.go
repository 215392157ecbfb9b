// Package kdf implements the keyed extract-and-expand derivation that turns
// one secret into a family of purpose-separated sub-keys. Every token type
// and the credential wrapping step route their key material through here.
package kdf

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// namespace prefixes every purpose string, so keys derived here can never
// collide with another protocol that feeds the same input key material into
// HKDF with a different convention.
const namespace = "identity.mozilla.com/picl/v1/"

// Derive expands ikm into n bytes bound to purpose using HKDF-SHA256.
// The context value salts the extraction step. The same inputs always yield
// the same output, and outputs for distinct purposes are computationally
// independent. n may exceed the hash width; HKDF expands iteratively up to
// 255 blocks.
func Derive(ikm, context []byte, purpose string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("kdf: invalid output length %d", n)
	}
	r := hkdf.New(sha256.New, ikm, context, []byte(namespace+purpose))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("kdf: derive %q: %w", purpose, err)
	}
	return out, nil
}
