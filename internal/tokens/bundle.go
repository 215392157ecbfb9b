package tokens

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/crypto/kdf"
)

const macLength = sha256.Size

// Bundle authenticated-encrypts a payload under keys derived from bundleKey
// for the given purpose: the payload is XORed with a derived keystream and
// an HMAC-SHA256 tag over the ciphertext is appended. The result is hex.
func Bundle(bundleKey []byte, purpose string, plaintext []byte) (string, error) {
	okm, err := kdf.Derive(bundleKey, nil, purpose, len(plaintext)+macLength)
	if err != nil {
		return "", err
	}
	xorKey, macKey := okm[:len(plaintext)], okm[len(plaintext):]

	ciphertext := make([]byte, len(plaintext))
	for i := range plaintext {
		ciphertext[i] = plaintext[i] ^ xorKey[i]
	}

	mac := hmac.New(sha256.New, macKey)
	mac.Write(ciphertext)
	return hex.EncodeToString(mac.Sum(ciphertext)), nil
}

// Unbundle verifies the tag and decrypts a bundle produced by Bundle. It
// fails closed with common.ErrBadBundle on any malformed input or tag
// mismatch; plaintext is only ever derived after the tag has matched.
func Unbundle(bundleKey []byte, purpose string, blob string) ([]byte, error) {
	raw, err := hex.DecodeString(blob)
	if err != nil || len(raw) < macLength {
		return nil, common.ErrBadBundle
	}
	ciphertext, tag := raw[:len(raw)-macLength], raw[len(raw)-macLength:]

	okm, err := kdf.Derive(bundleKey, nil, purpose, len(ciphertext)+macLength)
	if err != nil {
		return nil, err
	}
	xorKey, macKey := okm[:len(ciphertext)], okm[len(ciphertext):]

	mac := hmac.New(sha256.New, macKey)
	mac.Write(ciphertext)
	if !hmac.Equal(tag, mac.Sum(nil)) {
		return nil, common.ErrBadBundle
	}

	plaintext := make([]byte, len(ciphertext))
	for i := range ciphertext {
		plaintext[i] = ciphertext[i] ^ xorKey[i]
	}
	return plaintext, nil
}
