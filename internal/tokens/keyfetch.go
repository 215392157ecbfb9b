package tokens

import "fmt"

const purposeAccountKeys = "account/keys"

// KeyFetchToken authorizes a single retrieval of the account's key material.
// It carries kA and the wrapped master secret so the key-fetch response can
// be bundled without touching the account record again.
type KeyFetchToken struct {
	Token
	KA            []byte
	WrapKb        []byte
	EmailVerified bool
}

// KeyFetchTokenOptions carries the fields a new key-fetch token is issued
// with. CreatedAt is advisory and subject to the clamp rule.
type KeyFetchTokenOptions struct {
	UID           string
	KA            []byte
	WrapKb        []byte
	EmailVerified bool
	CreatedAt     int64
}

// NewKeyFetchToken mints a key-fetch token.
func (a *Authority) NewKeyFetchToken(opts KeyFetchTokenOptions) (*KeyFetchToken, error) {
	base, err := a.mint(TypeKeyFetch, opts.UID, opts.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &KeyFetchToken{
		Token:         base,
		KA:            opts.KA,
		WrapKb:        opts.WrapKb,
		EmailVerified: opts.EmailVerified,
	}, nil
}

// BundleKeys produces the authenticated-encrypted kA‖wrapKb payload returned
// to a client fetching its keys.
func (t *KeyFetchToken) BundleKeys() (string, error) {
	if len(t.KA) != keyLength || len(t.WrapKb) != keyLength {
		return "", fmt.Errorf("keyFetchToken: key material must be %d bytes", keyLength)
	}
	plaintext := make([]byte, 0, 2*keyLength)
	plaintext = append(plaintext, t.KA...)
	plaintext = append(plaintext, t.WrapKb...)
	return Bundle(t.BundleKey, purposeAccountKeys, plaintext)
}

// UnbundleKeys verifies and decrypts a payload produced by BundleKeys.
func (t *KeyFetchToken) UnbundleKeys(blob string) (ka, wrapKb []byte, err error) {
	plaintext, err := Unbundle(t.BundleKey, purposeAccountKeys, blob)
	if err != nil {
		return nil, nil, err
	}
	if len(plaintext) != 2*keyLength {
		return nil, nil, fmt.Errorf("keyFetchToken: unexpected payload length %d", len(plaintext))
	}
	return plaintext[:keyLength], plaintext[keyLength:], nil
}
