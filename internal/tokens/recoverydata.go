package tokens

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/crypto/kdf"
)

// Recovery codes never reach the server. These helpers reproduce the
// client-side derivation of the recovery-key fingerprint and the AES-GCM
// protection of kB, so tests and tooling can build valid recoveryData blobs
// and prove they round-trip.

const (
	purposeRecoveryFingerprint = "recovery fingerprint"
	purposeRecoveryEncryptKey  = "recovery encrypt key"

	recoveryKeyIDLength = 16
	gcmNonceLength      = 12
)

// RecoveryKeyID derives the public fingerprint a recovery key is stored
// under. The uid binds the fingerprint to one account.
func RecoveryKeyID(recoveryCode, uid []byte) (string, error) {
	id, err := kdf.Derive(recoveryCode, uid, purposeRecoveryFingerprint, recoveryKeyIDLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(id), nil
}

// EncryptRecoveryData seals kB with AES-256-GCM under the key derived from
// the recovery code. Output is hex(nonce‖ciphertext).
func EncryptRecoveryData(recoveryCode, uid, kb []byte) (string, error) {
	aead, err := recoveryAEAD(recoveryCode, uid)
	if err != nil {
		return "", err
	}
	nonce := common.GenerateRandByteArray(gcmNonceLength)
	ciphertext := aead.Seal(nil, nonce, kb, nil)
	return hex.EncodeToString(append(nonce, ciphertext...)), nil
}

// DecryptRecoveryData recovers kB from a blob produced by
// EncryptRecoveryData. A wrong recovery code or tampered blob fails with
// common.ErrBadBundle.
func DecryptRecoveryData(recoveryCode, uid []byte, data string) ([]byte, error) {
	raw, err := hex.DecodeString(data)
	if err != nil || len(raw) < gcmNonceLength {
		return nil, common.ErrBadBundle
	}
	aead, err := recoveryAEAD(recoveryCode, uid)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, raw[:gcmNonceLength], raw[gcmNonceLength:], nil)
	if err != nil {
		return nil, common.ErrBadBundle
	}
	return plaintext, nil
}

func recoveryAEAD(recoveryCode, uid []byte) (cipher.AEAD, error) {
	key, err := kdf.Derive(recoveryCode, uid, purposeRecoveryEncryptKey, 32)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
