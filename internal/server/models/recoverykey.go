package models

// RecoveryKey is a client-encrypted copy of an account's master secret,
// unlockable only with a recovery code the server never sees. At most one
// exists per account; a successful reset via recovery key consumes it.
type RecoveryKey struct {
	UID           string
	RecoveryKeyID string
	RecoveryData  string
	CreatedAt     int64
}
