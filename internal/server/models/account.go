// Package models defines the persisted data structures of the account core.
package models

// Account is the credential state stored for a user. It is mutated only by
// password-reset operations and never deleted by this core.
type Account struct {
	UID             string
	Email           string
	EmailCode       string
	EmailVerified   bool
	KA              []byte
	WrapWrapKb      []byte
	AuthSalt        []byte
	VerifyHash      []byte
	VerifierVersion int
	VerifierSetAt   int64
	CreatedAt       int64
}

// ResetFields are the account columns rewritten atomically by a password
// reset. Persisting them is the committal point of the reset protocol.
type ResetFields struct {
	AuthSalt        []byte
	VerifyHash      []byte
	WrapWrapKb      []byte
	VerifierVersion int
	VerifierSetAt   int64
}
