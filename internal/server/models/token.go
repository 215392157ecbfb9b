package models

// TokenRow is the server-side record of an issued token: the derived id and
// verification metadata. The client-held seed is never stored.
type TokenRow struct {
	ID             string
	Type           string
	UID            string
	VerificationID string // non-empty while a session awaits verification
	VerifierSetAt  int64
	CreatedAt      int64
}
