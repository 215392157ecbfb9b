package tokens

// UserAgent is the device metadata captured from the client that a session
// was established on.
type UserAgent struct {
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	DeviceType     string
	FormFactor     string
}

// SessionToken represents an authenticated session. The email-verification
// state is snapshotted from the account at issuance time.
type SessionToken struct {
	Token
	Email          string
	EmailCode      string
	EmailVerified  bool
	VerifierSetAt  int64
	VerificationID string // non-empty while the session awaits verification
	UA             UserAgent
}

// SessionTokenOptions carries the fields a new session is issued with.
// CreatedAt is advisory and subject to the clamp rule.
type SessionTokenOptions struct {
	UID            string
	Email          string
	EmailCode      string
	EmailVerified  bool
	VerifierSetAt  int64
	VerificationID string
	CreatedAt      int64
	UA             UserAgent
}

// NewSessionToken mints a session token for the given account state.
func (a *Authority) NewSessionToken(opts SessionTokenOptions) (*SessionToken, error) {
	base, err := a.mint(TypeSession, opts.UID, opts.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &SessionToken{
		Token:          base,
		Email:          opts.Email,
		EmailCode:      opts.EmailCode,
		EmailVerified:  opts.EmailVerified,
		VerifierSetAt:  opts.VerifierSetAt,
		VerificationID: opts.VerificationID,
		UA:             opts.UA,
	}, nil
}

// LastAuthAt reports the last authentication time in whole seconds.
func (t *SessionToken) LastAuthAt() int64 {
	return t.CreatedAt / 1000
}
