package tokens

// AccountResetToken authorizes the account-reset protocol and nothing else.
// It carries no key material beyond what proves possession.
type AccountResetToken struct {
	Token
	VerifierSetAt int64
}

// AccountResetTokenOptions carries the fields a new account-reset token is
// issued with. CreatedAt is advisory and subject to the clamp rule.
type AccountResetTokenOptions struct {
	UID           string
	VerifierSetAt int64
	CreatedAt     int64
}

// NewAccountResetToken mints an account-reset token.
func (a *Authority) NewAccountResetToken(opts AccountResetTokenOptions) (*AccountResetToken, error) {
	base, err := a.mint(TypeAccountReset, opts.UID, opts.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &AccountResetToken{
		Token:         base,
		VerifierSetAt: opts.VerifierSetAt,
	}, nil
}
