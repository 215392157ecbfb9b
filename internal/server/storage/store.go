// Package storage exposes the persistence contract consumed by the recovery
// protocol: account lookup and reset, the recovery-key lifecycle, and token
// minting. Two implementations exist: SQLStore over PostgreSQL and
// MemoryStore for tests and development.
package storage

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/tokens"
)

type Store interface {
	// CreateAccount assigns a fresh uid when the account carries none.
	CreateAccount(ctx context.Context, account *models.Account) error
	Account(ctx context.Context, uid string) (*models.Account, error)
	// ResetAccount atomically rewrites the account's credential fields and
	// revokes every outstanding token for the account.
	ResetAccount(ctx context.Context, uid string, fields *models.ResetFields) error

	// CreateRecoveryKey fails with common.ErrConflict when the account
	// already holds a recovery key.
	CreateRecoveryKey(ctx context.Context, uid, recoveryKeyID, recoveryData string) error
	GetRecoveryKey(ctx context.Context, uid, recoveryKeyID string) (*models.RecoveryKey, error)
	DeleteRecoveryKey(ctx context.Context, uid, recoveryKeyID string) error

	CreateSessionToken(ctx context.Context, opts tokens.SessionTokenOptions) (*tokens.SessionToken, error)
	CreateKeyFetchToken(ctx context.Context, opts tokens.KeyFetchTokenOptions) (*tokens.KeyFetchToken, error)
	CreateAccountResetToken(ctx context.Context, opts tokens.AccountResetTokenOptions) (*tokens.AccountResetToken, error)

	// SessionToken and AccountResetToken resolve a derived token id to its
	// persisted record, for authenticating presented token seeds.
	SessionToken(ctx context.Context, id string) (*models.TokenRow, error)
	AccountResetToken(ctx context.Context, id string) (*models.TokenRow, error)
}
