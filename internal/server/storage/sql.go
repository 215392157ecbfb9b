package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/tokens"
)

// SQLStore implements Store over a SQL database via the repository layer.
// Token minting is local computation; only the derived row is persisted.
type SQLStore struct {
	db        *sql.DB
	rm        repomanager.RepositoryManager
	authority *tokens.Authority
	now       func() time.Time
}

func NewSQLStore(db *sql.DB, rm repomanager.RepositoryManager, authority *tokens.Authority) *SQLStore {
	return &SQLStore{db: db, rm: rm, authority: authority, now: time.Now}
}

func (s *SQLStore) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.UID == "" {
		account.UID = uuid.NewString()
	}
	if account.CreatedAt == 0 {
		account.CreatedAt = s.now().UnixMilli()
	}
	return s.rm.Accounts(s.db).Create(ctx, account)
}

func (s *SQLStore) Account(ctx context.Context, uid string) (*models.Account, error) {
	return s.rm.Accounts(s.db).Get(ctx, uid)
}

// ResetAccount rewrites the credential fields and revokes every outstanding
// token for the account in one transaction.
func (s *SQLStore) ResetAccount(ctx context.Context, uid string, fields *models.ResetFields) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.TokenRows(tx).DeleteByUID(ctx, uid); err != nil {
			return err
		}
		return s.rm.Accounts(tx).Reset(ctx, uid, fields)
	})
}

func (s *SQLStore) CreateRecoveryKey(ctx context.Context, uid, recoveryKeyID, recoveryData string) error {
	return s.rm.RecoveryKeys(s.db).Create(ctx, &models.RecoveryKey{
		UID:           uid,
		RecoveryKeyID: recoveryKeyID,
		RecoveryData:  recoveryData,
		CreatedAt:     s.now().UnixMilli(),
	})
}

func (s *SQLStore) GetRecoveryKey(ctx context.Context, uid, recoveryKeyID string) (*models.RecoveryKey, error) {
	return s.rm.RecoveryKeys(s.db).Get(ctx, uid, recoveryKeyID)
}

func (s *SQLStore) DeleteRecoveryKey(ctx context.Context, uid, recoveryKeyID string) error {
	return s.rm.RecoveryKeys(s.db).Delete(ctx, uid, recoveryKeyID)
}

func (s *SQLStore) CreateSessionToken(ctx context.Context, opts tokens.SessionTokenOptions) (*tokens.SessionToken, error) {
	tok, err := s.authority.NewSessionToken(opts)
	if err != nil {
		return nil, err
	}
	row := &models.TokenRow{
		ID:             tok.ID,
		Type:           tokens.TypeSession,
		UID:            tok.UID,
		VerificationID: tok.VerificationID,
		VerifierSetAt:  tok.VerifierSetAt,
		CreatedAt:      tok.CreatedAt,
	}
	if err := s.rm.TokenRows(s.db).Create(ctx, row); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *SQLStore) CreateKeyFetchToken(ctx context.Context, opts tokens.KeyFetchTokenOptions) (*tokens.KeyFetchToken, error) {
	tok, err := s.authority.NewKeyFetchToken(opts)
	if err != nil {
		return nil, err
	}
	row := &models.TokenRow{
		ID:        tok.ID,
		Type:      tokens.TypeKeyFetch,
		UID:       tok.UID,
		CreatedAt: tok.CreatedAt,
	}
	if err := s.rm.TokenRows(s.db).Create(ctx, row); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *SQLStore) CreateAccountResetToken(ctx context.Context, opts tokens.AccountResetTokenOptions) (*tokens.AccountResetToken, error) {
	tok, err := s.authority.NewAccountResetToken(opts)
	if err != nil {
		return nil, err
	}
	row := &models.TokenRow{
		ID:            tok.ID,
		Type:          tokens.TypeAccountReset,
		UID:           tok.UID,
		VerifierSetAt: tok.VerifierSetAt,
		CreatedAt:     tok.CreatedAt,
	}
	if err := s.rm.TokenRows(s.db).Create(ctx, row); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *SQLStore) SessionToken(ctx context.Context, id string) (*models.TokenRow, error) {
	return s.rm.TokenRows(s.db).Get(ctx, id, tokens.TypeSession)
}

func (s *SQLStore) AccountResetToken(ctx context.Context, id string) (*models.TokenRow, error) {
	return s.rm.TokenRows(s.db).Get(ctx, id, tokens.TypeAccountReset)
}
