package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/tokens"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors the conflict, not-found and token-revocation behavior of the
// SQL implementation.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[string]*models.Account
	recoveryKeys map[string]*models.RecoveryKey // keyed by uid
	tokenRows    map[string]*models.TokenRow    // keyed by token id
	authority    *tokens.Authority
	now          func() time.Time
}

func NewMemoryStore(authority *tokens.Authority) *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]*models.Account),
		recoveryKeys: make(map[string]*models.RecoveryKey),
		tokenRows:    make(map[string]*models.TokenRow),
		authority:    authority,
		now:          time.Now,
	}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.UID == "" {
		account.UID = uuid.NewString()
	}
	if _, ok := s.accounts[account.UID]; ok {
		return common.ErrConflict
	}
	if account.CreatedAt == 0 {
		account.CreatedAt = s.now().UnixMilli()
	}
	stored := *account
	s.accounts[account.UID] = &stored
	return nil
}

func (s *MemoryStore) Account(ctx context.Context, uid string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[uid]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *MemoryStore) ResetAccount(ctx context.Context, uid string, fields *models.ResetFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[uid]
	if !ok {
		return common.ErrorNotFound
	}
	account.AuthSalt = fields.AuthSalt
	account.VerifyHash = fields.VerifyHash
	account.WrapWrapKb = fields.WrapWrapKb
	account.VerifierVersion = fields.VerifierVersion
	account.VerifierSetAt = fields.VerifierSetAt
	for id, row := range s.tokenRows {
		if row.UID == uid {
			delete(s.tokenRows, id)
		}
	}
	return nil
}

func (s *MemoryStore) CreateRecoveryKey(ctx context.Context, uid, recoveryKeyID, recoveryData string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recoveryKeys[uid]; ok {
		return common.ErrConflict
	}
	s.recoveryKeys[uid] = &models.RecoveryKey{
		UID:           uid,
		RecoveryKeyID: recoveryKeyID,
		RecoveryData:  recoveryData,
		CreatedAt:     s.now().UnixMilli(),
	}
	return nil
}

func (s *MemoryStore) GetRecoveryKey(ctx context.Context, uid, recoveryKeyID string) (*models.RecoveryKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.recoveryKeys[uid]
	if !ok || key.RecoveryKeyID != recoveryKeyID {
		return nil, common.ErrorNotFound
	}
	copied := *key
	return &copied, nil
}

func (s *MemoryStore) DeleteRecoveryKey(ctx context.Context, uid, recoveryKeyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.recoveryKeys[uid]; ok && key.RecoveryKeyID == recoveryKeyID {
		delete(s.recoveryKeys, uid)
	}
	return nil
}

func (s *MemoryStore) CreateSessionToken(ctx context.Context, opts tokens.SessionTokenOptions) (*tokens.SessionToken, error) {
	tok, err := s.authority.NewSessionToken(opts)
	if err != nil {
		return nil, err
	}
	s.storeRow(&models.TokenRow{
		ID:             tok.ID,
		Type:           tokens.TypeSession,
		UID:            tok.UID,
		VerificationID: tok.VerificationID,
		VerifierSetAt:  tok.VerifierSetAt,
		CreatedAt:      tok.CreatedAt,
	})
	return tok, nil
}

func (s *MemoryStore) CreateKeyFetchToken(ctx context.Context, opts tokens.KeyFetchTokenOptions) (*tokens.KeyFetchToken, error) {
	tok, err := s.authority.NewKeyFetchToken(opts)
	if err != nil {
		return nil, err
	}
	s.storeRow(&models.TokenRow{
		ID:        tok.ID,
		Type:      tokens.TypeKeyFetch,
		UID:       tok.UID,
		CreatedAt: tok.CreatedAt,
	})
	return tok, nil
}

func (s *MemoryStore) CreateAccountResetToken(ctx context.Context, opts tokens.AccountResetTokenOptions) (*tokens.AccountResetToken, error) {
	tok, err := s.authority.NewAccountResetToken(opts)
	if err != nil {
		return nil, err
	}
	s.storeRow(&models.TokenRow{
		ID:            tok.ID,
		Type:          tokens.TypeAccountReset,
		UID:           tok.UID,
		VerifierSetAt: tok.VerifierSetAt,
		CreatedAt:     tok.CreatedAt,
	})
	return tok, nil
}

func (s *MemoryStore) SessionToken(ctx context.Context, id string) (*models.TokenRow, error) {
	return s.tokenRow(id, tokens.TypeSession)
}

func (s *MemoryStore) AccountResetToken(ctx context.Context, id string) (*models.TokenRow, error) {
	return s.tokenRow(id, tokens.TypeAccountReset)
}

func (s *MemoryStore) storeRow(row *models.TokenRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenRows[row.ID] = row
}

func (s *MemoryStore) tokenRow(id, tokenType string) (*models.TokenRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tokenRows[id]
	if !ok || row.Type != tokenType {
		return nil, common.ErrorNotFound
	}
	copied := *row
	return &copied, nil
}
