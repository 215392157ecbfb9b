// Package services contains server-side business logic. This file implements
// RecoveryService, which handles the recovery-key lifecycle and the
// reset-account-with-recovery-key protocol.
package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/crypto/password"
	"github.com/dmitrijs2005/authkeeper/internal/crypto/stretch"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/customs"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/notify"
	"github.com/dmitrijs2005/authkeeper/internal/server/storage"
	"github.com/dmitrijs2005/authkeeper/internal/tokens"
)

// Customs action names, shared with the abuse-control configuration.
const (
	ActionCreateRecoveryKey = "createRecoveryKey"
	ActionGetRecoveryKey    = "getRecoveryKey"
	ActionResetAccount      = "resetAccountWithRecoveryKey"
)

const (
	maxRecoveryKeyIDLength = 32   // hex of a 16-byte fingerprint
	maxRecoveryDataLength  = 1024 // hex of nonce + sealed kB + tag, with headroom
)

var recoveryKeyEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authkeeper_recovery_key_lifecycle_total",
	Help: "Recovery key lifecycle events by kind.",
}, []string{"event"})

// RecoveryService provides the recovery-key operations:
// - CreateRecoveryKey: register a recovery key on a verified session
// - GetRecoveryKey: fetch stored recovery data during a reset flow
// - ResetAccountWithRecoveryKey: consume the key and re-credential the account
type RecoveryService struct {
	store           storage.Store
	stretcher       *stretch.Service
	customs         customs.Checker
	notifier        notify.Notifier
	logger          logging.Logger
	verifierVersion int

	mu    sync.Mutex
	locks map[string]*uidLock

	now func() time.Time
}

type uidLock struct {
	mu   sync.Mutex
	refs int
}

// NewRecoveryService wires the orchestrator to its collaborators. New
// credentials are minted at verifierVersion.
func NewRecoveryService(store storage.Store, stretcher *stretch.Service, checker customs.Checker,
	notifier notify.Notifier, logger logging.Logger, verifierVersion int) *RecoveryService {
	return &RecoveryService{
		store:           store,
		stretcher:       stretcher,
		customs:         checker,
		notifier:        notifier,
		logger:          logger.With("module", "recovery"),
		verifierVersion: verifierVersion,
		locks:           make(map[string]*uidLock),
		now:             time.Now,
	}
}

// CreateRecoveryKeyRequest registers recoveryData under a fingerprint for the
// account behind an authenticated session.
type CreateRecoveryKeyRequest struct {
	RemoteAddr     string
	SessionTokenID string
	RecoveryKeyID  string
	RecoveryData   string
}

// CreateRecoveryKey stores a recovery key for the session's account. The
// session must be fully verified, and an account holds at most one key.
func (s *RecoveryService) CreateRecoveryKey(ctx context.Context, req *CreateRecoveryKeyRequest) error {
	if err := s.customs.Check(ctx, req.RemoteAddr, ActionCreateRecoveryKey); err != nil {
		return err
	}
	session, err := s.store.SessionToken(ctx, req.SessionTokenID)
	if err != nil {
		return unauthorizedIfMissing(err)
	}
	if session.VerificationID != "" {
		return common.ErrUnverifiedSession
	}
	if err := validateRecoveryKey(req.RecoveryKeyID, req.RecoveryData); err != nil {
		return err
	}
	if err := s.store.CreateRecoveryKey(ctx, session.UID, req.RecoveryKeyID, req.RecoveryData); err != nil {
		return err
	}
	recoveryKeyEvents.WithLabelValues("created").Inc()
	s.logger.Info(ctx, "account.recoveryKey.created", "uid", session.UID)
	go func() {
		if err := s.notifier.RecoveryKeyCreated(context.WithoutCancel(ctx), session.UID); err != nil {
			s.logger.Warn(ctx, "account.recoveryKey.notifyFailed", "uid", session.UID, "error", err)
		}
	}()
	return nil
}

// GetRecoveryKeyRequest fetches recovery data during a reset flow, proving
// possession of an account-reset token and knowledge of the fingerprint.
type GetRecoveryKeyRequest struct {
	RemoteAddr          string
	AccountResetTokenID string
	RecoveryKeyID       string
}

// GetRecoveryKey returns the stored recovery data. A wrong fingerprint is
// indistinguishable from an absent key.
func (s *RecoveryService) GetRecoveryKey(ctx context.Context, req *GetRecoveryKeyRequest) (string, error) {
	if err := s.customs.Check(ctx, req.RemoteAddr, ActionGetRecoveryKey); err != nil {
		return "", err
	}
	resetToken, err := s.store.AccountResetToken(ctx, req.AccountResetTokenID)
	if err != nil {
		return "", unauthorizedIfMissing(err)
	}
	key, err := s.store.GetRecoveryKey(ctx, resetToken.UID, req.RecoveryKeyID)
	if err != nil {
		return "", err
	}
	recoveryKeyEvents.WithLabelValues("fetched").Inc()
	return key.RecoveryData, nil
}

// ResetAccountRequest re-credentials an account after the client has
// recovered kB from its recovery data. AuthPW is the new password-derived
// value and WrapKb the recovered master secret to re-wrap under it.
type ResetAccountRequest struct {
	RemoteAddr          string
	AccountResetTokenID string
	RecoveryKeyID       string
	AuthPW              []byte
	WrapKb              []byte
	WantsKeys           bool
	UA                  tokens.UserAgent
}

// ResetAccountResponse reports the outcome of a completed reset. Token fields
// are hex-encoded seeds for the client to hold.
type ResetAccountResponse struct {
	UID           string
	SessionToken  string
	KeyFetchToken string
	Verified      bool
	AuthAt        int64
}

// resetState accumulates the intermediate values of a reset as its steps run.
type resetState struct {
	req     *ResetAccountRequest
	uid     string
	account *models.Account

	authSalt      []byte
	verifyHash    []byte
	wrapWrapKb    []byte
	verifierSetAt int64

	session  *tokens.SessionToken
	keyFetch *tokens.KeyFetchToken
}

type resetStep struct {
	name string
	run  func(ctx context.Context, st *resetState) error
}

// ResetAccountWithRecoveryKey runs the reset protocol. Persisting the new
// credential fields is the committal point: a failure before it leaves the
// account untouched, a failure after it is reported but never rolled back.
// Resets for the same account are serialized.
func (s *RecoveryService) ResetAccountWithRecoveryKey(ctx context.Context, req *ResetAccountRequest) (*ResetAccountResponse, error) {
	if err := s.customs.Check(ctx, req.RemoteAddr, ActionResetAccount); err != nil {
		return nil, err
	}
	resetToken, err := s.store.AccountResetToken(ctx, req.AccountResetTokenID)
	if err != nil {
		return nil, unauthorizedIfMissing(err)
	}

	unlock := s.lockUID(resetToken.UID)
	defer unlock()

	st := &resetState{req: req, uid: resetToken.UID}

	preCommit := []resetStep{
		{"checkRecoveryKey", s.stepCheckRecoveryKey},
		{"loadAccount", s.stepLoadAccount},
		{"deriveCredentials", s.stepDeriveCredentials},
		{"commitReset", s.stepCommitReset},
	}
	for _, step := range preCommit {
		if err := step.run(ctx, st); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	postCommit := []resetStep{
		{"createSessionToken", s.stepCreateSessionToken},
		{"createKeyFetchToken", s.stepCreateKeyFetchToken},
		{"deleteRecoveryKey", s.stepDeleteRecoveryKey},
	}
	for _, step := range postCommit {
		if err := step.run(ctx, st); err != nil {
			s.logger.Error(ctx, "account.reset.postCommitFailure",
				"uid", st.uid, "step", step.name, "error", err)
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	recoveryKeyEvents.WithLabelValues("consumed").Inc()
	s.logger.Info(ctx, "account.reset.completed", "uid", st.uid)

	resp := &ResetAccountResponse{
		UID:          st.uid,
		SessionToken: hex.EncodeToString(st.session.Seed),
		Verified:     st.session.EmailVerified && st.session.VerificationID == "",
		AuthAt:       st.session.LastAuthAt(),
	}
	if st.keyFetch != nil {
		resp.KeyFetchToken = hex.EncodeToString(st.keyFetch.Seed)
	}
	return resp, nil
}

func (s *RecoveryService) stepCheckRecoveryKey(ctx context.Context, st *resetState) error {
	_, err := s.store.GetRecoveryKey(ctx, st.uid, st.req.RecoveryKeyID)
	return err
}

func (s *RecoveryService) stepLoadAccount(ctx context.Context, st *resetState) error {
	account, err := s.store.Account(ctx, st.uid)
	if err != nil {
		return err
	}
	st.account = account
	return nil
}

func (s *RecoveryService) stepDeriveCredentials(ctx context.Context, st *resetState) error {
	st.authSalt = common.GenerateRandByteArray(password.KeyLength)
	pw, err := password.New(st.req.AuthPW, st.authSalt, s.verifierVersion, s.stretcher)
	if err != nil {
		return err
	}
	st.verifyHash, err = pw.VerifyHash(ctx)
	if err != nil {
		return err
	}
	st.wrapWrapKb, err = pw.Wrap(ctx, st.req.WrapKb)
	if err != nil {
		return err
	}
	st.verifierSetAt = s.now().UnixMilli()
	return nil
}

func (s *RecoveryService) stepCommitReset(ctx context.Context, st *resetState) error {
	return s.store.ResetAccount(ctx, st.uid, &models.ResetFields{
		AuthSalt:        st.authSalt,
		VerifyHash:      st.verifyHash,
		WrapWrapKb:      st.wrapWrapKb,
		VerifierVersion: s.verifierVersion,
		VerifierSetAt:   st.verifierSetAt,
	})
}

func (s *RecoveryService) stepCreateSessionToken(ctx context.Context, st *resetState) error {
	session, err := s.store.CreateSessionToken(ctx, tokens.SessionTokenOptions{
		UID:           st.uid,
		Email:         st.account.Email,
		EmailCode:     st.account.EmailCode,
		EmailVerified: st.account.EmailVerified,
		VerifierSetAt: st.verifierSetAt,
		UA:            st.req.UA,
	})
	if err != nil {
		return err
	}
	st.session = session
	return nil
}

func (s *RecoveryService) stepCreateKeyFetchToken(ctx context.Context, st *resetState) error {
	if !st.req.WantsKeys {
		return nil
	}
	keyFetch, err := s.store.CreateKeyFetchToken(ctx, tokens.KeyFetchTokenOptions{
		UID:           st.uid,
		KA:            st.account.KA,
		WrapKb:        st.req.WrapKb,
		EmailVerified: st.account.EmailVerified,
	})
	if err != nil {
		return err
	}
	st.keyFetch = keyFetch
	return nil
}

func (s *RecoveryService) stepDeleteRecoveryKey(ctx context.Context, st *resetState) error {
	return s.store.DeleteRecoveryKey(ctx, st.uid, st.req.RecoveryKeyID)
}

// lockUID serializes resets per account. The entry is dropped once the last
// holder releases it.
func (s *RecoveryService) lockUID(uid string) func() {
	s.mu.Lock()
	l, ok := s.locks[uid]
	if !ok {
		l = &uidLock{}
		s.locks[uid] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, uid)
		}
		s.mu.Unlock()
	}
}

func validateRecoveryKey(recoveryKeyID, recoveryData string) error {
	if recoveryKeyID == "" || len(recoveryKeyID) > maxRecoveryKeyIDLength {
		return fmt.Errorf("%w: recoveryKeyId", common.ErrInvalidRequest)
	}
	if _, err := hex.DecodeString(recoveryKeyID); err != nil {
		return fmt.Errorf("%w: recoveryKeyId", common.ErrInvalidRequest)
	}
	if recoveryData == "" || len(recoveryData) > maxRecoveryDataLength {
		return fmt.Errorf("%w: recoveryData", common.ErrInvalidRequest)
	}
	return nil
}

// unauthorizedIfMissing turns an absent token row into an authentication
// failure. A token id that resolves to nothing proves nothing.
func unauthorizedIfMissing(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorUnauthorized
	}
	return err
}

// IsRetryable reports whether the caller may retry after backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, common.ErrTooManyPendingStretches) || errors.Is(err, common.ErrRateLimited)
}
