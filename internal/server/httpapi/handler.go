// Package httpapi exposes the recovery-key operations over HTTP. Requests
// authenticate with a bearer token seed; the server never sees more than the
// seed needed to derive the token id.
package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/tokens"
)

const maxBodyBytes = 16 * 1024

type Handler struct {
	service   *services.RecoveryService
	authority *tokens.Authority
	logger    logging.Logger
	router    *http.ServeMux
}

func NewHandler(service *services.RecoveryService, authority *tokens.Authority, logger logging.Logger) *Handler {
	h := &Handler{
		service:   service,
		authority: authority,
		logger:    logger.With("module", "httpapi"),
		router:    http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// Router returns the mux with all routes registered.
func (h *Handler) Router() *http.ServeMux {
	return h.router
}

func (h *Handler) registerRoutes() {
	h.router.Handle("GET /health", http.HandlerFunc(h.handleHealth))
	h.router.Handle("GET /metrics", promhttp.Handler())

	h.route("POST /recoveryKeys", h.handleCreateRecoveryKey)
	h.route("GET /recoveryKeys/{recoveryKeyId}", h.handleGetRecoveryKey)
	h.route("POST /account/reset/recoveryKeys", h.handleResetAccount)
}

func (h *Handler) route(pattern string, fn http.HandlerFunc) {
	h.router.Handle(pattern, h.observe(pattern, fn))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type createRecoveryKeyBody struct {
	RecoveryKeyID string `json:"recoveryKeyId"`
	RecoveryData  string `json:"recoveryData"`
}

func (h *Handler) handleCreateRecoveryKey(w http.ResponseWriter, r *http.Request) {
	sessionTokenID, err := h.tokenID(r, tokens.TypeSession)
	if err != nil {
		writeError(w, err)
		return
	}
	var body createRecoveryKeyBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	err = h.service.CreateRecoveryKey(r.Context(), &services.CreateRecoveryKeyRequest{
		RemoteAddr:     clientAddr(r),
		SessionTokenID: sessionTokenID,
		RecoveryKeyID:  body.RecoveryKeyID,
		RecoveryData:   body.RecoveryData,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

type getRecoveryKeyResponse struct {
	RecoveryData string `json:"recoveryData"`
}

func (h *Handler) handleGetRecoveryKey(w http.ResponseWriter, r *http.Request) {
	resetTokenID, err := h.tokenID(r, tokens.TypeAccountReset)
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := h.service.GetRecoveryKey(r.Context(), &services.GetRecoveryKeyRequest{
		RemoteAddr:          clientAddr(r),
		AccountResetTokenID: resetTokenID,
		RecoveryKeyID:       r.PathValue("recoveryKeyId"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, getRecoveryKeyResponse{RecoveryData: data})
}

// deviceInfo is client-reported metadata recorded on the session minted by a
// reset.
type deviceInfo struct {
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browserVersion"`
	OS             string `json:"os"`
	OSVersion      string `json:"osVersion"`
	DeviceType     string `json:"deviceType"`
	FormFactor     string `json:"formFactor"`
}

type resetAccountBody struct {
	AuthPW        string     `json:"authPW"`
	WrapKb        string     `json:"wrapKb"`
	RecoveryKeyID string     `json:"recoveryKeyId"`
	Keys          bool       `json:"keys"`
	Device        deviceInfo `json:"device"`
}

type resetAccountResponse struct {
	UID           string `json:"uid"`
	SessionToken  string `json:"sessionToken"`
	KeyFetchToken string `json:"keyFetchToken,omitempty"`
	Verified      bool   `json:"verified"`
	AuthAt        int64  `json:"authAt"`
}

func (h *Handler) handleResetAccount(w http.ResponseWriter, r *http.Request) {
	resetTokenID, err := h.tokenID(r, tokens.TypeAccountReset)
	if err != nil {
		writeError(w, err)
		return
	}
	var body resetAccountBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	authPW, err := decodeKeyField("authPW", body.AuthPW)
	if err != nil {
		writeError(w, err)
		return
	}
	wrapKb, err := decodeKeyField("wrapKb", body.WrapKb)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := h.service.ResetAccountWithRecoveryKey(r.Context(), &services.ResetAccountRequest{
		RemoteAddr:          clientAddr(r),
		AccountResetTokenID: resetTokenID,
		RecoveryKeyID:       body.RecoveryKeyID,
		AuthPW:              authPW,
		WrapKb:              wrapKb,
		WantsKeys:           body.Keys,
		UA: tokens.UserAgent{
			Browser:        body.Device.Browser,
			BrowserVersion: body.Device.BrowserVersion,
			OS:             body.Device.OS,
			OSVersion:      body.Device.OSVersion,
			DeviceType:     body.Device.DeviceType,
			FormFactor:     body.Device.FormFactor,
		},
	})
	if err != nil {
		h.logger.Error(r.Context(), "account.reset.failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resetAccountResponse{
		UID:           resp.UID,
		SessionToken:  resp.SessionToken,
		KeyFetchToken: resp.KeyFetchToken,
		Verified:      resp.Verified,
		AuthAt:        resp.AuthAt,
	})
}

// tokenID authenticates a request by deriving the token id from the bearer
// seed. Possession of the seed is the whole credential.
func (h *Handler) tokenID(r *http.Request, tokenType string) (string, error) {
	header := r.Header.Get("Authorization")
	rest, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", common.ErrorUnauthorized
	}
	seed, err := hex.DecodeString(strings.TrimSpace(rest))
	if err != nil || len(seed) != tokens.SeedLength {
		return "", common.ErrorUnauthorized
	}
	return h.authority.TokenID(tokenType, seed)
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body", common.ErrInvalidRequest)
	}
	return nil
}

func decodeKeyField(name, value string) ([]byte, error) {
	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidRequest, name)
	}
	return raw, nil
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
