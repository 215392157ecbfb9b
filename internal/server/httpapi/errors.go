package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// apiError is the wire shape of every failure response. Errno values are
// stable protocol numbers clients switch on; Code mirrors the HTTP status.
type apiError struct {
	Code    int    `json:"code"`
	Errno   int    `json:"errno"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

const (
	errnoInvalidParameter   = 107
	errnoInvalidToken       = 110
	errnoRequestBlocked     = 114
	errnoUnverifiedSession  = 138
	errnoRecoveryKeyInvalid = 159
	errnoRecoveryKeyExists  = 161
	errnoServerBusy         = 201
	errnoInternal           = 999
)

// toAPIError maps a service error to its wire representation. Messages are
// fixed strings so no internal detail leaks into a response body.
func toAPIError(err error) apiError {
	switch {
	case errors.Is(err, common.ErrTooManyPendingStretches):
		return apiError{http.StatusServiceUnavailable, errnoServerBusy, "Service Unavailable", "Server busy, try again shortly"}
	case errors.Is(err, common.ErrRateLimited):
		return apiError{http.StatusTooManyRequests, errnoRequestBlocked, "Too Many Requests", "Client has sent too many requests"}
	case errors.Is(err, common.ErrUnverifiedSession):
		return apiError{http.StatusBadRequest, errnoUnverifiedSession, "Bad Request", "Unverified session"}
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrBadBundle):
		return apiError{http.StatusUnauthorized, errnoInvalidToken, "Unauthorized", "Invalid authentication token"}
	case errors.Is(err, common.ErrorNotFound):
		return apiError{http.StatusNotFound, errnoRecoveryKeyInvalid, "Not Found", "Recovery key not found"}
	case errors.Is(err, common.ErrConflict):
		return apiError{http.StatusConflict, errnoRecoveryKeyExists, "Conflict", "Recovery key exists"}
	case errors.Is(err, common.ErrInvalidRequest), errors.Is(err, common.ErrUnknownVersion):
		return apiError{http.StatusBadRequest, errnoInvalidParameter, "Bad Request", "Invalid parameter in request body"}
	default:
		return apiError{http.StatusInternalServerError, errnoInternal, "Internal Server Error", "Unspecified error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	if apiErr.Code == http.StatusServiceUnavailable || apiErr.Code == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, apiErr.Code, apiErr)
}
