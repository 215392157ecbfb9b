// Package common defines shared constants and sentinel errors used across
// AuthKeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository/storage-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid request parameter")
	ErrUnknownVersion = errors.New("unknown verifier version")

	// Stretching service admission control. Retryable by the caller after
	// backoff; the request that trips the limit never runs.
	ErrTooManyPendingStretches = errors.New("too many pending scrypt hashes")

	// Recovery-key creation requires a fully verified session.
	ErrUnverifiedSession = errors.New("unverified session")

	// Token bundle failed its integrity check or could not be decoded.
	ErrBadBundle = errors.New("bad bundle")

	// Abuse-control rejection, surfaced unchanged from customs.
	ErrRateLimited = errors.New("rate limited")
)
