// Package stretch wraps scrypt password stretching behind a service that
// refuses new work once a configured number of hashes is already in flight.
// scrypt is memory-hard on purpose; queueing an unbounded burst of password
// attempts would exhaust the host, so saturation fails fast instead.
package stretch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/scrypt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Params holds scrypt cost parameters.
type Params struct {
	N      int
	R      int
	P      int
	KeyLen int
}

// DefaultParams is the cost profile used by the current verifier version.
var DefaultParams = Params{N: 65536, R: 8, P: 1, KeyLen: 32}

var rejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "authkeeper_stretch_rejections_total",
	Help: "Stretch requests refused because too many hashes were in flight.",
})

// scryptKey is a seam for tests.
var scryptKey = scrypt.Key

// Service bounds the number of concurrently executing scrypt hashes.
// The in-flight counter is the only shared mutable state it owns; the
// admission check and increment happen as one atomic step.
type Service struct {
	maxPending int64
	pending    atomic.Int64
	hwm        atomic.Int64
	logger     logging.Logger
}

// New returns a Service admitting at most maxPending concurrent hashes.
func New(maxPending int, logger logging.Logger) *Service {
	return &Service{
		maxPending: int64(maxPending),
		logger:     logger.With("module", "stretch"),
	}
}

// Hash runs scrypt over secret and salt with the given cost parameters.
// When maxPending hashes are already running the call fails immediately with
// common.ErrTooManyPendingStretches; it is never queued and does not count
// toward the in-flight total. The work itself runs on the calling goroutine
// and is not cancellable mid-flight; ctx is only checked before admission.
func (s *Service) Hash(ctx context.Context, secret, salt []byte, p Params) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.admit() {
		rejections.Inc()
		s.logger.Warn(ctx, "scrypt.maxPendingExceeded", "maxPending", s.maxPending)
		return nil, common.ErrTooManyPendingStretches
	}
	defer s.pending.Add(-1)

	key, err := scryptKey(secret, salt, p.N, p.R, p.P, p.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	return key, nil
}

// admit reserves an in-flight slot, or reports saturation. The high-water
// mark counts the rejected request too, matching the counter a caller would
// have observed had the request been admitted.
func (s *Service) admit() bool {
	for {
		n := s.pending.Load()
		if n >= s.maxPending {
			s.bumpHWM(n + 1)
			return false
		}
		if s.pending.CompareAndSwap(n, n+1) {
			s.bumpHWM(n + 1)
			return true
		}
	}
}

func (s *Service) bumpHWM(n int64) {
	for {
		cur := s.hwm.Load()
		if n <= cur || s.hwm.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Pending reports the number of currently executing hashes.
func (s *Service) Pending() int64 { return s.pending.Load() }

// HighWaterMark reports the maximum pending count ever observed, including
// requests that were turned away.
func (s *Service) HighWaterMark() int64 { return s.hwm.Load() }

// MaxPending reports the configured admission limit.
func (s *Service) MaxPending() int64 { return s.maxPending }
