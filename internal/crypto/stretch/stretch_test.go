package stretch

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHash_KnownVector(t *testing.T) {
	k1, err := hex.DecodeString("f84913e3d8e6d624689d0a3e9678ac8dcc79d2c2f3d9641488cd9d6ef6cd83dd")
	require.NoError(t, err)
	salt := []byte("identity.mozilla.com/picl/v1/scrypt")

	s := New(5, discardLogger())
	k2, err := s.Hash(context.Background(), k1, salt, DefaultParams)
	require.NoError(t, err)

	assert.Equal(t,
		"5b82f146a64126923e4167a0350bb181feba61f63cb1714012b19cb0be0119c5",
		hex.EncodeToString(k2))
}

func TestHash_Deterministic(t *testing.T) {
	s := New(5, discardLogger())
	secret := []byte("secret")
	salt := []byte("salt")
	p := Params{N: 1024, R: 8, P: 1, KeyLen: 32}

	a, err := s.Hash(context.Background(), secret, salt, p)
	require.NoError(t, err)
	b, err := s.Hash(context.Background(), secret, salt, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHash_EnforcesMaxPending(t *testing.T) {
	const maxPending = 5

	orig := scryptKey
	block := make(chan struct{})
	started := make(chan struct{}, maxPending)
	scryptKey = func(password, salt []byte, n, r, p, keyLen int) ([]byte, error) {
		started <- struct{}{}
		<-block
		return make([]byte, keyLen), nil
	}
	t.Cleanup(func() { scryptKey = orig })

	s := New(maxPending, discardLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, maxPending)
	for i := 0; i < maxPending; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Hash(ctx, []byte("secret"), []byte("salt"), DefaultParams)
			errs <- err
		}()
	}
	// Wait until all admitted hashes are parked inside the hash function.
	for i := 0; i < maxPending; i++ {
		<-started
	}

	_, err := s.Hash(ctx, []byte("secret"), []byte("salt"), DefaultParams)
	require.ErrorIs(t, err, common.ErrTooManyPendingStretches)

	close(block)
	wg.Wait()
	close(errs)
	for e := range errs {
		require.NoError(t, e)
	}

	assert.Equal(t, int64(0), s.Pending(), "counter must drain to zero")
	assert.Equal(t, int64(maxPending+1), s.HighWaterMark(), "HWM should be maxPending+1")
	assert.Equal(t, int64(maxPending), s.MaxPending())
}

func TestHash_ContextAlreadyCancelled(t *testing.T) {
	s := New(5, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Hash(ctx, []byte("secret"), []byte("salt"), DefaultParams)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), s.Pending())
}

func TestHash_ZeroLimitRejectsEverything(t *testing.T) {
	s := New(0, discardLogger())
	_, err := s.Hash(context.Background(), []byte("secret"), []byte("salt"), DefaultParams)
	require.ErrorIs(t, err, common.ErrTooManyPendingStretches)
}
