package customs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

func newChecker(eventsPerSecond float64, burst int) *LimiterChecker {
	return NewLimiterChecker(eventsPerSecond, burst,
		logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestCheck_AllowsWithinBurst(t *testing.T) {
	c := newChecker(1, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Check(ctx, "1.2.3.4", "createRecoveryKey"))
	}
	require.ErrorIs(t, c.Check(ctx, "1.2.3.4", "createRecoveryKey"), common.ErrRateLimited)
}

func TestCheck_BucketsAreIndependent(t *testing.T) {
	c := newChecker(1, 1)
	ctx := context.Background()

	require.NoError(t, c.Check(ctx, "1.2.3.4", "createRecoveryKey"))
	require.ErrorIs(t, c.Check(ctx, "1.2.3.4", "createRecoveryKey"), common.ErrRateLimited)

	// Different action and different caller each get their own bucket.
	assert.NoError(t, c.Check(ctx, "1.2.3.4", "getRecoveryKey"))
	assert.NoError(t, c.Check(ctx, "5.6.7.8", "createRecoveryKey"))
}
