// Package notify delivers fire-and-forget lifecycle notifications. Delivery
// is not mission critical: a failure must never fail the operation that
// triggered it.
package notify

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// Notifier receives account lifecycle events.
type Notifier interface {
	RecoveryKeyCreated(ctx context.Context, uid string) error
}

// LogNotifier emits notifications as structured log events. It stands in for
// an outbound email/metrics pipeline.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notify")}
}

func (n *LogNotifier) RecoveryKeyCreated(ctx context.Context, uid string) error {
	n.logger.Info(ctx, "recoveryKey.created", "uid", uid)
	return nil
}
