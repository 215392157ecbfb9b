package recoverykeys

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	// Create persists a recovery key. It fails with common.ErrConflict when
	// the account already holds one.
	Create(ctx context.Context, key *models.RecoveryKey) error
	Get(ctx context.Context, uid, recoveryKeyID string) (*models.RecoveryKey, error)
	Delete(ctx context.Context, uid, recoveryKeyID string) error
}
