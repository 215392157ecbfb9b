package tokenrows

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, row *models.TokenRow) error
	Get(ctx context.Context, id, tokenType string) (*models.TokenRow, error)
	Delete(ctx context.Context, id string) error
	// DeleteByUID removes every token of every type held by the account.
	DeleteByUID(ctx context.Context, uid string) error
}
