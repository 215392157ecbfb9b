package accounts

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) error
	Get(ctx context.Context, uid string) (*models.Account, error)
	Reset(ctx context.Context, uid string, fields *models.ResetFields) error
}
