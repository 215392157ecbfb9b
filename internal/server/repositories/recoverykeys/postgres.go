package recoverykeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, key *models.RecoveryKey) error {

	query :=
		`INSERT INTO recovery_keys (uid, recovery_key_id, recovery_data, created_at)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (uid) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		key.UID, key.RecoveryKeyID, key.RecoveryData, key.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrConflict
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, uid, recoveryKeyID string) (*models.RecoveryKey, error) {
	query :=
		`SELECT uid, recovery_key_id, recovery_data, created_at FROM recovery_keys
		 WHERE uid = $1 AND recovery_key_id = $2
		 `

	key := &models.RecoveryKey{}
	err := r.db.QueryRowContext(ctx, query, uid, recoveryKeyID).Scan(
		&key.UID, &key.RecoveryKeyID, &key.RecoveryData, &key.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return key, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, uid, recoveryKeyID string) error {
	query :=
		`DELETE FROM recovery_keys
		 WHERE uid = $1 AND recovery_key_id = $2
		 `

	_, err := r.db.ExecContext(ctx, query, uid, recoveryKeyID)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
