package tokenrows

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

func (r *PostgresRepository) Create(ctx context.Context, row *models.TokenRow) error {

	query :=
		`INSERT INTO tokens (id, token_type, uid, verification_id, verifier_set_at, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)
		 `

	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.Type, row.UID, row.VerificationID, row.VerifierSetAt, row.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id, tokenType string) (*models.TokenRow, error) {
	query :=
		`SELECT id, token_type, uid, verification_id, verifier_set_at, created_at FROM tokens
		 WHERE id = $1 AND token_type = $2
		 `

	row := &models.TokenRow{}
	err := r.db.QueryRowContext(ctx, query, id, tokenType).Scan(
		&row.ID, &row.Type, &row.UID, &row.VerificationID, &row.VerifierSetAt, &row.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return row, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query :=
		`DELETE FROM tokens
		 WHERE id = $1
		 `

	_, err := r.db.ExecContext(ctx, query, id)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) DeleteByUID(ctx context.Context, uid string) error {
	query :=
		`DELETE FROM tokens
		 WHERE uid = $1
		 `

	_, err := r.db.ExecContext(ctx, query, uid)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
