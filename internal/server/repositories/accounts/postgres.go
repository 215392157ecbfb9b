package accounts

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

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) error {

	query :=
		`INSERT INTO accounts (uid, email, email_code, email_verified, ka, wrap_wrap_kb,
                               auth_salt, verify_hash, verifier_version, verifier_set_at, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 `

	_, err := r.db.ExecContext(ctx, query,
		account.UID, account.Email, account.EmailCode, account.EmailVerified,
		account.KA, account.WrapWrapKb, account.AuthSalt, account.VerifyHash,
		account.VerifierVersion, account.VerifierSetAt, account.CreatedAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, uid string) (*models.Account, error) {
	query :=
		`SELECT uid, email, email_code, email_verified, ka, wrap_wrap_kb,
                auth_salt, verify_hash, verifier_version, verifier_set_at, created_at
		 FROM accounts
		 WHERE uid = $1
		 `

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, uid).Scan(
		&account.UID, &account.Email, &account.EmailCode, &account.EmailVerified,
		&account.KA, &account.WrapWrapKb, &account.AuthSalt, &account.VerifyHash,
		&account.VerifierVersion, &account.VerifierSetAt, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) Reset(ctx context.Context, uid string, fields *models.ResetFields) error {
	query :=
		`UPDATE accounts
		 SET auth_salt = $2, verify_hash = $3, wrap_wrap_kb = $4,
             verifier_version = $5, verifier_set_at = $6
		 WHERE uid = $1
		 `

	res, err := r.db.ExecContext(ctx, query, uid,
		fields.AuthSalt, fields.VerifyHash, fields.WrapWrapKb,
		fields.VerifierVersion, fields.VerifierSetAt)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
