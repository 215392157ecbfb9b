package recoverykeys

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+recovery_keys\s*\(uid,\s*recovery_key_id,\s*recovery_data,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*ON\s+CONFLICT\s*\(uid\)\s*DO\s+NOTHING\s*$`

	mock.ExpectExec(q).
		WithArgs("u-1", "abc123", "blob", int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.RecoveryKey{
		UID: "u-1", RecoveryKeyID: "abc123", RecoveryData: "blob", CreatedAt: 1000,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_ConflictWhenKeyExists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+recovery_keys`).
		WithArgs("u-1", "abc123", "blob", int64(1000)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Create(context.Background(), &models.RecoveryKey{
		UID: "u-1", RecoveryKeyID: "abc123", RecoveryData: "blob", CreatedAt: 1000,
	})
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+uid,\s*recovery_key_id,\s*recovery_data,\s*created_at\s+FROM\s+recovery_keys\s+WHERE\s+uid\s*=\s*\$1\s+AND\s+recovery_key_id\s*=\s*\$2\s*$`

	rows := sqlmock.NewRows([]string{"uid", "recovery_key_id", "recovery_data", "created_at"}).
		AddRow("u-1", "abc123", "blob", int64(1000))
	mock.ExpectQuery(q).WithArgs("u-1", "abc123").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "u-1", "abc123")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.RecoveryData != "blob" || got.UID != "u-1" {
		t.Fatalf("unexpected key: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+uid,`).
		WithArgs("u-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u-1", "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+recovery_keys\s+WHERE\s+uid\s*=\s*\$1\s+AND\s+recovery_key_id\s*=\s*\$2\s*$`).
		WithArgs("u-1", "abc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "u-1", "abc123"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}
