package tokenrows

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

	row := &models.TokenRow{
		ID: "t-1", Type: "sessionToken", UID: "u-1",
		VerifierSetAt: 1000, CreatedAt: 999,
	}
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+tokens`).
		WithArgs(row.ID, row.Type, row.UID, row.VerificationID, row.VerifierSetAt, row.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), row); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestGet_FilterByType(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "token_type", "uid", "verification_id", "verifier_set_at", "created_at"}).
		AddRow("t-1", "sessionToken", "u-1", "", int64(1000), int64(999))
	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*token_type,`).
		WithArgs("t-1", "sessionToken").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "t-1", "sessionToken")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.UID != "u-1" || got.Type != "sessionToken" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*token_type,`).
		WithArgs("t-1", "accountResetToken").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "t-1", "accountResetToken")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+tokens\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "t-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}

func TestDeleteByUID_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+tokens\s+WHERE\s+uid\s*=\s*\$1\s*$`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByUID(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteByUID error: %v", err)
	}
}
