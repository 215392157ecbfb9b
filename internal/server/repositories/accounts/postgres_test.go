package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
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

func sampleAccount() *models.Account {
	return &models.Account{
		UID:             "u-1",
		Email:           "a@example.com",
		EmailVerified:   true,
		KA:              []byte("ka"),
		WrapWrapKb:      []byte("wwkb"),
		AuthSalt:        []byte("salt"),
		VerifyHash:      []byte("hash"),
		VerifierVersion: 1,
		VerifierSetAt:   1000,
		CreatedAt:       999,
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := sampleAccount()
	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+accounts`).
		WithArgs(a.UID, a.Email, a.EmailCode, a.EmailVerified, a.KA, a.WrapWrapKb,
			a.AuthSalt, a.VerifyHash, a.VerifierVersion, a.VerifierSetAt, a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create error: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+accounts`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleAccount())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	a := sampleAccount()
	rows := sqlmock.NewRows([]string{
		"uid", "email", "email_code", "email_verified", "ka", "wrap_wrap_kb",
		"auth_salt", "verify_hash", "verifier_version", "verifier_set_at", "created_at",
	}).AddRow(a.UID, a.Email, a.EmailCode, a.EmailVerified, a.KA, a.WrapWrapKb,
		a.AuthSalt, a.VerifyHash, a.VerifierVersion, a.VerifierSetAt, a.CreatedAt)

	mock.ExpectQuery(`(?s)^SELECT\s+uid,\s*email,`).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.UID != a.UID || got.VerifierVersion != 1 {
		t.Fatalf("unexpected account: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+uid,\s*email,`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestReset_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	f := &models.ResetFields{
		AuthSalt: []byte("new-salt"), VerifyHash: []byte("new-hash"),
		WrapWrapKb: []byte("new-wwkb"), VerifierVersion: 1, VerifierSetAt: 2000,
	}
	mock.ExpectExec(`(?s)^UPDATE\s+accounts\s+SET\s+auth_salt`).
		WithArgs("u-1", f.AuthSalt, f.VerifyHash, f.WrapWrapKb, f.VerifierVersion, f.VerifierSetAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Reset(context.Background(), "u-1", f); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
}

func TestReset_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+accounts\s+SET\s+auth_salt`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reset(context.Background(), "missing", &models.ResetFields{})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
