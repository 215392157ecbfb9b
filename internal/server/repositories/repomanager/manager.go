package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/recoverykeys"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/tokenrows"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// caller can run several repository operations inside one transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	RecoveryKeys(db dbx.DBTX) recoverykeys.Repository
	TokenRows(db dbx.DBTX) tokenrows.Repository
}
