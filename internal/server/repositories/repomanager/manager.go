// Package repomanager vends repositories bound to a database handle and owns
// the storage lifecycle (migrations, transactions, shutdown).
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/equiplookup/internal/dbx"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/equipment"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// DB is the non-transactional handle repositories are bound to by default.
	DB() dbx.DBTX
	// WithTx runs fn inside one transaction; fn's error rolls it back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Equipment(db dbx.DBTX) equipment.Repository
	Close() error
}
