package repomanager

import (
	"context"

	"github.com/dmitrijs2005/equiplookup/internal/dbx"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/equipment"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/equiplookup/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves process-local repositories. The DBTX
// handles it hands out are nil and ignored by the memory repositories.
type InMemoryRepositoryManager struct {
	users         *users.MemoryRepository
	refreshTokens *refreshtokens.MemoryRepository
	equipment     *equipment.MemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
		equipment:     equipment.NewMemoryRepository(),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) DB() dbx.DBTX {
	return nil
}

// WithTx calls fn directly. Memory repositories make their multi-row
// operations atomic themselves.
func (m *InMemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return fn(ctx, nil)
}

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

func (m *InMemoryRepositoryManager) Equipment(dbx.DBTX) equipment.Repository {
	return m.equipment
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}
