package repomanager

import (
	"context"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshtokens"
)

// MemoryRepositoryManager keeps records in process memory. Intended for
// development and tests; every record is lost on restart.
type MemoryRepositoryManager struct {
	tokens *refreshtokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{tokens: refreshtokens.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository { return m.tokens }

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }
