// Package repomanager selects and owns the storage backend for refresh
// token records.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshtokens"
	userrepo "github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories over one backend and owns its connection.
type RepositoryManager interface {
	// RunMigrations prepares the backend: schema migrations for SQL stores,
	// a connectivity check for the rest.
	RunMigrations(ctx context.Context) error
	RefreshTokens() refreshtokens.Repository
	Close() error
}

// UserStore is implemented by backends that can also hold registered
// accounts. The others fall back to the users file.
type UserStore interface {
	Users() userrepo.Repository
}

// New opens the backend named by cfg.StoreBackend.
func New(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		m, err := OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.StoreRedis:
		return OpenRedis(cfg.RedisAddr), nil
	case config.StoreMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
