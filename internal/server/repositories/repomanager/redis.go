package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshtokens"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key the server writes to Redis. The braces make
// it a Redis Cluster hash tag, keeping all keys in one slot.
const KeyPrefix = "{tokenkeeper}:"

type RedisRepositoryManager struct {
	client redis.UniversalClient
}

// OpenRedis creates a client for addr. Connections are made lazily, so
// RunMigrations is where an unreachable server is first reported.
func OpenRedis(addr string) *RedisRepositoryManager {
	return NewRedisRepositoryManager(redis.NewClient(&redis.Options{Addr: addr}))
}

func NewRedisRepositoryManager(client redis.UniversalClient) *RedisRepositoryManager {
	return &RedisRepositoryManager{client: client}
}

func (m *RedisRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return refreshtokens.NewRedisRepository(m.client, KeyPrefix)
}

// RunMigrations only pings: the Redis layout needs no schema.
func (m *RedisRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping error: %w", err)
	}
	return nil
}

func (m *RedisRepositoryManager) Close() error {
	return m.client.Close()
}
