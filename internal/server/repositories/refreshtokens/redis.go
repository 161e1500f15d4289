package refreshtokens

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// Script results.
const (
	redisOK int64 = iota
	redisNotFound
	redisRevoked
	redisDuplicate
)

// KEYS: record, subject index. ARGV: id, subject, expires_at, expires_ms, created_at, revoked.
const insertScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 3
end
redis.call("HSET", KEYS[1], "subject", ARGV[2], "expires_at", ARGV[3], "expires_ms", ARGV[4], "created_at", ARGV[5], "revoked", ARGV[6])
redis.call("SADD", KEYS[2], ARGV[1])
return 0
`

// KEYS: old record, next record, next subject index. ARGV: as insertScript, for next.
const rotateScript = `
local revoked = redis.call("HGET", KEYS[1], "revoked")
if not revoked then
  return 1
end
if revoked == "1" then
  return 2
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 3
end
redis.call("HSET", KEYS[1], "revoked", "1")
redis.call("HSET", KEYS[2], "subject", ARGV[2], "expires_at", ARGV[3], "expires_ms", ARGV[4], "created_at", ARGV[5], "revoked", ARGV[6])
redis.call("SADD", KEYS[3], ARGV[1])
return 0
`

const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("HSET", KEYS[1], "revoked", "1")
end
return 0
`

// KEYS: subject index. ARGV: record key prefix, now in unix milliseconds.
// The record keys are not declared, which is sound only because they share
// the subject index's hash tag.
const revokeAllScript = `
local n = 0
for _, id in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  local key = ARGV[1] .. id
  local rec = redis.call("HMGET", key, "revoked", "expires_ms")
  if rec[1] == "0" and tonumber(rec[2]) > tonumber(ARGV[2]) then
    redis.call("HSET", key, "revoked", "1")
    n = n + 1
  end
end
return n
`

var (
	insertLua    = redis.NewScript(insertScript)
	rotateLua    = redis.NewScript(rotateScript)
	revokeLua    = redis.NewScript(revokeScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
)

// RedisRepository stores each record as a hash under "<prefix>rt:<id>" and
// keeps a per-subject set of ids under "<prefix>rts:<subject>". Every write
// is a Lua script, so each method is atomic on the server.
//
// The scripts touch several keys, and revokeAllScript derives record keys
// from the subject set. The prefix is therefore a hash tag: on Redis Cluster
// every key lands in one slot, so the whole keyspace lives on one node.
type RedisRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRepository wraps prefix in a hash tag unless it already carries one:
// "tk:" becomes "{tk}:".
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	return &RedisRepository{client: client, prefix: hashTagged(prefix)}
}

func hashTagged(prefix string) string {
	if open := strings.IndexByte(prefix, '{'); open >= 0 {
		if end := strings.IndexByte(prefix[open:], '}'); end > 1 {
			return prefix
		}
	}
	tag := strings.TrimSuffix(prefix, ":")
	if tag == "" {
		tag = "tokenkeeper"
	}
	return "{" + tag + "}:"
}

func (r *RedisRepository) recordPrefix() string { return r.prefix + "rt:" }

func (r *RedisRepository) recordKey(id string) string { return r.recordPrefix() + id }

func (r *RedisRepository) subjectKey(subject string) string { return r.prefix + "rts:" + subject }

func recordArgs(t *models.RefreshToken) []any {
	revoked := "0"
	if t.Revoked {
		revoked = "1"
	}
	return []any{
		t.TokenID,
		t.Subject,
		t.ExpiresAt.UTC().Format(time.RFC3339Nano),
		t.ExpiresAt.UnixMilli(),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
		revoked,
	}
}

func (r *RedisRepository) Insert(ctx context.Context, token *models.RefreshToken) error {
	code, err := insertLua.Run(ctx, r.client,
		[]string{r.recordKey(token.TokenID), r.subjectKey(token.Subject)},
		recordArgs(token)...,
	).Int64()
	if err != nil {
		return storeError("redis insert", err)
	}
	if code == redisDuplicate {
		return fmt.Errorf("%w: %s", common.ErrDuplicateTokenID, token.TokenID)
	}
	return nil
}

func (r *RedisRepository) FindByTokenID(ctx context.Context, id string) (*models.RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, r.recordKey(id)).Result()
	if err != nil {
		return nil, storeError("redis hgetall", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	expires, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, storeError("corrupt expires_at", err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, storeError("corrupt created_at", err)
	}
	revoked, err := strconv.ParseBool(fields["revoked"])
	if err != nil {
		return nil, storeError("corrupt revoked", err)
	}

	return &models.RefreshToken{
		TokenID:   id,
		Subject:   fields["subject"],
		ExpiresAt: expires,
		Revoked:   revoked,
		CreatedAt: created,
	}, nil
}

func (r *RedisRepository) Revoke(ctx context.Context, id string) error {
	if err := revokeLua.Run(ctx, r.client, []string{r.recordKey(id)}).Err(); err != nil {
		return storeError("redis revoke", err)
	}
	return nil
}

func (r *RedisRepository) Rotate(ctx context.Context, oldID string, next *models.RefreshToken) error {
	code, err := rotateLua.Run(ctx, r.client,
		[]string{r.recordKey(oldID), r.recordKey(next.TokenID), r.subjectKey(next.Subject)},
		recordArgs(next)...,
	).Int64()
	if err != nil {
		return storeError("redis rotate", err)
	}

	switch code {
	case redisOK:
		return nil
	case redisNotFound:
		return common.ErrorNotFound
	case redisRevoked:
		return common.ErrTokenRevoked
	case redisDuplicate:
		return fmt.Errorf("%w: %s", common.ErrDuplicateTokenID, next.TokenID)
	default:
		return storeError("redis rotate", fmt.Errorf("unknown script status %d", code))
	}
}

func (r *RedisRepository) RevokeAllForSubject(ctx context.Context, subject string, now time.Time) (int64, error) {
	n, err := revokeAllLua.Run(ctx, r.client,
		[]string{r.subjectKey(subject)},
		r.recordPrefix(), now.UnixMilli(),
	).Int64()
	if err != nil {
		return 0, storeError("redis revoke all", err)
	}
	return n, nil
}
