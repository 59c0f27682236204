package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "portfolio:revoked:"

// Revoker remembers session ids that were logged out before they expired.
type Revoker interface {
	Revoke(ctx context.Context, id string, ttl time.Duration) error
	IsRevoked(ctx context.Context, id string) (bool, error)
}

// Compile-time check: *RedisRevoker implements Revoker.
var _ Revoker = (*RedisRevoker)(nil)

// RedisRevoker keeps revoked session ids in Redis with a matching expiry.
type RedisRevoker struct {
	rdb *redis.Client
}

func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb}
}

func (r *RedisRevoker) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, revokedKeyPrefix+id, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session %q: %w", id, err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, id string) (bool, error) {
	err := r.rdb.Get(ctx, revokedKeyPrefix+id).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup session %q: %w", id, err)
	}
	return true, nil
}
