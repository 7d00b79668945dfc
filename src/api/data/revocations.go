package data

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisRevocations adapts the guest-token revocation keys to the guest
// gate's Revocations interface.
type RedisRevocations struct {
	rdb *redis.Client
}

func NewRedisRevocations(rdb *redis.Client) *RedisRevocations {
	return &RedisRevocations{rdb: rdb}
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string) error {
	return RevokeGuestToken(ctx, r.rdb, jti)
}

func (r *RedisRevocations) Revoked(ctx context.Context, jti string) (bool, error) {
	return GuestTokenRevoked(ctx, r.rdb, jti)
}
